package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"pgrep/internal/collective"
	"pgrep/internal/diag"
	"pgrep/pkg/contract"
)

// partition: 本 rank 分到的定长记录及全组共享的布局。
type partition struct {
	records []string
	layout  contract.Layout
}

// distribute: 协调者读取并编码输入，广播行数；各 rank 计算相同布局后
// 通过等长 scatter（Uniform）或变长 scatterv 取得自己的分区。
// 变长表只在协调者构造；其余 rank 以 nil 表参与同一调用。
func distribute(ctx context.Context, c *collective.Comm, comp Components, set Settings, log *diag.Logger, sum *Summary) (partition, error) {
	var corpus contract.Corpus
	rows := 0
	if c.Rank() == root {
		var err error
		corpus, err = loadCorpus(ctx, comp, set, log, sum)
		if err != nil {
			return partition{}, err
		}
		rows = corpus.Rows
	}

	rows, err := collective.Broadcast(ctx, c, root, rows)
	if err != nil {
		return partition{}, fmt.Errorf("broadcast rows: %w", err)
	}
	layout, err := comp.Partitioner.Plan(rows, c.Size())
	if err == nil {
		err = contract.ValidateLayout(layout)
	}
	if err != nil {
		return partition{}, fail(log, "partitioner", "plan failed", err)
	}

	if c.Rank() == root {
		sum.Counts = append([]int(nil), layout.Counts...)
		sum.Unassigned = layout.Unassigned()
		if n := layout.Unassigned(); n > 0 {
			// 分区规则未覆盖的尾部行不参与查找
			log.Warn("partitioner", "rows not distributed", map[string]string{
				"rows":       strconv.Itoa(rows),
				"workers":    strconv.Itoa(c.Size()),
				"unassigned": strconv.Itoa(n),
			})
			diag.IncOp("partitioner", "unassigned", "warn")
		}
		if t := diag.GetTerminal(); t != nil {
			t.Distributed(rows, layout.Unassigned())
		}
	}

	stimer := log.Start("distribute", "scatter")
	var chunk []byte
	if layout.Uniform {
		chunk, err = collective.Scatter(ctx, c, root, corpus.Data, layout.Base*contract.LineWidth)
	} else {
		var counts, displs []int
		if c.Rank() == root {
			counts, displs = layout.ByteCounts(), layout.Displs()
		}
		chunk, err = collective.Scatterv(ctx, c, root, corpus.Data, counts, displs, layout.Counts[c.Rank()]*contract.LineWidth)
	}
	// 分发后协调者不再持有语料缓冲
	corpus = contract.Corpus{}
	if err != nil {
		return partition{}, fmt.Errorf("scatter: %w", err)
	}
	records, err := contract.SplitRecords(chunk)
	if err != nil {
		return partition{}, fail(log, "distribute", "split records failed", err)
	}
	stimer.Finish("scatter", int64(len(records)))
	diag.IncOp("distribute", "finish", "success")
	return partition{records: records, layout: layout}, nil
}

// loadCorpus: 协调者打开输入并编码为定长语料。
func loadCorpus(ctx context.Context, comp Components, set Settings, log *diag.Logger, sum *Summary) (contract.Corpus, error) {
	otimer := log.Start("reader", "open")
	fileID, rc, err := comp.Reader.Open(ctx, set.Input)
	if err != nil {
		return contract.Corpus{}, fail(log, "reader", "open failed", err)
	}
	defer rc.Close()
	otimer.Finish("open", 0)
	diag.IncOp("reader", "finish", "success")

	etimer := log.StartWithKV("encoder", "encode", string(fileID), nil)
	corpus, st, err := comp.Encoder.Encode(ctx, fileID, rc)
	if err != nil {
		return contract.Corpus{}, fail(log, "encoder", "encode failed", err)
	}
	etimer.FinishKV("encode", int64(corpus.Rows), map[string]string{"truncated": strconv.Itoa(st.Truncated)})
	diag.IncOp("encoder", "finish", "success")
	diag.ObserveDuration("encoder", "finish", etimer.Since().Milliseconds())
	if st.Truncated > 0 {
		log.Warn("encoder", "long lines truncated", map[string]string{
			"truncated": strconv.Itoa(st.Truncated),
			"width":     strconv.Itoa(contract.LineWidth - 1),
		})
	}
	sum.FileID = fileID
	sum.Rows = corpus.Rows
	sum.Truncated = st.Truncated
	return corpus, nil
}
