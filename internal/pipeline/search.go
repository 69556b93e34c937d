package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"pgrep/internal/collective"
	"pgrep/internal/diag"
	"pgrep/pkg/contract"
)

// search: 协调者广播其分区长度作为 offset，各 rank 以 rank*offset 为起始行号查找。
// 起始行号只在除最后一个 rank 外所有分区都等长时与真实位置一致（parity/balanced 均满足）；
// 布局不满足时记录 warn，行号按 rank*offset 原样输出。
func search(ctx context.Context, c *collective.Comm, comp Components, set Settings, part partition, log *diag.Logger) ([]contract.Match, error) {
	offset := 0
	if c.Rank() == root {
		offset = len(part.records)
	}
	offset, err := collective.Broadcast(ctx, c, root, offset)
	if err != nil {
		return nil, fmt.Errorf("broadcast offset: %w", err)
	}
	start := c.Rank() * offset
	if want := part.layout.RowOffsets()[c.Rank()]; want != start {
		log.Warn("search", "start line differs from partition offset", map[string]string{
			"start":  strconv.Itoa(start),
			"actual": strconv.Itoa(want),
		})
		diag.IncOp("search", "offset", "mismatch")
	}

	stimer := log.StartWithKV("search", "scan", "", map[string]string{"start": strconv.Itoa(start)})
	matches, err := comp.Searcher.Search(ctx, part.records, set.Pattern, start)
	if err != nil {
		return nil, fail(log, "search", "scan failed", err)
	}
	stimer.Finish("scan", int64(len(matches)))
	diag.IncOp("search", "finish", "success")
	diag.ObserveDuration("search", "finish", stimer.Since().Milliseconds())
	return matches, nil
}
