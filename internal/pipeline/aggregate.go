package pipeline

import (
	"context"
	"fmt"

	"pgrep/internal/collective"
	"pgrep/internal/diag"
	"pgrep/pkg/contract"
)

// aggregate: 三步收集命中到协调者，再渲染并写出报告。
//  1. gather 每个 rank 的命中字节数（命中数 × LineWidth）；
//  2. gatherv 拼接后的命中文本（协调者按字节数前缀和构造位移表）；
//  3. gatherv 命中行号（计数 = 字节数 / LineWidth）。
//
// 两次 gatherv 均按 rank 顺序排列，协调者按位置配对为显式 Report。
func aggregate(ctx context.Context, c *collective.Comm, comp Components, set Settings, matches []contract.Match, log *diag.Logger, sum *Summary) error {
	send, err := contract.JoinMatches(matches)
	if err != nil {
		return fail(log, "aggregate", "join matches failed", err)
	}
	byteCounts, err := collective.Gather(ctx, c, root, len(send))
	if err != nil {
		return fmt.Errorf("gather counts: %w", err)
	}

	var displs, rowCounts, rowDispls []int
	if c.Rank() == root {
		displs = contract.PrefixSum(byteCounts)
		rowCounts = make([]int, len(byteCounts))
		for i, n := range byteCounts {
			rowCounts[i] = n / contract.LineWidth
		}
		rowDispls = contract.PrefixSum(rowCounts)
	}
	text, err := collective.Gatherv(ctx, c, root, send, byteCounts, displs)
	if err != nil {
		return fmt.Errorf("gatherv text: %w", err)
	}
	lines, err := collective.Gatherv(ctx, c, root, contract.MatchLines(matches), rowCounts, rowDispls)
	if err != nil {
		return fmt.Errorf("gatherv lines: %w", err)
	}
	if c.Rank() != root {
		return nil
	}

	rep, err := contract.PairGathered(text, lines)
	if err != nil {
		return fail(log, "aggregate", "pair gathered failed", err)
	}
	sum.Matches = len(rep)

	atimer := log.Start("assembler", "assemble")
	r, err := comp.Assembler.Assemble(ctx, rep)
	if err != nil {
		return fail(log, "assembler", "assemble failed", err)
	}
	atimer.Finish("assemble", int64(len(rep)))
	diag.IncOp("assembler", "finish", "success")

	wtimer := log.StartWithKV("writer", "write", string(set.Output), nil)
	if err := comp.Writer.Write(ctx, set.Output, r); err != nil {
		return fail(log, "writer", "write failed", err)
	}
	wtimer.Finish("write", int64(len(rep)))
	diag.IncOp("writer", "finish", "success")
	return nil
}
