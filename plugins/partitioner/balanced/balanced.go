package balanced

import (
	"fmt"

	"pgrep/pkg/contract"
)

// Options: 预留占位，余数感知分区无需配置。
type Options struct{}

// Partitioner 保证所有行都被分发（Assigned()==Rows）：
// 前 workers-1 个 rank 恰为 rows/workers 行，余数全部交给最后一个 rank。
// 前面的 rank 均为 base 行，因此 rank*base 作为起始行号对所有 rank 成立。
type Partitioner struct{}

// New 创建余数感知分区器。
func New(_ *Options) *Partitioner { return &Partitioner{} }

var _ contract.Partitioner = (*Partitioner)(nil)

// Plan 计算布局；所有 rank 行数相同时使用等长 scatter。
func (p *Partitioner) Plan(rows, workers int) (contract.Layout, error) {
	if rows < 0 || workers < 1 {
		return contract.Layout{}, fmt.Errorf("%w: rows=%d workers=%d", contract.ErrInvalidInput, rows, workers)
	}
	base := rows / workers
	l := contract.Layout{Rows: rows, Workers: workers, Base: base, Counts: make([]int, workers)}
	for i := range l.Counts {
		l.Counts[i] = base
	}
	if rem := rows - base*workers; rem > 0 {
		l.Counts[workers-1] += rem
	} else {
		l.Uniform = true
	}
	return l, nil
}
