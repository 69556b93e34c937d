package parity

import (
	"fmt"

	"pgrep/pkg/contract"
)

// Options: 预留占位，奇偶分区无需配置。
type Options struct{}

// Partitioner 按总行数的奇偶性选择分发方式：
//   - 行数为偶数：等长 scatter，每个 rank 恰为 rows/workers 行；
//   - 行数为奇数：变长 scatterv，最后一个 rank 多得 1 行（workers==1 时不加）。
//
// 判定依据是奇偶而非能否被 workers 整除，因此可能有尾部行不被分发（见 Layout.Unassigned）。
// 奇数行且恰被 workers 整除时，多出的 1 行已无可分，最后一个 rank 保持 base 行。
type Partitioner struct{}

// New 创建奇偶分区器。
func New(_ *Options) *Partitioner { return &Partitioner{} }

var _ contract.Partitioner = (*Partitioner)(nil)

// Plan 计算布局。
func (p *Partitioner) Plan(rows, workers int) (contract.Layout, error) {
	if rows < 0 || workers < 1 {
		return contract.Layout{}, fmt.Errorf("%w: rows=%d workers=%d", contract.ErrInvalidInput, rows, workers)
	}
	base := rows / workers
	l := contract.Layout{Rows: rows, Workers: workers, Base: base, Counts: make([]int, workers)}
	for i := range l.Counts {
		l.Counts[i] = base
	}
	if rows%2 == 0 {
		l.Uniform = true
		return l, nil
	}
	if workers > 1 && base*workers < rows {
		l.Counts[workers-1] = base + 1
	}
	return l, nil
}
