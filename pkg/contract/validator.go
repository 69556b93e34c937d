package contract

import "fmt"

// ValidateLayout 校验分区布局的静态不变量（纯函数，无 I/O）：
// - Workers >= 1 且 len(Counts) == Workers；
// - Counts 非负，总和不超过 Rows；
// - Uniform 时每个 rank 恰为 Base 行。
func ValidateLayout(l Layout) error {
	if l.Workers < 1 || l.Rows < 0 {
		return fmt.Errorf("%w: rows=%d workers=%d", ErrInvalidInput, l.Rows, l.Workers)
	}
	if len(l.Counts) != l.Workers {
		return fmt.Errorf("%w: %d counts for %d workers", ErrInvariantViolation, len(l.Counts), l.Workers)
	}
	for i, c := range l.Counts {
		if c < 0 {
			return fmt.Errorf("%w: negative count at rank %d", ErrInvariantViolation, i)
		}
		if l.Uniform && c != l.Base {
			return fmt.Errorf("%w: uniform layout with count %d != base %d at rank %d", ErrInvariantViolation, c, l.Base, i)
		}
	}
	if l.Assigned() > l.Rows {
		return fmt.Errorf("%w: layout assigns %d rows, corpus has %d", ErrInvariantViolation, l.Assigned(), l.Rows)
	}
	return nil
}

// PairGathered 将两次 gatherv 的结果（连续定长文本、行号）配对为显式 Report。
// 两个缓冲均按 rank 顺序排列，按位置一一对应；记录数不一致即为不变量违例。
func PairGathered(text []byte, lines []uint32) (Report, error) {
	recs, err := SplitRecords(text)
	if err != nil {
		return nil, err
	}
	if len(recs) != len(lines) {
		return nil, fmt.Errorf("%w: %d records but %d line numbers", ErrInvariantViolation, len(recs), len(lines))
	}
	rep := make(Report, len(recs))
	for i := range recs {
		rep[i] = Match{Line: lines[i], Text: recs[i]}
	}
	return rep, nil
}
