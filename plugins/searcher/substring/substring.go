package substring

import (
	"context"
	"fmt"
	"strings"

	"pgrep/pkg/contract"
)

// Options: 预留占位，字面子串查找无需配置。
type Options struct{}

// Searcher 在定长记录内做区分大小写的字面子串查找。
// 查找范围为记录的前 LineWidth-1 字节（含填充空格），末尾保留字节不参与匹配；
// 因此以空格结尾的模式可以命中填充区。空模式命中所有记录。
type Searcher struct{}

// New 创建子串查找器。
func New(_ *Options) *Searcher { return &Searcher{} }

var _ contract.Searcher = (*Searcher)(nil)

// ctxCheckEvery: 每扫描多少条记录检查一次 ctx。
const ctxCheckEvery = 1024

// Search 顺序扫描 records，命中行号为 startLine+i+1（1 起始）。
// 结果保持分区内顺序；无命中返回非 nil 空切片。
func (s *Searcher) Search(ctx context.Context, records []string, pattern string, startLine int) ([]contract.Match, error) {
	if startLine < 0 {
		return nil, fmt.Errorf("%w: start line %d", contract.ErrInvalidInput, startLine)
	}
	// 行号以 uint32 表示，超出范围的分区直接拒绝
	if int64(startLine)+int64(len(records)) > contract.MaxRows {
		return nil, fmt.Errorf("%w: rows %d..%d exceed %d", contract.ErrInvalidInput, startLine+1, int64(startLine)+int64(len(records)), contract.MaxRows)
	}
	out := make([]contract.Match, 0)
	for i, rec := range records {
		if i%ctxCheckEvery == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		if len(rec) != contract.LineWidth {
			return nil, fmt.Errorf("%w: record %d has width %d", contract.ErrInvariantViolation, i, len(rec))
		}
		if strings.Contains(rec[:contract.LineWidth-1], pattern) {
			out = append(out, contract.Match{Line: uint32(startLine + i + 1), Text: rec})
		}
	}
	return out, nil
}
