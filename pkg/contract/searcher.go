package contract

import "context"

// Searcher: 在本地分区内做字面子串查找。
// startLine 为本分区第 0 行在原文件中的 0 起始行号；命中记录为 startLine+i+1。
// 无命中不是错误（返回空切片）。
type Searcher interface {
	Search(ctx context.Context, records []string, pattern string, startLine int) ([]Match, error)
}
