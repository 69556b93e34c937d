package contract

import (
	"context"
	"io"
)

// Encoder: 将变长文本行编码为连续的定长缓冲（Corpus）。
// 约束：
//  1. 行序不变，Rows 即读到的行数；
//  2. 每行左对齐、空格填充到 LineWidth；
//  3. 超长行按实现策略截断（计入 EncodeStats.Truncated）或返回 ErrLineTooLong；
//  4. 仅协调者调用，无内部并发。
type Encoder interface {
	Encode(ctx context.Context, fileID FileID, r io.Reader) (Corpus, EncodeStats, error)
}
