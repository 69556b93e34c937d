package contract

import (
	"context"
	"io"
)

// Reader: 输入源抽象（单个文件）。
// 约束：
// 1) 仅提供字节流，不做解码/业务解析；
// 2) FileID 稳定且去平台差异化；
// 3) 调用方负责 Close。
type Reader interface {
	Open(ctx context.Context, path string) (FileID, io.ReadCloser, error)
}
