package contract

import (
	"context"
	"io"
)

// Assembler: 将汇总后的 Report 渲染为最终输出字节流。
// 约束：
//  1. 保持 Report 顺序；
//  2. 空 Report 渲染为空输出（非错误）；
//  3. 不引入跨运行状态。
type Assembler interface {
	Assemble(ctx context.Context, report Report) (io.Reader, error)
}
