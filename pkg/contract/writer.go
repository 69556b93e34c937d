package contract

import (
	"context"
	"io"
)

// ArtifactID: 输出工件标识（例如 "output.txt"）。
type ArtifactID = FileID

// Writer: 将渲染结果以流式方式持久化。
// 约束：
//  1. 同一 ArtifactID 单写者；
//  2. 创建或截断目标，按字节透传；
//  3. ctx 取消需尽快返回；
//  4. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, id ArtifactID, r io.Reader) error
}
