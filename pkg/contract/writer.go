package contract

import (
	"context"
	"io"
)

// ArtifactID: 输出工件标识（输出文件路径；"-" 表示 STDOUT）。
type ArtifactID string

// Writer: 将编码结果持久化到目标介质。
// 约束：
//  1. 成功前不得留下部分写入的目标文件；
//  2. ctx 取消需尽快返回；
//  3. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, id ArtifactID, r io.Reader) error
}
