package contract

import (
	"context"
	"io"
)

// Encoder: 将全部 Record 序列化为最终输出字节流。
// 约束：纯计算，不做 I/O；失败快速返回。
type Encoder interface {
	Encode(ctx context.Context, records []*Record) (io.Reader, error)
}
