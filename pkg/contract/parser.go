package contract

import (
	"context"
	"io"
)

// Parser: 将单文件字节流解析为有序 Record 序列。
// 约束：
// 1) 逐行顺序处理，无内部并发；
// 2) 可恢复异常以 Warning 返回，不作为 error；
// 3) error 仅用于 I/O 失败、ctx 取消与显式配置的协议违例；
// 4) 返回的 Record 按出现顺序排列。
type Parser interface {
	Parse(ctx context.Context, fileID FileID, r io.Reader) ([]*Record, []Warning, error)
}
