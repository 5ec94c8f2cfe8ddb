package contract

import (
	"context"
	"io"
)

// Reader 枚举联系人输入（单个 .vcf 文件、目录或 STDIN），逐个交出字节流。
// - 目录按字典序遍历，只交出扩展名匹配的常规文件；
// - FileID 使用正斜杠形式，告警与日志以其定位到具体文件；
// - rc 由调用方关闭；可选实现 Size() int64 以提供进度；
// - 不解析 vCard 内容，同步回调，不起 goroutine。
type Reader interface {
	Iterate(ctx context.Context, roots []string, yield func(fileID FileID, rc io.ReadCloser) error) error
}
