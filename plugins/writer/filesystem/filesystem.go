package filesystem

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/facebookgo/atomicfile"

	"vcf2json/pkg/contract"
)

// Stdout 为写往标准输出的工件标识。
const Stdout = "-"

// Options: 最小必要选项。
type Options struct {
	// Atomic: 是否使用原子替换（同目录临时文件 + rename）。
	// 默认值：true。未提供该字段时采用原子写；显式 false 可关闭。
	Atomic *bool `yaml:"atomic"`
	// PermFile/PermDir: 可选权限；为 0 表示使用实现默认。
	PermFile os.FileMode `yaml:"perm_file"`
	PermDir  os.FileMode `yaml:"perm_dir"`
	// BufSize: 写缓冲区大小；<=0 使用实现默认。
	BufSize int `yaml:"buf_size"`
	// CreateDirs: 输出父目录不存在时是否创建。默认 false，缺失目录即写失败。
	CreateDirs bool `yaml:"create_dirs"`
}

type FS struct {
	atomic  bool
	permF   os.FileMode
	permD   os.FileMode
	bufSize int
	mkdirs  bool
	stdout  io.Writer
}

// New 创建文件系统 Writer 实现。opts 可为 nil。
func New(opts *Options) (*FS, error) {
	if opts == nil {
		opts = &Options{}
	}
	bsz := opts.BufSize
	if bsz <= 0 {
		bsz = 64 * 1024
	}
	pf := opts.PermFile
	if pf == 0 {
		pf = 0o644
	}
	pd := opts.PermDir
	if pd == 0 {
		pd = 0o755
	}
	atomic := true
	if opts.Atomic != nil {
		atomic = *opts.Atomic
	}
	return &FS{atomic: atomic, permF: pf, permD: pd, bufSize: bsz, mkdirs: opts.CreateDirs, stdout: os.Stdout}, nil
}

var _ contract.Writer = (*FS)(nil)

// Write 将 r 的全部字节写入 id 指向的文件；id 为 "-" 时写 STDOUT。
func (w *FS) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if string(id) == Stdout {
		return w.writeStream(ctx, w.stdout, r)
	}
	dest, err := w.mapPath(id)
	if err != nil {
		return err
	}
	if w.mkdirs {
		if err := os.MkdirAll(filepath.Dir(dest), w.permD); err != nil {
			return err
		}
	}

	if w.atomic {
		return w.writeAtomic(ctx, dest, r)
	}
	return w.writeOverwrite(ctx, dest, r)
}

// mapPath: Clean + 目标不可为目录。
func (w *FS) mapPath(id contract.ArtifactID) (string, error) {
	raw := strings.TrimSpace(string(id))
	if raw == "" {
		return "", contract.ErrPathInvalid
	}
	dest := filepath.Clean(raw)
	if dest == "." || dest == ".." || strings.HasSuffix(raw, string(filepath.Separator)) {
		return "", contract.ErrPathInvalid
	}
	if fi, err := os.Stat(dest); err == nil && fi.IsDir() {
		return "", contract.ErrPathInvalid
	}
	return dest, nil
}

func (w *FS) writeStream(ctx context.Context, dst io.Writer, r io.Reader) error {
	bw := bufio.NewWriterSize(dst, w.bufSize)
	if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		return err
	}
	return bw.Flush()
}

func (w *FS) writeOverwrite(ctx context.Context, dest string, r io.Reader) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, w.permF)
	if err != nil {
		return err
	}
	// 确保及时关闭
	defer f.Close()
	return w.writeStream(ctx, f, r)
}

// writeAtomic: 同目录临时文件写满并 fsync 后再替换目标；任何失败都丢弃临时文件。
func (w *FS) writeAtomic(ctx context.Context, dest string, r io.Reader) error {
	f, err := atomicfile.New(dest, w.permF)
	if err != nil {
		return err
	}
	if err := w.writeStream(ctx, f, r); err != nil {
		_ = f.Abort()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Abort()
		return err
	}
	// Close 完成 rename
	return f.Close()
}

// readerWithCtx: 在每次 Read 前检查 ctx 是否已取消。
func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
	}
	return cr.r.Read(p)
}
