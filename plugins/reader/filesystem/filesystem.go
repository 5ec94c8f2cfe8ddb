package filesystem

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vcf2json/pkg/contract"
)

// Stdin 为标准输入的根标识；对应的 FileID 为 "stdin"。
const Stdin = "-"

// DefaultExts 为目录遍历时收录的扩展名。
var DefaultExts = []string{".vcf", ".vcard"}

// Options 为 FileSystem Reader 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `yaml:"buf_size"`
	// Exts: 目录遍历时收录的扩展名（大小写不敏感）；为空使用 DefaultExts。
	// 仅影响目录递归，显式给出的文件 root 总是读取。
	Exts []string `yaml:"exts"`
	// ExcludeDirNames: 在扫描目录时跳过这些目录名（基名完全匹配）。
	ExcludeDirNames []string `yaml:"exclude_dir_names"`
}

// FileSystem 实现基于文件系统与 STDIN 的 Reader。
type FileSystem struct {
	bufSize int
	exts    map[string]struct{}
	// 以小写形式保存，比较时按小写基名匹配。
	excludeDir map[string]struct{}
	stdin      io.ReadCloser
}

// New 创建 FileSystem Reader。
func New(opts *Options) *FileSystem {
	if opts == nil {
		opts = &Options{}
	}
	b := 64 * 1024
	if opts.BufSize > 0 {
		b = opts.BufSize
	}
	exts := opts.Exts
	if len(exts) == 0 {
		exts = DefaultExts
	}
	return &FileSystem{
		bufSize:    b,
		exts:       lowerSet(exts, func(s string) string { return "." + strings.TrimPrefix(s, ".") }),
		excludeDir: lowerSet(opts.ExcludeDirNames, nil),
		stdin:      os.Stdin,
	}
}

func lowerSet(in []string, norm func(string) string) map[string]struct{} {
	m := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if norm != nil {
			s = norm(s)
		}
		m[strings.ToLower(s)] = struct{}{}
	}
	return m
}

var _ contract.Reader = (*FileSystem)(nil)

// Iterate 遍历 roots，按稳定顺序对每个输入文件调用 yield。
// roots 为空或仅为 "-" 时读取 STDIN；"-" 不可与其他根混用。
func (r *FileSystem) Iterate(ctx context.Context, roots []string, yield func(fileID contract.FileID, rc io.ReadCloser) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if len(roots) == 0 || (len(roots) == 1 && roots[0] == Stdin) {
		// 不关闭进程的 STDIN
		return yield(contract.FileID("stdin"), newBufferedCloser(io.NopCloser(r.stdin), r.bufSize))
	}
	for _, s := range roots {
		if s == Stdin {
			return fmt.Errorf("%w: stdin %q cannot be mixed with other roots", contract.ErrPathInvalid, Stdin)
		}
	}

	for _, root := range roots {
		if err := r.iterateOne(ctx, root, yield); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileSystem) iterateOne(ctx context.Context, root string, yield func(contract.FileID, io.ReadCloser) error) error {
	info, err := os.Lstat(root)
	if err != nil {
		return err
	}
	// 符号链接仅跟随到常规文件；目录符号链接忽略
	if info.Mode()&os.ModeSymlink != 0 {
		t, err := os.Stat(root)
		if err != nil {
			return err
		}
		if !t.Mode().IsRegular() {
			return nil
		}
		return r.open(root, yield)
	}
	if info.IsDir() {
		return r.walkDir(ctx, root, yield)
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	return r.open(root, yield)
}

func (r *FileSystem) walkDir(ctx context.Context, dir string, yield func(contract.FileID, io.ReadCloser) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	// 稳定顺序：字典序
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	// 先目录，再文件
	for _, e := range entries {
		if err := ctxErr(ctx); err != nil {
			return err
		}
		if !e.IsDir() {
			continue
		}
		if _, skip := r.excludeDir[strings.ToLower(e.Name())]; skip {
			continue
		}
		if err := r.walkDir(ctx, filepath.Join(dir, e.Name()), yield); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if err := ctxErr(ctx); err != nil {
			return err
		}
		if e.IsDir() || !r.accept(e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		mode := e.Type()
		if mode&os.ModeSymlink != 0 {
			t, err := os.Stat(p)
			if err != nil {
				return err
			}
			mode = t.Mode()
		}
		// 非常规文件（设备、FIFO、目录链接）跳过
		if !mode.IsRegular() {
			continue
		}
		if err := r.open(p, yield); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileSystem) accept(name string) bool {
	_, ok := r.exts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// open 打开 p 并交给 yield；yield 失败时由此处关闭。
func (r *FileSystem) open(p string, yield func(contract.FileID, io.ReadCloser) error) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	brc := newBufferedCloser(f, r.bufSize)
	if fi, err := f.Stat(); err == nil {
		brc.size = fi.Size()
	}
	if err := yield(contract.NormalizeFileID(p), brc); err != nil {
		_ = brc.Close()
		return err
	}
	return nil
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// bufferedCloser 将 bufio.Reader 与底层 Closer 组合为 ReadCloser。
type bufferedCloser struct {
	*bufio.Reader
	c    io.Closer
	size int64
}

func newBufferedCloser(c io.ReadCloser, bufSize int) *bufferedCloser {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	return &bufferedCloser{Reader: bufio.NewReaderSize(c, bufSize), c: c, size: -1}
}

func (b *bufferedCloser) Close() error { return b.c.Close() }

// Size 返回文件字节数；未知（STDIN）为 -1。
func (b *bufferedCloser) Size() int64 { return b.size }
