package vcard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"

	"vcf2json/pkg/contract"
)

// Options 为 vCard Parser 的可选配置（最小必要）。
type Options struct {
	// Unterminated: 未闭合续行缓冲的处理策略：discard（默认）|commit|error。
	Unterminated string `yaml:"unterminated"`
	// DefaultCharset: QP 字段缺少 charset 选项时使用的字符集。默认 utf-8。
	DefaultCharset string `yaml:"default_charset"`
	// QPSoftBreaks: 是否拼接以 '=' 结尾的 QP 软换行。nil 视为 true。
	QPSoftBreaks *bool `yaml:"qp_soft_breaks"`
	// ExtraKeys: 叠加到默认键表上的映射（同键覆盖）。
	ExtraKeys []KeyRule `yaml:"extra_keys"`
}

// KeyRule: 一条附加映射。Options 为 nil 表示“无选项”。
type KeyRule struct {
	Tag     string  `yaml:"tag"`
	Options *string `yaml:"options"`
	Key     string  `yaml:"key"`
}

// Parser 实现 contract.Parser。构造后只读，可重复使用。
type Parser struct {
	keys       *KeyMap
	policy     Policy
	charset    encoding.Encoding
	softBreaks bool
}

var _ contract.Parser = (*Parser)(nil)

// New 创建 vCard Parser；选项非法时返回 ErrInvalidInput。
func New(opts *Options) (*Parser, error) {
	if opts == nil {
		opts = &Options{}
	}
	policy, err := ParsePolicy(opts.Unterminated)
	if err != nil {
		return nil, err
	}
	cs := strings.TrimSpace(opts.DefaultCharset)
	if cs == "" {
		cs = "utf-8"
	}
	enc, err := lookupCharset(cs)
	if err != nil {
		return nil, err
	}
	extra := make(map[contract.FieldKey]string, len(opts.ExtraKeys))
	for i, r := range opts.ExtraKeys {
		if strings.TrimSpace(r.Tag) == "" || strings.TrimSpace(r.Key) == "" {
			return nil, fmt.Errorf("%w: extra_keys[%d]: tag and key are required", contract.ErrInvalidInput, i)
		}
		k := contract.Plain(r.Tag)
		if r.Options != nil {
			k = contract.WithOptions(r.Tag, *r.Options)
		}
		extra[k] = r.Key
	}
	soft := true
	if opts.QPSoftBreaks != nil {
		soft = *opts.QPSoftBreaks
	}
	return &Parser{keys: NewKeyMap(extra), policy: policy, charset: enc, softBreaks: soft}, nil
}

// Parse 逐行读取 r 并驱动 Session，返回记录与告警。
// I/O 错误与 ctx 取消直接返回；可恢复异常仅记为告警。
func (p *Parser) Parse(ctx context.Context, fileID contract.FileID, r io.Reader) ([]*contract.Record, []contract.Warning, error) {
	s := NewSession(fileID, p.keys, p.policy, p.charset, p.softBreaks)
	br := bufio.NewReader(r)
	first := true
	for {
		if err := ctxErr(ctx); err != nil {
			return nil, nil, err
		}
		line, eof, err := readTrimmedLine(br)
		if err != nil {
			return nil, nil, err
		}
		if eof {
			break
		}
		if first {
			// UTF-8 BOM
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		if err := s.Feed(line); err != nil {
			return nil, s.Warnings(), err
		}
	}
	if err := s.Finish(); err != nil {
		return nil, s.Warnings(), err
	}
	return s.Records(), s.Warnings(), nil
}

// readTrimmedLine 读取一行，去除结尾的 \n 或 \r\n；返回该行、是否 EOF。
func readTrimmedLine(br *bufio.Reader) (line string, eof bool, err error) {
	s, err := br.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", false, err
		}
		// 仅当未读到任何字节时才是输入结束；末尾孤立的 "\r" 仍是一行空行
		if s == "" {
			return "", true, nil
		}
	}
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s, false, nil
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
