package jsonarray

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"vcf2json/pkg/contract"
)

// Options: 输出格式选项。
type Options struct {
	// Indent: 每级缩进空格数；0 使用默认 4；负数输出紧凑单行。
	Indent int `yaml:"indent"`
}

type encoder struct {
	indent  string
	compact bool
}

var _ contract.Encoder = (*encoder)(nil)

// New 创建 JSON 数组编码器。
func New(opts *Options) (contract.Encoder, error) {
	n := 4
	if opts != nil && opts.Indent != 0 {
		n = opts.Indent
	}
	if n < 0 {
		return &encoder{compact: true}, nil
	}
	return &encoder{indent: strings.Repeat(" ", n)}, nil
}

// Encode 将记录渲染为 JSON 数组：对象键有序、值为字符串数组、不转义 HTML、结尾单个换行。
// 零条记录输出 "[]"。
func (e *encoder) Encode(ctx context.Context, records []*contract.Record) (io.Reader, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	// 非 nil 切片，保证空结果为 [] 而非 null
	arr := make([]map[string][]string, 0, len(records))
	for _, r := range records {
		arr = append(arr, r.Map())
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if !e.compact {
		enc.SetIndent("", e.indent)
	}
	if err := enc.Encode(arr); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return bytes.NewReader(buf.Bytes()), nil
}
