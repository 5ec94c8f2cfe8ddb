package vcard

import (
	"bytes"
	"fmt"
	"io"
	"mime/quotedprintable"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"

	"vcf2json/pkg/contract"
)

const (
	optQuotedPrintable     = "encoding=quoted-printable"
	optQuotedPrintableBare = "quoted-printable"
	optCharsetPrefix       = "charset="
)

// splitOptions 按 ';' 拆分选项串；无选项时返回 nil。
func splitOptions(ln Line) []string {
	if !ln.HasOptions {
		return nil
	}
	return strings.Split(ln.Options, ";")
}

// isQuotedPrintable 判断选项是否声明了 QP 传输编码（大小写不敏感）。
func isQuotedPrintable(opts []string) bool {
	for _, o := range opts {
		switch strings.ToLower(o) {
		case optQuotedPrintable, optQuotedPrintableBare:
			return true
		}
	}
	return false
}

// charsetOf 返回 charset=<name> 选项的值；未声明时 ok=false。
func charsetOf(opts []string) (name string, ok bool) {
	for _, o := range opts {
		if len(o) > len(optCharsetPrefix) && strings.EqualFold(o[:len(optCharsetPrefix)], optCharsetPrefix) {
			return o[len(optCharsetPrefix):], true
		}
	}
	return "", false
}

// decodeQuotedPrintable 先做 QP 字节解码，再按 enc 解码为 UTF-8 字符串。
func decodeQuotedPrintable(raw string, enc encoding.Encoding) (string, error) {
	b, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(raw)))
	if err != nil {
		return "", fmt.Errorf("quoted-printable: %w", err)
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(bytes.ToValidUTF8(out, []byte("\uFFFD"))), nil
}

// lookupCharset 解析字符集名：先按 IANA/MIME 名称（vCard CHARSET 参数的取值），
// 未知或不支持时再按 WHATWG 标签兜底。大小写不敏感。
func lookupCharset(name string) (encoding.Encoding, error) {
	if enc, err := ianaindex.MIME.Encoding(name); err == nil && enc != nil {
		return enc, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: charset %q", contract.ErrInvalidInput, name)
	}
	return enc, nil
}
