package vcard

import (
	"fmt"
	"strings"

	govcard "github.com/emersion/go-vcard"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"vcf2json/pkg/contract"
)

// Policy 决定未闭合续行缓冲的处理方式：
// 被 begin/end/field 行打断时，以及输入结束时仍未闭合时。
type Policy int

const (
	// PolicyDiscard 丢弃缓冲并告警。
	PolicyDiscard Policy = iota
	// PolicyCommit 先将缓冲提交到当前记录。
	PolicyCommit
	// PolicyError 以 ErrProtocolViolation 中止解析。
	PolicyError
)

// ParsePolicy 解析策略名；空串为 discard。
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "discard":
		return PolicyDiscard, nil
	case "commit":
		return PolicyCommit, nil
	case "error":
		return PolicyError, nil
	default:
		return PolicyDiscard, fmt.Errorf("%w: unterminated policy %q", contract.ErrInvalidInput, s)
	}
}

func (p Policy) String() string {
	switch p {
	case PolicyCommit:
		return "commit"
	case PolicyError:
		return "error"
	default:
		return "discard"
	}
}

// continuation 为跨行拼接中的字段值（至多一个）。
type continuation struct {
	key   string
	value strings.Builder
	line  int
	text  string
}

// pendingQP 为以软换行 '=' 结尾、尚未收齐的 QP 字段。
type pendingQP struct {
	ln   Line
	opts []string
	raw  strings.Builder
	line int
}

// Session 持有单个输入流的全部解析状态。
// 约束：
// - 任意时刻要么无当前记录，要么恰有一个当前记录；
// - 记录在 begin 时即追加到结果列表，随后原地追加字段；
// - 结果列表只增不减。
type Session struct {
	fileID     contract.FileID
	keys       *KeyMap
	policy     Policy
	charset    encoding.Encoding
	softBreaks bool

	records  []*contract.Record
	current  *contract.Record
	buf      *continuation
	qp       *pendingQP
	lineNo   int
	warnings []contract.Warning
}

// NewSession 创建会话；keys 为 nil 时使用默认表，charset 为 nil 时使用 UTF-8。
func NewSession(fileID contract.FileID, keys *KeyMap, policy Policy, charset encoding.Encoding, softBreaks bool) *Session {
	if keys == nil {
		keys = NewKeyMap(nil)
	}
	if charset == nil {
		charset = unicode.UTF8
	}
	return &Session{fileID: fileID, keys: keys, policy: policy, charset: charset, softBreaks: softBreaks}
}

// Records 返回已创建的记录（按出现顺序）。
func (s *Session) Records() []*contract.Record { return s.records }

// Warnings 返回累计告警。
func (s *Session) Warnings() []contract.Warning { return s.warnings }

// Current 返回当前打开的记录（可能为 nil）。
func (s *Session) Current() *contract.Record { return s.current }

// Pending 报告是否存在未闭合的续行缓冲。
func (s *Session) Pending() bool { return s.buf != nil }

// Feed 处理一行（已去除行尾换行符）。
// 仅在 PolicyError 下的协议违例返回 error。
func (s *Session) Feed(text string) error {
	s.lineNo++
	ln := Classify(text)
	if s.qp != nil {
		if !joinsSoftBreak(ln.Kind) {
			// 结构行：先收尾 QP 字段，再按常规处理本行
			s.flushQP()
		} else {
			s.qp.raw.WriteByte('\n')
			s.qp.raw.WriteString(text)
			if !strings.HasSuffix(text, "=") {
				s.flushQP()
			}
			return nil
		}
	}
	switch ln.Kind {
	case KindBegin:
		return s.begin(ln)
	case KindEnd:
		return s.end()
	case KindVersion:
		return nil
	case KindField:
		return s.field(ln)
	case KindContinuation:
		s.continueValue(ln)
	case KindEmpty:
		s.blank()
	default:
		s.warn(s.lineNo, contract.WarnUnrecognized, text, "", "")
	}
	return nil
}

// joinsSoftBreak: QP 软换行只吞并无法归类为结构行的续行。
func joinsSoftBreak(k Kind) bool {
	return k == KindUnknown || k == KindContinuation
}

// Finish 在输入结束时调用：收尾未完成的 QP 字段，并按策略处理未闭合缓冲。
func (s *Session) Finish() error {
	if s.qp != nil {
		s.flushQP()
	}
	return s.interrupt("end of input")
}

func (s *Session) begin(ln Line) error {
	if err := s.interrupt("begin"); err != nil {
		return err
	}
	if s.current != nil {
		s.warn(s.lineNo, contract.WarnRecordNotClosed, ln.Text, "", "")
	}
	r := contract.NewRecord()
	s.records = append(s.records, r)
	s.current = r
	return nil
}

func (s *Session) end() error {
	if err := s.interrupt("end"); err != nil {
		return err
	}
	s.current = nil
	return nil
}

func (s *Session) field(ln Line) error {
	if err := s.interrupt("field"); err != nil {
		return err
	}
	opts := splitOptions(ln)
	if isQuotedPrintable(opts) {
		if s.softBreaks && strings.HasSuffix(ln.Value, "=") {
			p := &pendingQP{ln: ln, opts: opts, line: s.lineNo}
			p.raw.WriteString(ln.Value)
			s.qp = p
			return nil
		}
		s.quotedPrintable(ln, opts, ln.Value, s.lineNo)
		return nil
	}
	if strings.EqualFold(ln.Tag, govcard.FieldPhoto) {
		b := &continuation{key: KeyPhoto, line: s.lineNo, text: ln.Text}
		b.value.WriteString(ln.Value)
		s.buf = b
		return nil
	}
	k := contract.Plain(ln.Tag)
	if ln.HasOptions {
		k = contract.WithOptions(ln.Tag, ln.Options)
	}
	s.store(ln.Text, k, ln.Value, s.lineNo)
	return nil
}

// quotedPrintable 解码 QP 字段；编码/字符集选项不参与查表。
func (s *Session) quotedPrintable(ln Line, opts []string, raw string, line int) {
	enc := s.charset
	if name, ok := charsetOf(opts); !ok {
		s.warn(line, contract.WarnCharsetMissing, ln.Text, "", "")
	} else if e, err := lookupCharset(name); err != nil {
		s.warn(line, contract.WarnCharsetUnknown, ln.Text, "", name)
	} else {
		enc = e
	}
	k := contract.Plain(ln.Tag)
	v, err := decodeQuotedPrintable(raw, enc)
	if err != nil {
		s.warn(line, contract.WarnDecodeFailed, ln.Text, k.String(), err.Error())
		return
	}
	s.store(ln.Text, k, v, line)
}

func (s *Session) flushQP() {
	p := s.qp
	s.qp = nil
	s.quotedPrintable(p.ln, p.opts, p.raw.String(), p.line)
}

func (s *Session) store(text string, k contract.FieldKey, v string, line int) {
	name, ok := s.keys.Resolve(k)
	if !ok {
		s.warn(line, contract.WarnUnmappedKey, text, k.String(), "")
		return
	}
	if s.current == nil {
		s.warn(line, contract.WarnNoRecord, text, name, "")
		return
	}
	s.current.Add(name, v)
}

func (s *Session) continueValue(ln Line) {
	if s.buf == nil {
		s.warn(s.lineNo, contract.WarnOrphanContinuation, ln.Text, "", "")
		return
	}
	s.buf.value.WriteString(ln.Data)
}

func (s *Session) blank() {
	if s.buf == nil {
		return
	}
	b := s.buf
	s.buf = nil
	s.commit(b)
}

func (s *Session) commit(b *continuation) {
	if s.current == nil {
		s.warn(b.line, contract.WarnNoRecord, b.text, b.key, "")
		return
	}
	s.current.Add(b.key, b.value.String())
}

// interrupt 按策略处理被打断（或到达输入末尾）的续行缓冲。
func (s *Session) interrupt(cause string) error {
	if s.buf == nil {
		return nil
	}
	b := s.buf
	s.buf = nil
	switch s.policy {
	case PolicyCommit:
		s.commit(b)
	case PolicyError:
		return fmt.Errorf("%w: %s:%d: %s value opened at line %d interrupted by %s",
			contract.ErrProtocolViolation, s.fileID, s.lineNo, b.key, b.line, cause)
	default:
		s.warn(b.line, contract.WarnBufferDiscarded, b.text, b.key, "interrupted by "+cause)
	}
	return nil
}

func (s *Session) warn(line int, kind contract.WarnKind, text, key, detail string) {
	s.warnings = append(s.warnings, contract.Warning{
		FileID: s.fileID,
		Line:   line,
		Kind:   kind,
		Text:   text,
		Key:    key,
		Detail: detail,
	})
}
