package contract

import "fmt"

// WarnKind: 可恢复异常的分类。出现即告警并继续，不中断转换。
type WarnKind string

const (
	WarnUnrecognized       WarnKind = "unrecognized_line"
	WarnUnmappedKey        WarnKind = "unmapped_key"
	WarnCharsetMissing     WarnKind = "charset_missing"
	WarnCharsetUnknown     WarnKind = "charset_unknown"
	WarnDecodeFailed       WarnKind = "decode_failed"
	WarnOrphanContinuation WarnKind = "orphan_continuation"
	WarnBufferDiscarded    WarnKind = "buffer_discarded"
	WarnNoRecord           WarnKind = "no_record"
	WarnRecordNotClosed    WarnKind = "record_not_closed"
)

// Warning: 一条告警（行号从 1 开始；Key 可为空）。
type Warning struct {
	FileID FileID
	Line   int
	Kind   WarnKind
	Text   string
	Key    string
	// Detail: 附加说明（例如解码错误信息），可为空。
	Detail string
}

func (w Warning) String() string {
	s := fmt.Sprintf("%s:%d: %s: %q", w.FileID, w.Line, w.Kind, w.Text)
	if w.Key != "" {
		s += " key=" + w.Key
	}
	if w.Detail != "" {
		s += " (" + w.Detail + ")"
	}
	return s
}
