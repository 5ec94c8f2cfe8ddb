package vcard

import (
	"regexp"
	"strings"

	govcard "github.com/emersion/go-vcard"
)

// Kind 为行分类结果。
type Kind int

const (
	KindUnknown Kind = iota
	KindBegin
	KindEnd
	KindVersion
	KindField
	KindContinuation
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindBegin:
		return "begin"
	case KindEnd:
		return "end"
	case KindVersion:
		return "version"
	case KindField:
		return "field"
	case KindContinuation:
		return "continuation"
	case KindEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Line 为单行分类结果及捕获字段。
// 仅与 Kind 对应的字段有意义。
type Line struct {
	Kind Kind
	Text string

	// KindVersion
	Version string

	// KindField
	Tag        string
	Options    string
	HasOptions bool
	Value      string

	// KindContinuation：去除前导空白后的载荷
	Data string
}

// fieldTags: 允许出现在字段行的 tag 白名单。
var fieldTags = []string{
	govcard.FieldName,
	govcard.FieldFormattedName,
	govcard.FieldTelephone,
	govcard.FieldEmail,
	govcard.FieldPhoto,
	tagAndroidCustom,
	govcard.FieldBirthday,
	govcard.FieldOrganization,
	govcard.FieldURL,
	govcard.FieldAddress,
}

const tagAndroidCustom = "X-ANDROID-CUSTOM"

type rule struct {
	kind Kind
	re   *regexp.Regexp
}

// rules 按优先级排列，首个匹配者胜出。
var rules = []rule{
	{KindBegin, regexp.MustCompile(`(?i)^BEGIN:VCARD$`)},
	{KindEnd, regexp.MustCompile(`(?i)^END:VCARD$`)},
	{KindVersion, regexp.MustCompile(`(?i)^` + govcard.FieldVersion + `:(.*)$`)},
	{KindField, regexp.MustCompile(`(?i)^(` + tagAlternation() + `)(;([^:]*))?:(.*)$`)},
	{KindContinuation, regexp.MustCompile(`^[ \t]+(.*)$`)},
	{KindEmpty, regexp.MustCompile(`^$`)},
}

func tagAlternation() string {
	quoted := make([]string, len(fieldTags))
	for i, t := range fieldTags {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return strings.Join(quoted, "|")
}

// Classify 对一行（已去除行尾换行符）做分类；无匹配时返回 KindUnknown。
func Classify(text string) Line {
	for _, r := range rules {
		m := r.re.FindStringSubmatchIndex(text)
		if m == nil {
			continue
		}
		ln := Line{Kind: r.kind, Text: text}
		switch r.kind {
		case KindVersion:
			ln.Version = text[m[2]:m[3]]
		case KindField:
			ln.Tag = text[m[2]:m[3]]
			if m[4] >= 0 {
				ln.HasOptions = true
				ln.Options = text[m[6]:m[7]]
			}
			ln.Value = text[m[8]:m[9]]
		case KindContinuation:
			ln.Data = text[m[2]:m[3]]
		}
		return ln
	}
	return Line{Kind: KindUnknown, Text: text}
}
