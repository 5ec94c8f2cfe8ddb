package vcard

import (
	govcard "github.com/emersion/go-vcard"

	"vcf2json/pkg/contract"
)

// 规范键（JSON 输出属性名）。
const (
	KeyPhoneCell    = "phone_cell"
	KeyPhoneHome    = "phone_home"
	KeyPhoneWork    = "phone_work"
	KeyPhoneVoice   = "phone_voice"
	KeyEmailWork    = "email_work"
	KeyEmailHome    = "email_home"
	KeyName         = "name"
	KeyFullName     = "full_name"
	KeyBirthday     = "birthday"
	KeyOrganization = "organization"
	KeyURL          = "url"
	KeyAddress      = "adr"
	// KeyPhoto 为 PHOTO 续行缓冲的固定落点，不经查表。
	KeyPhoto = "photo"
)

const (
	tel   = govcard.FieldTelephone
	email = govcard.FieldEmail
)

// defaultKeys: (tag, options) -> 规范键。运行期只读。
var defaultKeys = map[contract.FieldKey]string{
	contract.WithOptions(tel, "CELL"):      KeyPhoneCell,
	contract.WithOptions(tel, "CELL;PREF"): KeyPhoneCell,
	contract.WithOptions(tel, "X-Mobil"):   KeyPhoneCell,
	contract.WithOptions(tel, "HOME"):      KeyPhoneHome,
	contract.WithOptions(tel, "HOME;PREF"): KeyPhoneHome,
	contract.WithOptions(tel, "WORK"):      KeyPhoneWork,
	contract.WithOptions(tel, "WORK;FAX"):  KeyPhoneWork,
	contract.WithOptions(tel, "VOICE"):     KeyPhoneVoice,

	contract.WithOptions(email, "WORK"):       KeyEmailWork,
	contract.WithOptions(email, "HOME"):       KeyEmailHome,
	contract.WithOptions(email, "X-INTERNET"): KeyEmailHome,

	contract.Plain(govcard.FieldName):          KeyName,
	contract.Plain(govcard.FieldFormattedName): KeyFullName,
	contract.Plain(govcard.FieldBirthday):      KeyBirthday,
	contract.Plain(govcard.FieldOrganization):  KeyOrganization,
	contract.Plain(govcard.FieldURL):           KeyURL,
	contract.Plain(govcard.FieldAddress):       KeyAddress,
}

// KeyMap 为字段键解析器：纯查表，精确匹配。
type KeyMap struct {
	m map[contract.FieldKey]string
}

// NewKeyMap 以默认表为底，叠加 extra（同键覆盖）。默认表本身不被修改。
func NewKeyMap(extra map[contract.FieldKey]string) *KeyMap {
	m := make(map[contract.FieldKey]string, len(defaultKeys)+len(extra))
	for k, v := range defaultKeys {
		m[k] = v
	}
	for k, v := range extra {
		m[k] = v
	}
	return &KeyMap{m: m}
}

// Resolve 返回规范键；未命中时 ok=false。
func (km *KeyMap) Resolve(k contract.FieldKey) (string, bool) {
	v, ok := km.m[k]
	return v, ok
}

// Len 返回表项数量。
func (km *KeyMap) Len() int { return len(km.m) }
