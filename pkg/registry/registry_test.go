package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"vcf2json/pkg/contract"
)

func node(t *testing.T, s string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(s), &doc))
	if doc.Kind == yaml.DocumentNode {
		return doc.Content[0]
	}
	return &doc
}

// TestStrictDecode 验证严格解码逻辑。
func TestStrictDecode(t *testing.T) {
	type opt struct {
		A int `yaml:"a"`
	}
	var o opt
	require.NoError(t, strictDecode(nil, &o))
	assert.Equal(t, 0, o.A)
	require.NoError(t, strictDecode(&yaml.Node{}, &o))
	require.NoError(t, strictDecode(node(t, "a: 1"), &o))
	assert.Equal(t, 1, o.A)
	assert.ErrorIs(t, strictDecode(node(t, "a: 1\nb: 2"), &o), contract.ErrInvalidInput)
	assert.ErrorIs(t, strictDecode(node(t, "a: [1]"), &o), contract.ErrInvalidInput)
}

// TestFactories 遍历注册表入口：默认选项可构造，未知字段报错。
func TestFactories(t *testing.T) {
	type factory func(*yaml.Node) error
	cases := map[string]factory{
		"reader/fs":    func(n *yaml.Node) error { _, err := Reader["fs"](n); return err },
		"parser/vcard": func(n *yaml.Node) error { _, err := Parser["vcard"](n); return err },
		"encoder/json": func(n *yaml.Node) error { _, err := Encoder["json"](n); return err },
		"writer/fs":    func(n *yaml.Node) error { _, err := Writer["fs"](n); return err },
	}
	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, f(nil))
			assert.NoError(t, f(node(t, "{}")))
			assert.Error(t, f(node(t, "x: 1")))
		})
	}
}

func TestParserOptions(t *testing.T) {
	p, err := Parser["vcard"](node(t, `
unterminated: commit
default_charset: iso-8859-1
qp_soft_breaks: false
extra_keys:
  - {tag: TEL, options: FAX, key: phone_fax}
  - {tag: X-ANDROID-CUSTOM, key: android_custom}
`))
	require.NoError(t, err)
	assert.NotNil(t, p)

	_, err = Parser["vcard"](node(t, "unterminated: maybe"))
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}
