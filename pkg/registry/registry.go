package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"vcf2json/pkg/contract"
	ejson "vcf2json/plugins/encoder/jsonarray"
	pvcf "vcf2json/plugins/parser/vcard"
	rfs "vcf2json/plugins/reader/filesystem"
	wfs "vcf2json/plugins/writer/filesystem"
)

// strictDecode: 以 KnownFields 严格解码 YAML 子树，拒绝未知字段。
// node 为 nil 或空时保持零值（默认选项）。
func strictDecode(node *yaml.Node, v any) error {
	if node == nil || node.Kind == 0 {
		return nil
	}
	b, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", contract.ErrInvalidInput, err)
	}
	return nil
}

// NewReader 工厂签名：接收原样 YAML Options。
type NewReader func(node *yaml.Node) (contract.Reader, error)

// NewParser 工厂签名：接收原样 YAML Options。
type NewParser func(node *yaml.Node) (contract.Parser, error)

// NewEncoder 工厂签名：接收原样 YAML Options。
type NewEncoder func(node *yaml.Node) (contract.Encoder, error)

// NewWriter 工厂签名：接收原样 YAML Options。
type NewWriter func(node *yaml.Node) (contract.Writer, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 文件/目录/STDIN Reader
	"fs": func(node *yaml.Node) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
}

// Parser 工厂注册表。
var Parser = map[string]NewParser{
	// vcard: 逐行 vCard 解析
	"vcard": func(node *yaml.Node) (contract.Parser, error) {
		var opts pvcf.Options
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		return pvcf.New(&opts)
	},
}

// Encoder 工厂注册表。
var Encoder = map[string]NewEncoder{
	"json": func(node *yaml.Node) (contract.Encoder, error) {
		var opts ejson.Options
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		return ejson.New(&opts)
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件（原子替换可配置）或 STDOUT
	"fs": func(node *yaml.Node) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
}
