package config

import (
	"gopkg.in/yaml.v3"

	ejson "vcf2json/plugins/encoder/jsonarray"
	pvcf "vcf2json/plugins/parser/vcard"
	rfs "vcf2json/plugins/reader/filesystem"
	wfs "vcf2json/plugins/writer/filesystem"
)

// DefaultTemplateConfig 返回包含全部可配置键的默认配置模板（值为实现默认）。
func DefaultTemplateConfig() (Config, error) {
	cfg := Defaults()
	on := true
	var err error
	if cfg.Options.Reader, err = node(rfs.Options{
		BufSize:         64 * 1024,
		Exts:            rfs.DefaultExts,
		ExcludeDirNames: []string{".git"},
	}); err != nil {
		return Config{}, err
	}
	if cfg.Options.Parser, err = node(pvcf.Options{
		Unterminated:   "discard",
		DefaultCharset: "utf-8",
		QPSoftBreaks:   &on,
		ExtraKeys:      []pvcf.KeyRule{},
	}); err != nil {
		return Config{}, err
	}
	if cfg.Options.Encoder, err = node(ejson.Options{Indent: 4}); err != nil {
		return Config{}, err
	}
	if cfg.Options.Writer, err = node(wfs.Options{
		Atomic:     &on,
		PermFile:   0o644,
		PermDir:    0o755,
		BufSize:    64 * 1024,
		CreateDirs: false,
	}); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Template 渲染模板为 YAML 文本（写入 vcf2json.yaml 即可使用）。
func Template() ([]byte, error) {
	cfg, err := DefaultTemplateConfig()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(cfg)
}

func node(v any) (*yaml.Node, error) {
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return n, nil
}
