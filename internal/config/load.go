package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"vcf2json/pkg/contract"
)

// DefaultPath 为工作目录下的可选配置文件。
const DefaultPath = "vcf2json.yaml"

// Defaults 返回带有安全默认值的 Config 雏形。
func Defaults() Config {
	return Config{
		Logging: Logging{Level: "warn", Format: "json"},
		Components: Components{
			Reader:  "fs",
			Parser:  "vcard",
			Encoder: "json",
			Writer:  "fs",
		},
	}
}

// Load 从文件路径或原始 YAML 解析 Config（本层未知字段报错）。空文档视为零值。
func Load(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	// 先解析为节点树，仅对本层已知段做键校验；options.* 子树原样保留，
	// 由 registry 按各组件 Options 严格解码。
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("%w: config %s: %v", contract.ErrInvalidInput, path, err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return Config{}, nil
		}
		root = root.Content[0]
	}
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return Config{}, nil
	}
	if err := checkKeys(root, ""); err != nil {
		return Config{}, fmt.Errorf("%w: config %s: %v", contract.ErrInvalidInput, path, err)
	}
	if err := root.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: config %s: %v", contract.ErrInvalidInput, path, err)
	}
	return cfg, nil
}

// knownKeys: 各段允许的键；options 下的值不在此校验。
var knownKeys = map[string][]string{
	"":           {"logging", "components", "options"},
	"logging":    {"level", "format", "file"},
	"components": {"reader", "parser", "encoder", "writer"},
	"options":    {"reader", "parser", "encoder", "writer"},
}

// checkKeys 校验 section 映射中的键，并递归到根下的已知段。
func checkKeys(n *yaml.Node, section string) error {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: %s must be a mapping", n.Line, sectionName(section))
	}
	allowed := knownKeys[section]
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if !contains(allowed, k.Value) {
			return fmt.Errorf("line %d: field %s not found in %s", k.Line, k.Value, sectionName(section))
		}
		if section == "" {
			if err := checkKeys(v, k.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func sectionName(s string) string {
	if s == "" {
		return "config"
	}
	return s
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// LoadOptional 在 path 存在时加载；不存在返回 found=false。
func LoadOptional(path string) (cfg Config, found bool, err error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, false, nil
		}
		return Config{}, false, err
	}
	cfg, err = Load(path, nil)
	return cfg, err == nil, err
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样子树为“替换”；不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if len(over.Inputs) > 0 {
		out.Inputs = cloneStrings(over.Inputs)
	}
	if strings.TrimSpace(over.Output) != "" {
		out.Output = strings.TrimSpace(over.Output)
	}
	if v := strings.TrimSpace(over.Logging.Level); v != "" {
		out.Logging.Level = v
	}
	if v := strings.TrimSpace(over.Logging.Format); v != "" {
		out.Logging.Format = v
	}
	if v := strings.TrimSpace(over.Logging.File); v != "" {
		out.Logging.File = v
	}

	// 组件名（空不覆盖）
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Parser != "" {
		out.Components.Parser = over.Components.Parser
	}
	if over.Components.Encoder != "" {
		out.Components.Encoder = over.Components.Encoder
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}

	// Options（完整替换对应键）
	if over.Options.Reader != nil {
		out.Options.Reader = over.Options.Reader
	}
	if over.Options.Parser != nil {
		out.Options.Parser = over.Options.Parser
	}
	if over.Options.Encoder != nil {
		out.Options.Encoder = over.Options.Encoder
	}
	if over.Options.Writer != nil {
		out.Options.Writer = over.Options.Writer
	}
	return out
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
