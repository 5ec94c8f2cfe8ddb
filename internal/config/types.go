package config

import "gopkg.in/yaml.v3"

// Config: 运行期只读配置（一次解析，运行期不变）。
// YAML 使用 snake_case；未知字段在解析期失败。
type Config struct {
	// Inputs/Output 仅来自命令行位置参数。
	Inputs []string `yaml:"-"`
	Output string   `yaml:"-"`

	Logging Logging `yaml:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `yaml:"components"`

	// 各组件 Options 子树，原样传入工厂。
	Options Options `yaml:"options"`
}

// Logging: 日志级别/格式/输出文件（空为 stderr）。
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader  string `yaml:"reader"`
	Parser  string `yaml:"parser"`
	Encoder string `yaml:"encoder"`
	Writer  string `yaml:"writer"`
}

// Options: 各组件的原样 YAML Options。
type Options struct {
	Reader  *yaml.Node `yaml:"reader,omitempty"`
	Parser  *yaml.Node `yaml:"parser,omitempty"`
	Encoder *yaml.Node `yaml:"encoder,omitempty"`
	Writer  *yaml.Node `yaml:"writer,omitempty"`
}
