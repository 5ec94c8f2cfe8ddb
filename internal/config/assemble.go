package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"vcf2json/internal/diag"
	"vcf2json/internal/pipeline"
	"vcf2json/pkg/contract"
	"vcf2json/pkg/registry"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: config: %s", contract.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if len(cfg.Inputs) == 0 {
		return invalid("inputs empty")
	}
	// 输入路径不得为空字符串；"-" 不能与其他根混用
	dash := false
	for _, r := range cfg.Inputs {
		r = strings.TrimSpace(r)
		if r == "" {
			return invalid("input path cannot be empty")
		}
		if r == "-" {
			dash = true
		}
	}
	if dash && len(cfg.Inputs) > 1 {
		return invalid("'-' cannot be mixed with other roots")
	}
	out := strings.TrimSpace(cfg.Output)
	if out == "" {
		return invalid("output path cannot be empty")
	}
	if out != "-" {
		for _, r := range cfg.Inputs {
			if filepath.Clean(r) == filepath.Clean(out) {
				return invalid("output %q would overwrite input", out)
			}
		}
	}
	if _, err := diag.ParseLevel(cfg.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Format)) {
	case "", "json", "text", "plain", "plaintext", "color":
	default:
		return invalid("logging.format %q", cfg.Logging.Format)
	}
	d := Defaults().Components
	if name := effName(cfg.Components.Reader, d.Reader); registry.Reader[name] == nil {
		return invalid("reader %q not registered", name)
	}
	if name := effName(cfg.Components.Parser, d.Parser); registry.Parser[name] == nil {
		return invalid("parser %q not registered", name)
	}
	if name := effName(cfg.Components.Encoder, d.Encoder); registry.Encoder[name] == nil {
		return invalid("encoder %q not registered", name)
	}
	if name := effName(cfg.Components.Writer, d.Writer); registry.Writer[name] == nil {
		return invalid("writer %q not registered", name)
	}
	return nil
}

// Assemble 构造 Components 与 Settings。
// 严格 Options 解析在 registry（工厂）层进行；此处只传原样子树。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	d := Defaults().Components

	r, err := registry.Reader[effName(cfg.Components.Reader, d.Reader)](cfg.Options.Reader)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("options.reader: %w", err)
	}
	p, err := registry.Parser[effName(cfg.Components.Parser, d.Parser)](cfg.Options.Parser)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("options.parser: %w", err)
	}
	e, err := registry.Encoder[effName(cfg.Components.Encoder, d.Encoder)](cfg.Options.Encoder)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("options.encoder: %w", err)
	}
	w, err := registry.Writer[effName(cfg.Components.Writer, d.Writer)](cfg.Options.Writer)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("options.writer: %w", err)
	}

	comp := pipeline.Components{Reader: r, Parser: p, Encoder: e, Writer: w}
	set := pipeline.Settings{
		Inputs: cloneStrings(cfg.Inputs),
		Output: strings.TrimSpace(cfg.Output),
	}
	return comp, set, nil
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
