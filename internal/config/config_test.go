package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcf2json/pkg/contract"
)

const sample = `
logging:
  level: info
  format: text
components:
  parser: vcard
options:
  parser:
    unterminated: commit
    extra_keys:
      - {tag: TEL, options: FAX, key: phone_fax}
  encoder:
    indent: 2
`

func TestLoad(t *testing.T) {
	cfg, err := Load("", []byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "vcard", cfg.Components.Parser)
	require.NotNil(t, cfg.Options.Parser)
	require.NotNil(t, cfg.Options.Encoder)
	assert.Nil(t, cfg.Options.Reader)
}

func TestLoadUnknown(t *testing.T) {
	_, err := Load("", []byte("unknown: 1\n"))
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	_, err = Load("", []byte("logging:\n  colour: red\n"))
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	// 位置参数不可由配置文件提供
	_, err = Load("", []byte("inputs: [a.vcf]\n"))
	assert.Error(t, err)
}

// options 子树的键由组件自行校验，加载阶段原样保留。
func TestLoadOptionsSubtree(t *testing.T) {
	cfg, err := Load("", []byte(sample))
	require.NoError(t, err)
	var popts struct {
		Unterminated string              `yaml:"unterminated"`
		ExtraKeys    []map[string]string `yaml:"extra_keys"`
	}
	require.NoError(t, cfg.Options.Parser.Decode(&popts))
	assert.Equal(t, "commit", popts.Unterminated)
	require.Len(t, popts.ExtraKeys, 1)
	assert.Equal(t, "phone_fax", popts.ExtraKeys[0]["key"])

	_, err = Load("", []byte("options:\n  splitter:\n    size: 1\n"))
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	_, err = Load("", []byte("components:\n  decoder: srt\n"))
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	_, err = Load("", []byte("logging: loud\n"))
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	_, err = Load("", []byte("- a\n- b\n"))
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

func TestLoadEmpty(t *testing.T) {
	_, err := Load("", nil)
	assert.Error(t, err)
	cfg, err := Load("", []byte("# only a comment\n"))
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, DefaultPath)
	_, found, err := LoadOptional(p)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, os.WriteFile(p, []byte(sample), 0o644))
	cfg, found, err := LoadOptional(p)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, os.WriteFile(p, []byte("bogus: true\n"), 0o644))
	_, found, err = LoadOptional(p)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestMerge(t *testing.T) {
	file, err := Load("", []byte(sample))
	require.NoError(t, err)
	cfg := Merge(Defaults(), file)
	cfg = Merge(cfg, Config{Inputs: []string{"in.vcf"}, Output: " out.json ", Logging: Logging{Level: "debug"}})

	assert.Equal(t, []string{"in.vcf"}, cfg.Inputs)
	assert.Equal(t, "out.json", cfg.Output)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "fs", cfg.Components.Reader)
	assert.Equal(t, "json", cfg.Components.Encoder)
	assert.NotNil(t, cfg.Options.Parser)

	// 空值不覆盖
	same := Merge(cfg, Config{})
	assert.Equal(t, cfg, same)
}

func TestValidate(t *testing.T) {
	ok := Merge(Defaults(), Config{Inputs: []string{"in.vcf"}, Output: "out.json"})
	require.NoError(t, Validate(ok))

	cases := map[string]func(c *Config){
		"no inputs":   func(c *Config) { c.Inputs = nil },
		"empty input": func(c *Config) { c.Inputs = []string{" "} },
		"dash mix":    func(c *Config) { c.Inputs = []string{"-", "a.vcf"} },
		"no output":   func(c *Config) { c.Output = "" },
		"overwrite":   func(c *Config) { c.Output = "./in.vcf" },
		"level":       func(c *Config) { c.Logging.Level = "loud" },
		"format":      func(c *Config) { c.Logging.Format = "xml" },
		"reader":      func(c *Config) { c.Components.Reader = "s3" },
		"parser":      func(c *Config) { c.Components.Parser = "ldif" },
		"encoder":     func(c *Config) { c.Components.Encoder = "csv" },
		"writer":      func(c *Config) { c.Components.Writer = "s3" },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			c := ok
			c.Inputs = cloneStrings(ok.Inputs)
			mut(&c)
			assert.ErrorIs(t, Validate(c), contract.ErrInvalidInput)
		})
	}

	stdio := Merge(Defaults(), Config{Inputs: []string{"-"}, Output: "-"})
	assert.NoError(t, Validate(stdio))
}

func TestAssemble(t *testing.T) {
	file, err := Load("", []byte(sample))
	require.NoError(t, err)
	cfg := Merge(Merge(Defaults(), file), Config{Inputs: []string{"in.vcf"}, Output: "out.json"})
	comp, set, err := Assemble(cfg)
	require.NoError(t, err)
	assert.NotNil(t, comp.Reader)
	assert.NotNil(t, comp.Parser)
	assert.NotNil(t, comp.Encoder)
	assert.NotNil(t, comp.Writer)
	assert.Equal(t, []string{"in.vcf"}, set.Inputs)
	assert.Equal(t, "out.json", set.Output)
}

func TestAssembleBadOptions(t *testing.T) {
	file, err := Load("", []byte("options:\n  parser:\n    unterminated: maybe\n"))
	require.NoError(t, err)
	cfg := Merge(Merge(Defaults(), file), Config{Inputs: []string{"in.vcf"}, Output: "out.json"})
	_, _, err = Assemble(cfg)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	assert.ErrorContains(t, err, "options.parser")

	file, err = Load("", []byte("options:\n  writer:\n    output_dir: out\n"))
	require.NoError(t, err)
	cfg = Merge(Merge(Defaults(), file), Config{Inputs: []string{"in.vcf"}, Output: "out.json"})
	_, _, err = Assemble(cfg)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

// 模板须能被严格加载、校验并装配。
func TestTemplateRoundTrip(t *testing.T) {
	b, err := Template()
	require.NoError(t, err)
	cfg, err := Load("", b)
	require.NoError(t, err)
	require.NotNil(t, cfg.Options.Reader)
	require.NotNil(t, cfg.Options.Writer)
	cfg = Merge(cfg, Config{Inputs: []string{"in.vcf"}, Output: "out.json"})
	_, _, err = Assemble(cfg)
	assert.NoError(t, err)
}
