package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cfgpkg "vcf2json/internal/config"
	"vcf2json/internal/diag"
	"vcf2json/internal/pipeline"
)

var pipelineRun = pipeline.Run

// exitError 携带退出码：1 运行期失败，3 配置/用法错误。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// CLI：vcf2json [-v]... vcf_file json_file
// 可选读取工作目录下的 vcf2json.yaml；"-" 表示 STDIN/STDOUT。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	cmd := newRootCmd(stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// cobra 自身的参数/旗标错误
	fprintf(stderr, "用法错误: %v\n", err)
	fprintf(stderr, "%s", cmd.UsageString())
	return 3
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	var verbose int
	cmd := &cobra.Command{
		Use:           "vcf2json [-v]... vcf_file json_file",
		Short:         "将 vCard 联系人文件转换为 JSON 数组",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return convert(cmd.Context(), args[0], args[1], verbose, stderr)
		},
	}
	cmd.Flags().CountVarP(&verbose, "verbose", "v", "提高日志详细程度（-v info，-vv debug），并开启终端进度提示")
	return cmd
}

// verbosityLevel: 0 保持配置级别；1 info；≥2 debug。
func verbosityLevel(v int) string {
	switch {
	case v <= 0:
		return ""
	case v == 1:
		return "info"
	default:
		return "debug"
	}
}

func convert(ctx context.Context, input, output string, verbose int, stderr io.Writer) error {
	start := time.Now()
	corrID := uuid.NewString()
	logger := diag.NewLogger(corrID, "warn")
	fail := func(code int, prefix string, err error) error {
		fprintf(stderr, "%s: %v\n", prefix, err)
		logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
		return &exitError{code: code, err: err}
	}

	cfg := cfgpkg.Defaults()
	base, found, err := cfgpkg.LoadOptional(cfgpkg.DefaultPath)
	if err != nil {
		return fail(3, "配置解析失败", err)
	}
	if found {
		cfg = cfgpkg.Merge(cfg, base)
	}

	// CLI 覆盖
	var over cfgpkg.Config
	over.Inputs = []string{input}
	over.Output = output
	over.Logging.Level = verbosityLevel(verbose)
	cfg = cfgpkg.Merge(cfg, over)

	if err := cfgpkg.Validate(cfg); err != nil {
		_ = dumpConfig(stderr, cfg)
		return fail(3, "配置校验失败", err)
	}
	if err := diag.Setup(diag.LogOptions{Level: cfg.Logging.Level, Format: cfg.Logging.Format, File: cfg.Logging.File}); err != nil {
		return fail(3, "日志初始化失败", err)
	}
	logger = diag.NewLogger(corrID, cfg.Logging.Level)

	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		return fail(3, "装配失败", err)
	}

	// 终端信息提示（非日志）：-v 起开启
	term := diag.NewTerminal(stderr, verbose > 0)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)

	logger.DebugStart("config", "effective", "", map[string]string{
		"config_file":   foundText(found),
		"input":         input,
		"output":        output,
		"reader":        cfg.Components.Reader,
		"parser":        cfg.Components.Parser,
		"encoder":       cfg.Components.Encoder,
		"writer":        cfg.Components.Writer,
		"log_level":     cfg.Logging.Level,
		"log_format":    cfg.Logging.Format,
		"verbose_count": fmt.Sprintf("%d", verbose),
	})

	t := logger.Start("pipeline", "run")
	if err := pipelineRun(ctx, comp, set, logger); err != nil {
		// 错误事件与计数已由 pipeline 按阶段记录，此处只提示用户
		if !errors.Is(err, context.Canceled) {
			fprintf(stderr, "运行失败: %v\n", err)
		}
		return &exitError{code: 1, err: err}
	}
	t.Finish("run", 0)
	diag.IncOp("pipeline", "finish", "success")
	diag.ObserveDuration("pipeline", "finish", time.Since(start).Milliseconds())
	return nil
}

func foundText(found bool) string {
	if found {
		return cfgpkg.DefaultPath
	}
	return "-"
}

func fprintf(w io.Writer, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

// dumpConfig 打印有效配置（YAML），便于诊断。
func dumpConfig(w io.Writer, c cfgpkg.Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	var sb strings.Builder
	sb.WriteString("有效配置:\n")
	sb.Write(b)
	fprintf(w, "%s", sb.String())
	return nil
}
