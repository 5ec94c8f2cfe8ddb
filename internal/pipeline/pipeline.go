package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"vcf2json/internal/diag"
	"vcf2json/pkg/contract"
)

// - 单线程顺序执行：逐文件解析，记录按输入顺序累积；全部成功后一次性编码写出。
// - 首错返回：任一阶段出错即中止，Writer 不被调用（不留下部分输出）。
// - 可恢复异常由 Parser 以告警返回，逐条写入日志，不影响结果。

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader  contract.Reader
	Parser  contract.Parser
	Encoder contract.Encoder
	Writer  contract.Writer
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	// Inputs: 输入根（文件/目录/"-"）。
	Inputs []string
	// Output: 输出路径（"-" 为 STDOUT）。
	Output string
}

// Run 执行完整流水线：Reader → Parser → Encoder → Writer。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) error {
	if err := sanity(comp, set); err != nil {
		return fmt.Errorf("sanity: %w", err)
	}
	runStart := time.Now()
	term := diag.GetTerminal()
	term.RunStart(set.Output)
	ok := false
	var written int64
	defer func() { term.RunFinish(ok, written, time.Since(runStart)) }()

	var all []*contract.Record
	rtimer := logger.Start("reader", "iterate")
	files := 0
	err := comp.Reader.Iterate(ctx, set.Inputs, func(fid contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		files++
		recs, err := parseOne(ctx, comp.Parser, fid, rc, logger)
		if err != nil {
			return err
		}
		all = append(all, recs...)
		return nil
	})
	if err != nil {
		fail(logger, "reader", "iterate failed", "", err)
		return fmt.Errorf("reader iterate: %w", err)
	}
	rtimer.Finish("iterate", int64(files))
	diag.IncOp("reader", "finish", "success")

	etimer := logger.Start("encoder", "encode")
	r, err := comp.Encoder.Encode(ctx, all)
	if err != nil {
		fail(logger, "encoder", "encode failed", "", err)
		return fmt.Errorf("encoder encode: %w", err)
	}
	etimer.Finish("encode", int64(len(all)))
	diag.IncOp("encoder", "finish", "success")

	wtimer := logger.StartWith("writer", "write", set.Output)
	cr := &countingReader{r: r}
	if err := comp.Writer.Write(ctx, contract.ArtifactID(set.Output), cr); err != nil {
		fail(logger, "writer", "write failed", set.Output, err)
		return fmt.Errorf("writer write: %w", err)
	}
	written = cr.n
	wtimer.Finish("write", written)
	diag.IncOp("writer", "finish", "success")
	diag.ObserveDuration("pipeline", "run", time.Since(runStart).Milliseconds())
	ok = true
	return nil
}

// parseOne 解析单个输入并输出其告警。
func parseOne(ctx context.Context, p contract.Parser, fid contract.FileID, rc io.ReadCloser, logger *diag.Logger) ([]*contract.Record, error) {
	term := diag.GetTerminal()
	size := int64(-1)
	if s, ok := rc.(interface{ Size() int64 }); ok {
		size = s.Size()
	}
	term.FileStart(string(fid), size)
	start := time.Now()
	ptimer := logger.StartWith("parser", "parse", string(fid))
	cr := &countingReader{r: rc, progress: term.FileProgress}
	recs, warns, err := p.Parse(ctx, fid, cr)
	for _, w := range warns {
		logger.Warning("parser", w)
		diag.IncWarning(string(w.Kind))
	}
	if err != nil {
		term.FileFinish(false, 0, len(warns), time.Since(start))
		fail(logger, "parser", "parse failed", string(fid), err)
		return nil, fmt.Errorf("parser parse %s: %w", fid, err)
	}
	ptimer.Finish("parse", int64(len(recs)))
	diag.IncOp("parser", "finish", "success")
	diag.ObserveDuration("parser", "parse", time.Since(start).Milliseconds())
	term.FileFinish(true, len(recs), len(warns), time.Since(start))
	return recs, nil
}

// fail 记录 error 事件与计数。
func fail(logger *diag.Logger, comp, msg, fileID string, err error) {
	code := diag.Classify(err)
	logger.ErrorWith(comp, string(code), msg+": "+err.Error(), nil, fileID)
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
}

func sanity(c Components, s Settings) error {
	if c.Reader == nil || c.Parser == nil || c.Encoder == nil || c.Writer == nil {
		return errors.New("pipeline: missing components")
	}
	if len(s.Inputs) == 0 {
		return errors.New("pipeline: empty inputs")
	}
	if s.Output == "" {
		return errors.New("pipeline: empty output")
	}
	return nil
}

// countingReader 统计已读字节；progress 非空时每次读取后回调。
type countingReader struct {
	r        io.Reader
	n        int64
	progress func(int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.progress != nil && n > 0 {
		c.progress(c.n)
	}
	return n, err
}
