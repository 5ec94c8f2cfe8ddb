package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcf2json/internal/diag"
	"vcf2json/pkg/contract"
	ejson "vcf2json/plugins/encoder/jsonarray"
	pvcf "vcf2json/plugins/parser/vcard"
)

// 通用桩件 ----------------------------------------------------
type stubReader struct {
	files map[contract.FileID]string
	order []contract.FileID
	err   error
}

func newStubReader(kv ...string) *stubReader {
	r := &stubReader{files: map[contract.FileID]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		id := contract.FileID(kv[i])
		r.files[id] = kv[i+1]
		r.order = append(r.order, id)
	}
	return r
}

func (s *stubReader) Iterate(ctx context.Context, roots []string, yield func(contract.FileID, io.ReadCloser) error) error {
	if s.err != nil {
		return s.err
	}
	for _, id := range s.order {
		if err := yield(id, io.NopCloser(strings.NewReader(s.files[id]))); err != nil {
			return err
		}
	}
	return nil
}

type stubWriter struct {
	called int
	id     contract.ArtifactID
	out    strings.Builder
	err    error
}

func (w *stubWriter) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	w.called++
	w.id = id
	if w.err != nil {
		return w.err
	}
	_, err := io.Copy(&w.out, r)
	return err
}

type failEncoder struct{}

func (failEncoder) Encode(context.Context, []*contract.Record) (io.Reader, error) {
	return nil, errors.New("encode boom")
}

type recSink struct{ warns, errs []string }

func (s *recSink) Debugw(string, ...interface{})        {}
func (s *recSink) Infow(string, ...interface{})         {}
func (s *recSink) Warnw(msg string, kv ...interface{})  { s.warns = append(s.warns, msg) }
func (s *recSink) Errorw(msg string, kv ...interface{}) { s.errs = append(s.errs, fmt.Sprint(msg, kv)) }

func components(t *testing.T, r contract.Reader, w contract.Writer, popts *pvcf.Options) Components {
	t.Helper()
	p, err := pvcf.New(popts)
	require.NoError(t, err)
	e, err := ejson.New(nil)
	require.NoError(t, err)
	return Components{Reader: r, Parser: p, Encoder: e, Writer: w}
}

var set = Settings{Inputs: []string{"in.vcf"}, Output: "out.json"}

func TestRunSingleRecord(t *testing.T) {
	w := &stubWriter{}
	comp := components(t, newStubReader("in.vcf", "BEGIN:VCARD\nN:Doe;John;;;\nTEL;CELL:555-1234\nEND:VCARD\n"), w, nil)
	require.NoError(t, Run(context.Background(), comp, set, nil))
	assert.Equal(t, contract.ArtifactID("out.json"), w.id)
	assert.Equal(t, `[
    {
        "name": [
            "Doe;John;;;"
        ],
        "phone_cell": [
            "555-1234"
        ]
    }
]
`, w.out.String())
}

// 多个输入的记录按输入顺序拼接到同一数组。
func TestRunMultipleFiles(t *testing.T) {
	w := &stubWriter{}
	comp := components(t, newStubReader(
		"a.vcf", "BEGIN:VCARD\nFN:A\nEND:VCARD\n",
		"b.vcf", "BEGIN:VCARD\nFN:B\nEND:VCARD\nBEGIN:VCARD\nFN:C\nEND:VCARD\n",
	), w, nil)
	require.NoError(t, Run(context.Background(), comp, set, nil))
	out := w.out.String()
	ia, ib, ic := strings.Index(out, `"A"`), strings.Index(out, `"B"`), strings.Index(out, `"C"`)
	assert.True(t, ia > 0 && ia < ib && ib < ic, out)
}

func TestRunEmptyInput(t *testing.T) {
	w := &stubWriter{}
	comp := components(t, newStubReader("in.vcf", ""), w, nil)
	require.NoError(t, Run(context.Background(), comp, set, nil))
	assert.Equal(t, "[]\n", w.out.String())
}

func TestRunWarningsLogged(t *testing.T) {
	diag.ResetMetrics()
	sink := &recSink{}
	logger := diag.NewLoggerWith("c", "warn", sink)
	w := &stubWriter{}
	comp := components(t, newStubReader("in.vcf", "BEGIN:VCARD\nTEL;FAX:1\nNOTE:x\nEND:VCARD\n"), w, nil)
	require.NoError(t, Run(context.Background(), comp, set, logger))
	require.Len(t, sink.warns, 2)
	assert.Contains(t, sink.warns[0], "in.vcf:2")
	assert.Equal(t, int64(1), diag.Counter("warning_total", string(contract.WarnUnmappedKey)))
	assert.Equal(t, int64(1), diag.Counter("warning_total", string(contract.WarnUnrecognized)))
	assert.Equal(t, "[\n    {}\n]\n", w.out.String())
}

// 解析失败时不写输出。
func TestRunParserErrorNoOutput(t *testing.T) {
	diag.ResetMetrics()
	sink := &recSink{}
	w := &stubWriter{}
	comp := components(t, newStubReader("in.vcf", "BEGIN:VCARD\nPHOTO:AAAA\nEND:VCARD\n"), w, &pvcf.Options{Unterminated: "error"})
	err := Run(context.Background(), comp, set, diag.NewLoggerWith("c", "warn", sink))
	assert.ErrorIs(t, err, contract.ErrProtocolViolation)
	assert.Equal(t, 0, w.called)
	require.NotEmpty(t, sink.errs)
	assert.Equal(t, int64(1), diag.Counter("error_total", "parser", string(diag.CodeProtocol)))
}

func TestRunReaderError(t *testing.T) {
	w := &stubWriter{}
	r := &stubReader{err: contract.ErrPathInvalid}
	comp := components(t, r, w, nil)
	err := Run(context.Background(), comp, set, nil)
	assert.ErrorIs(t, err, contract.ErrPathInvalid)
	assert.Equal(t, 0, w.called)
}

func TestRunEncoderError(t *testing.T) {
	w := &stubWriter{}
	comp := components(t, newStubReader("in.vcf", ""), w, nil)
	comp.Encoder = failEncoder{}
	err := Run(context.Background(), comp, set, nil)
	assert.ErrorContains(t, err, "encode boom")
	assert.Equal(t, 0, w.called)
}

func TestRunWriterError(t *testing.T) {
	w := &stubWriter{err: io.ErrShortWrite}
	comp := components(t, newStubReader("in.vcf", ""), w, nil)
	err := Run(context.Background(), comp, set, nil)
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

func TestRunCtxCancel(t *testing.T) {
	w := &stubWriter{}
	comp := components(t, newStubReader("in.vcf", "BEGIN:VCARD\n"), w, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, comp, set, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunTerminal(t *testing.T) {
	var sb strings.Builder
	diag.SetTerminal(diag.NewTerminal(&sb, true))
	defer diag.SetTerminal(nil)
	w := &stubWriter{}
	comp := components(t, newStubReader("in.vcf", "BEGIN:VCARD\nFN:A\nEND:VCARD\n"), w, nil)
	require.NoError(t, Run(context.Background(), comp, set, nil))
	out := sb.String()
	assert.Contains(t, out, "[run] 输出=out.json")
	assert.Contains(t, out, "[done] in.vcf | 记录 1 | 告警 0")
	assert.Contains(t, out, "[ok] 全部完成 | 文件 1 | 记录 1")
}

func TestSanity(t *testing.T) {
	comp := components(t, newStubReader(), &stubWriter{}, nil)
	assert.Error(t, Run(context.Background(), Components{}, set, nil))
	assert.Error(t, Run(context.Background(), comp, Settings{Output: "x"}, nil))
	assert.Error(t, Run(context.Background(), comp, Settings{Inputs: []string{"x"}}, nil))
}

func TestCountingReader(t *testing.T) {
	var seen []int64
	cr := &countingReader{r: strings.NewReader("hello world"), progress: func(n int64) { seen = append(seen, n) }}
	b, err := io.ReadAll(cr)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(b))
	assert.Equal(t, int64(11), cr.n)
	require.NotEmpty(t, seen)
	assert.Equal(t, int64(11), seen[len(seen)-1])
}
