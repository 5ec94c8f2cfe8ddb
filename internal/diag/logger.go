package diag

import (
	"fmt"
	"strings"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"vcf2json/pkg/contract"
)

// 级别定义
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel 解析级别名；未知名称返回 ErrInvalidInput。
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug, nil
	case "info":
		return Info, nil
	case "", "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	default:
		return Warn, fmt.Errorf("%w: log level %q", contract.ErrInvalidInput, s)
	}
}

// Sink 为结构化输出端；*logging.ZapEventLogger 满足该接口。
type Sink interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

// LogOptions: 全局日志输出设置。
type LogOptions struct {
	Level  string
	Format string // json|text|color
	File   string // 为空写 stderr
}

// Setup 配置 go-log 全局输出（格式/级别/目标）。进程启动时调用一次。
func Setup(o LogOptions) error {
	lvl, err := ParseLevel(o.Level)
	if err != nil {
		return err
	}
	zl, err := logging.LevelFromString(lvl.String())
	if err != nil {
		return fmt.Errorf("%w: %v", contract.ErrInvalidInput, err)
	}
	var f logging.LogFormat
	switch strings.ToLower(strings.TrimSpace(o.Format)) {
	case "", "json":
		f = logging.JSONOutput
	case "text", "plain", "plaintext":
		f = logging.PlaintextOutput
	case "color":
		f = logging.ColorizedOutput
	default:
		return fmt.Errorf("%w: log format %q", contract.ErrInvalidInput, o.Format)
	}
	logging.SetupLogging(logging.Config{
		Format: f,
		Level:  zl,
		Stderr: o.File == "",
		File:   o.File,
	})
	return nil
}

// Logger 为结构化事件日志器：固定携带 corr_id，按 comp/stage 输出事件。
type Logger struct {
	corrID string
	level  Level
	sink   Sink
}

// NewLogger 以 go-log 子系统 "vcf2json" 为输出端。
func NewLogger(corrID, level string) *Logger {
	return NewLoggerWith(corrID, level, logging.Logger("vcf2json"))
}

// NewLoggerWith 使用指定输出端；level 非法时按 warn 处理。
func NewLoggerWith(corrID, level string, sink Sink) *Logger {
	lvl, _ := ParseLevel(level)
	return &Logger{corrID: corrID, level: lvl, sink: sink}
}

// Enabled 报告 lv 级别是否输出。
func (l *Logger) Enabled(lv Level) bool { return l != nil && lv >= l.level }

// Event 为标准事件结构。
type Event struct {
	Comp   string
	Stage  string // start|finish|error|warn
	Code   string
	DurMS  int64
	Count  int64
	FileID string
	Msg    string
	KV     map[string]string
}

func (l *Logger) log(lv Level, ev Event) {
	if !l.Enabled(lv) || l.sink == nil {
		return
	}
	kv := make([]interface{}, 0, 16+2*len(ev.KV))
	kv = append(kv, "corr_id", l.corrID, "comp", ev.Comp, "stage", ev.Stage)
	if ev.Code != "" {
		kv = append(kv, "code", ev.Code)
	}
	if ev.DurMS != 0 {
		kv = append(kv, "dur_ms", ev.DurMS)
	}
	if ev.Count != 0 {
		kv = append(kv, "count", ev.Count)
	}
	if ev.FileID != "" {
		kv = append(kv, "file_id", ev.FileID)
	}
	for k, v := range ev.KV {
		kv = append(kv, k, v)
	}
	switch lv {
	case Debug:
		l.sink.Debugw(ev.Msg, kv...)
	case Info:
		l.sink.Infow(ev.Msg, kv...)
	case Warn:
		l.sink.Warnw(ev.Msg, kv...)
	default:
		l.sink.Errorw(ev.Msg, kv...)
	}
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", Msg: msg})
	return &Timer{l: l, comp: comp, t0: time.Now()}
}

// StartWith 记录带 file_id 的 start。
func (l *Logger) StartWith(comp, msg, fileID string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", FileID: fileID, Msg: msg})
	return &Timer{l: l, comp: comp, fileID: fileID, t0: time.Now()}
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWith(comp, code, msg, durSince, "")
}

// ErrorWith 支持 file_id。
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, fileID string) {
	var dur int64
	if durSince != nil {
		dur = time.Since(*durSince).Milliseconds()
	}
	l.log(Error, Event{Comp: comp, Stage: "error", Code: code, DurMS: dur, Msg: msg, FileID: fileID})
}

// Warning 记录一条解析告警（可恢复，不中断）。
func (l *Logger) Warning(comp string, w contract.Warning) {
	kv := map[string]string{
		"line": fmt.Sprint(w.Line),
		"kind": string(w.Kind),
		"text": w.Text,
	}
	if w.Key != "" {
		kv["key"] = w.Key
	}
	if w.Detail != "" {
		kv["detail"] = w.Detail
	}
	l.log(Warn, Event{Comp: comp, Stage: "warn", FileID: string(w.FileID), Msg: w.String(), KV: kv})
}

// InfoFinish 在已有起点的情况下记录 finish。
func (l *Logger) InfoFinish(comp, msg string, start time.Time, count int64) {
	l.log(Info, Event{Comp: comp, Stage: "finish", DurMS: time.Since(start).Milliseconds(), Count: count, Msg: msg})
}

// DebugStart 输出调试级别的 start 事件（仅在 level=debug 时生效）。
func (l *Logger) DebugStart(comp, msg, fileID string, kv map[string]string) {
	l.log(Debug, Event{Comp: comp, Stage: "start", FileID: fileID, Msg: msg, KV: kv})
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l      *Logger
	comp   string
	fileID string
	t0     time.Time
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	t.l.log(Info, Event{Comp: t.comp, Stage: "finish", DurMS: time.Since(t.t0).Milliseconds(), Count: count, FileID: t.fileID, Msg: msg})
}

// Since 返回计时起点。
func (t *Timer) Since() time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.t0
}
