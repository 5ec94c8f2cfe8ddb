package diag

import (
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// 进程内指标（私有 registry，不暴露抓取端点）：
// - vcf2json_op_total{comp,stage,result}
// - vcf2json_error_total{comp,code}
// - vcf2json_warning_total{kind}
// - vcf2json_op_duration_ms{comp,stage}（累计）

const namespace = "vcf2json"

// labelNames 记录各指标的标签声明顺序，快照键按此顺序拼接。
var labelNames = map[string][]string{
	"op_total":       {"comp", "stage", "result"},
	"error_total":    {"comp", "code"},
	"warning_total":  {"kind"},
	"op_duration_ms": {"comp", "stage"},
}

type metricSet struct {
	reg      *prometheus.Registry
	ops      *prometheus.CounterVec
	errs     *prometheus.CounterVec
	warnings *prometheus.CounterVec
	duration *prometheus.CounterVec
}

func newCounterVec(name, help string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help},
		labelNames[name],
	)
}

func newMetricSet() *metricSet {
	m := &metricSet{
		reg:      prometheus.NewRegistry(),
		ops:      newCounterVec("op_total", "Stage operations by result"),
		errs:     newCounterVec("error_total", "Errors by component and code"),
		warnings: newCounterVec("warning_total", "Parser warnings by kind"),
		duration: newCounterVec("op_duration_ms", "Accumulated stage duration in milliseconds"),
	}
	m.reg.MustRegister(m.ops, m.errs, m.warnings, m.duration)
	return m
}

var (
	metricsMu sync.RWMutex
	metrics   = newMetricSet()
)

func current() *metricSet {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return metrics
}

// Registry 返回当前私有 registry（ResetMetrics 后会更换）。
func Registry() *prometheus.Registry { return current().reg }

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) { current().ops.WithLabelValues(comp, stage, result).Inc() }

// IncError 按分类累加错误计数。
func IncError(comp, code string) { current().errs.WithLabelValues(comp, code).Inc() }

// IncWarning 按告警类型累加计数。
func IncWarning(kind string) { current().warnings.WithLabelValues(kind).Inc() }

// ObserveDuration 累计阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	if durMS < 0 {
		return
	}
	current().duration.WithLabelValues(comp, stage).Add(float64(durMS))
}

// Metric 为一条计数快照。
type Metric struct {
	Name  string
	Value int64
}

func key(name string, labels ...string) string {
	return name + "{" + strings.Join(labels, ",") + "}"
}

// Snapshot 从 registry 收集并返回按名称排序的计数副本。
func Snapshot() []Metric {
	fams, err := current().reg.Gather()
	if err != nil {
		return nil
	}
	var out []Metric
	for _, f := range fams {
		short := strings.TrimPrefix(f.GetName(), namespace+"_")
		names := labelNames[short]
		for _, m := range f.GetMetric() {
			vals := make([]string, len(names))
			for _, lp := range m.GetLabel() {
				for i, n := range names {
					if n == lp.GetName() {
						vals[i] = lp.GetValue()
					}
				}
			}
			out = append(out, Metric{Name: key(short, vals...), Value: int64(m.GetCounter().GetValue())})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Counter 返回单个计数；不存在为 0。
func Counter(name string, labels ...string) int64 {
	k := key(name, labels...)
	for _, m := range Snapshot() {
		if m.Name == k {
			return m.Value
		}
	}
	return 0
}

// ResetMetrics 以新的 registry 替换全部计数。
func ResetMetrics() {
	metricsMu.Lock()
	metrics = newMetricSet()
	metricsMu.Unlock()
}
