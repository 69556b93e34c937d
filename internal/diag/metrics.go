package diag

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// 进程内指标（无导出器）：
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms_sum{comp,stage} / op_duration_ms_count{comp,stage}

var (
	metricsMu sync.Mutex
	counters  = map[string]int64{}
)

func key(name string, labels ...string) string {
	return name + "{" + strings.Join(labels, ",") + "}"
}

func add(k string, v int64) {
	metricsMu.Lock()
	counters[k] += v
	metricsMu.Unlock()
}

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) {
	add(key("op_total", comp, stage, result), 1)
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	add(key("error_total", comp, code), 1)
}

// ObserveDuration 记录阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	metricsMu.Lock()
	counters[key("op_duration_ms_sum", comp, stage)] += durMS
	counters[key("op_duration_ms_count", comp, stage)]++
	metricsMu.Unlock()
}

// Snapshot 返回当前全部指标的拷贝。
func Snapshot() map[string]int64 {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	out := make(map[string]int64, len(counters))
	for k, v := range counters {
		out[k] = v
	}
	return out
}

// Counter 返回单个指标值，例如 Counter("op_total", "search", "finish", "success")。
func Counter(name string, labels ...string) int64 {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	return counters[key(name, labels...)]
}

// Reset 清空全部指标（测试与多次运行之间使用）。
func Reset() {
	metricsMu.Lock()
	counters = map[string]int64{}
	metricsMu.Unlock()
}

// FormatSnapshot 以稳定顺序渲染指标（每行 "key value"）。
func FormatSnapshot(m map[string]int64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s %d\n", k, m[k])
	}
	return b.String()
}
