package diag

import (
	"fmt"
	"sort"
	"sync"
)

// 进程内最小指标：
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}（累计）
var (
	metricsMu sync.Mutex
	counters  = map[string]int64{}
)

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) {
	add(fmt.Sprintf("op_total{%s,%s,%s}", comp, stage, result), 1)
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	add(fmt.Sprintf("error_total{%s,%s}", comp, code), 1)
}

// ObserveDuration 记录阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	add(fmt.Sprintf("op_duration_ms{%s,%s}", comp, stage), durMS)
}

func add(key string, n int64) {
	metricsMu.Lock()
	counters[key] += n
	metricsMu.Unlock()
}

// Snapshot 返回当前计数的副本。
func Snapshot() map[string]int64 {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	out := make(map[string]int64, len(counters))
	for k, v := range counters {
		out[k] = v
	}
	return out
}

// SnapshotKeys 返回排序后的指标名。
func SnapshotKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResetMetrics 清空计数（测试使用）。
func ResetMetrics() {
	metricsMu.Lock()
	counters = map[string]int64{}
	metricsMu.Unlock()
}
