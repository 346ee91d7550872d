package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Terminal: 终端信息提示（非日志）。
// - 输出到提供的 io.Writer（默认建议 stderr），逐行打印关键节点；
// - 并发安全；写失败后进入禁用态为 no-op。
type Terminal struct {
	w       io.Writer
	enabled bool

	tracksDone int
	curTrack   string

	mu sync.Mutex
}

// 进程级终端（可选，全局设置后供 pipeline 旁路调用）。
var (
	termMu sync.RWMutex
	term   *Terminal
)

// SetTerminal 设置全局终端指针（nil 可清除）。
func SetTerminal(t *Terminal) { termMu.Lock(); term = t; termMu.Unlock() }

// GetTerminal 返回全局终端（可能为 nil）。
func GetTerminal() *Terminal { termMu.RLock(); defer termMu.RUnlock(); return term }

// NewTerminal 构造终端提示器。
// enabled=false 时总是 no-op。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	return &Terminal{w: w, enabled: enabled}
}

// RunStart: 记录运行上下文（日期区间、轨道数）。
func (t *Terminal) RunStart(start, end string, tracks int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracksDone = 0
	t.println(fmt.Sprintf("[run] %s → %s | 轨道 %d", safe(start), safe(end), tracks))
}

// TrackStart: 标记当前轨道与天数预算。
func (t *Terminal) TrackStart(name string, days int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.curTrack = safe(name)
	t.println(fmt.Sprintf("[track] %s | 预算 %d 天", t.curTrack, days))
}

// TrackFinish: 完成当前轨道。
func (t *Terminal) TrackFinish(ok bool, entries, catchUps int, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracksDone++
	status := "done"
	if !ok {
		status = "fail"
	}
	t.println(fmt.Sprintf("[%s] %s | 条目 %d | 补读 %d | 用时 %s", status, t.curTrack, entries, catchUps, formatDur(dur)))
}

// RunFinish: 结束总览。
func (t *Terminal) RunFinish(ok bool, artifact string, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	tag := "ok"
	if !ok {
		tag = "fail"
	}
	line := fmt.Sprintf("[%s] 全部完成 | 轨道 %d | 总用时 %s", tag, t.tracksDone, formatDur(dur))
	if ok && artifact != "" {
		line += " | 输出 " + safe(artifact)
	}
	t.println(line)
}

func (t *Terminal) println(s string) {
	if !t.enabled {
		return
	}
	if _, err := io.WriteString(t.w, s+"\n"); err != nil {
		// 写失败即禁用
		t.enabled = false
	}
}

func safe(s string) string {
	// 避免换行等控制字符污染终端
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}

func formatDur(d time.Duration) string {
	if d < time.Second {
		ms := d.Milliseconds()
		if ms <= 0 {
			ms = 0
		}
		return fmt.Sprintf("%dms", ms)
	}
	// 秒，保留 1 位小数
	s := float64(d.Milliseconds()) / 1000.0
	return fmt.Sprintf("%.1fs", s)
}
