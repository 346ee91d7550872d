package diag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"readplan/pkg/contract"
)

// 日志轮转写入
func TestRotatingFile(t *testing.T) {
	dir := t.TempDir()
	w := NewRotatingFile(dir, 30)
	_, err := w.Write([]byte("first line that is very long\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	hasCurrent, hasRotated := false, false
	for _, e := range files {
		if e.Name() == "readplan-current.txt" {
			hasCurrent = true
		} else if strings.HasPrefix(e.Name(), "readplan-") && strings.HasSuffix(e.Name(), ".txt") {
			hasRotated = true
		}
	}
	if !hasCurrent || !hasRotated {
		t.Fatalf("应同时存在 current 与轮转文件: current=%v rotated=%v", hasCurrent, hasRotated)
	}
}

// 未打开时 Sync/Close 为 no-op
func TestRotatingFileIdle(t *testing.T) {
	w := NewRotatingFile(t.TempDir(), 0)
	assert.NoError(t, w.Sync())
	assert.NoError(t, w.Close())
	assert.Equal(t, int64(10*1024*1024), w.maxBytes)
}

type bufSyncer struct{ bytes.Buffer }

func (b *bufSyncer) Sync() error { return nil }

var _ zapcore.WriteSyncer = (*bufSyncer)(nil)

// 事件为单行 JSON，携带 corr_id/comp/stage
func TestLoggerEvents(t *testing.T) {
	var buf bufSyncer
	l := newLogger("corr", "debug", &buf)
	timer := l.StartWith("schedule", "build", "ot")
	timer.Finish("build", 3)
	l.Error("pipeline", string(CodeBudget), "first error", nil)
	l.DebugStart("config", "effective", "", map[string]string{"k": "v"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	var ev map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &ev))
	assert.Equal(t, "corr", ev["corr_id"])
	assert.Equal(t, "schedule", ev["comp"])
	assert.Equal(t, "finish", ev["stage"])
	assert.Equal(t, "ot", ev["track"])
	assert.EqualValues(t, 3, ev["count"])

	require.NoError(t, json.Unmarshal([]byte(lines[2]), &ev))
	assert.Equal(t, "error", ev["level"])
	assert.Equal(t, "budget", ev["code"])
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bufSyncer
	l := newLogger("corr", "warn", &buf)
	l.Start("comp", "msg").Finish("ok", 0)
	l.DebugStart("comp", "msg", "", nil)
	assert.Empty(t, buf.String())
	l.Error("comp", "", "boom", nil)
	assert.Contains(t, buf.String(), "boom")
}

func TestLoggerFileSink(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger("corr", "info", dir)
	l.Start("pipeline", "run").Finish("run", 0)
	require.NoError(t, l.Sync())
	b, err := os.ReadFile(dir + "/readplan-current.txt")
	require.NoError(t, err)
	assert.Contains(t, string(b), `"comp":"pipeline"`)

	assert.NoError(t, NewNop().Sync())
}

func TestMetrics(t *testing.T) {
	ResetMetrics()
	IncOp("schedule", "finish", "success")
	IncOp("schedule", "finish", "success")
	IncError("schedule", "budget")
	ObserveDuration("pipeline", "finish", 7)
	snap := Snapshot()
	assert.Equal(t, int64(2), snap["op_total{schedule,finish,success}"])
	assert.Equal(t, int64(1), snap["error_total{schedule,budget}"])
	assert.Equal(t, int64(7), snap["op_duration_ms{pipeline,finish}"])
	assert.Equal(t, []string{
		"error_total{schedule,budget}",
		"op_duration_ms{pipeline,finish}",
		"op_total{schedule,finish,success}",
	}, SnapshotKeys(snap))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, CodeUnknown},
		{context.Canceled, CodeCancel},
		{fmt.Errorf("allocate: %w", contract.ErrOverAllocation), CodeBudget},
		{contract.ErrInsufficientChapters, CodeBudget},
		{contract.ErrPartitionNotConverged, CodeConverge},
		{contract.ErrDateOverflow, CodeInvariant},
		{contract.ErrInvalidInput, CodeInvariant},
		{&fs.PathError{Op: "open", Path: "/", Err: errors.New("x")}, CodeIO},
		{errors.New("other"), CodeUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.err), "%v", c.err)
	}
}

func TestTerminalFlow(t *testing.T) {
	var sb strings.Builder
	term := NewTerminal(&sb, true)
	term.RunStart("2025-01-01", "2025-12-31", 2)
	term.TrackStart("ot", 200)
	term.TrackFinish(true, 200, 3, 5100*time.Millisecond)
	term.RunFinish(true, "out/reading_plan_1", 41300*time.Millisecond)

	out := sb.String()
	assert.Contains(t, out, "[run] 2025-01-01 → 2025-12-31 | 轨道 2")
	assert.Contains(t, out, "[track] ot | 预算 200 天")
	assert.Contains(t, out, "[done] ot | 条目 200 | 补读 3 | 用时 5.1s")
	assert.Contains(t, out, "[ok] 全部完成 | 轨道 1 | 总用时 41.3s | 输出 out/reading_plan_1")
}

func TestTerminalDisabled(t *testing.T) {
	var sb strings.Builder
	term := NewTerminal(&sb, false)
	term.RunStart("a", "b", 1)
	term.RunFinish(false, "", time.Millisecond)
	assert.Empty(t, sb.String())

	var nilTerm *Terminal
	nilTerm.TrackStart("x", 1)
	SetTerminal(term)
	assert.Same(t, term, GetTerminal())
	SetTerminal(nil)
	assert.Nil(t, GetTerminal())
}
