package diag

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 为结构化事件日志：comp/stage 事件模型，底层由 zap 以单行 JSON 写出。
// stage 取值 start|finish|error；corr_id 标识一次运行。
type Logger struct {
	z    *zap.Logger
	sink *RotatingFile
}

// NewLogger 通过配置的 level 初始化，并将日志写入 dir（默认 logs），10MiB 轮转。
func NewLogger(corrID, level, dir string) *Logger {
	if strings.TrimSpace(dir) == "" {
		dir = "logs"
	}
	sink := NewRotatingFile(dir, 10*1024*1024)
	l := newLogger(corrID, level, sink)
	l.sink = sink
	return l
}

// NewNop 返回丢弃所有事件的 Logger（测试与 --init-config 使用）。
func NewNop() *Logger { return &Logger{z: zap.NewNop()} }

func newLogger(corrID, level string, ws zapcore.WriteSyncer) *Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.RFC3339TimeEncoder
	enc.CallerKey = zapcore.OmitKey
	enc.StacktraceKey = zapcore.OmitKey
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), ws, zap.NewAtomicLevelAt(parseLevel(level)))
	return &Logger{z: zap.New(core).With(zap.String("corr_id", corrID))}
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	return l.StartWith(comp, msg, "")
}

// StartWith 记录带 track 的 start。
func (l *Logger) StartWith(comp, msg, track string) *Timer {
	l.z.Info(msg, eventFields(comp, "start", track)...)
	return &Timer{l: l, comp: comp, track: track, t0: time.Now()}
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWith(comp, code, msg, durSince, "")
}

// ErrorWith 支持 track。
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, track string) {
	fields := eventFields(comp, "error", track)
	if code != "" {
		fields = append(fields, zap.String("code", code))
	}
	if durSince != nil {
		fields = append(fields, zap.Int64("dur_ms", time.Since(*durSince).Milliseconds()))
	}
	l.z.Error(msg, fields...)
}

// DebugStart 输出调试级别的“start”类事件（仅在 level=debug 时生效）。
func (l *Logger) DebugStart(comp, msg, track string, kv map[string]string) {
	if ce := l.z.Check(zapcore.DebugLevel, msg); ce != nil {
		fields := eventFields(comp, "start", track)
		if len(kv) > 0 {
			fields = append(fields, zap.Any("kv", kv))
		}
		ce.Write(fields...)
	}
}

// Sync 刷新并关闭底层文件。
func (l *Logger) Sync() error {
	if l == nil || l.z == nil {
		return nil
	}
	_ = l.z.Sync()
	if l.sink != nil {
		return l.sink.Close()
	}
	return nil
}

func eventFields(comp, stage, track string) []zap.Field {
	fields := []zap.Field{zap.String("comp", comp), zap.String("stage", stage)}
	if track != "" {
		fields = append(fields, zap.String("track", track))
	}
	return fields
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l     *Logger
	comp  string
	track string
	t0    time.Time
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	fields := append(eventFields(t.comp, "finish", t.track), zap.Int64("dur_ms", time.Since(t.t0).Milliseconds()))
	if count != 0 {
		fields = append(fields, zap.Int64("count", count))
	}
	t.l.z.Info(msg, fields...)
}
