package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"readplan/internal/diag"
	"readplan/internal/schedule"
	"readplan/pkg/contract"
)

// - 单 goroutine、同步：轨道逐条排期，轨道之间检查 ctx。
// - 全有或全无：全部轨道成功并渲染完毕后才调用 Writer。
// - 核心不读时钟与工作目录：工件名由调用方传入。

// Components 聚合运行所需的插件。
type Components struct {
	Reader    contract.CorpusReader
	Formatter contract.Formatter
	Writer    contract.Writer
}

// TrackSpec: 一条轨道的名称与书卷序号。
type TrackSpec struct {
	Name  string
	Books []int
}

// Settings 运行期配置。
type Settings struct {
	Start, End civil.Date
	Tracks     []TrackSpec
	// IncludeLengths: 输出每日字数；多轨道时总是输出。
	IncludeLengths bool
	Schedule       schedule.Options
	Artifact       contract.ArtifactID
}

// Run 执行 Plan → Formatter → Writer。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) error {
	if err := sanity(comp, set); err != nil {
		return fmt.Errorf("sanity: %w", err)
	}
	if logger == nil {
		logger = diag.NewNop()
	}
	plan, err := Plan(ctx, comp.Reader, set, logger)
	if err != nil {
		return err
	}

	// 先渲染到内存，Writer 只见到完整结果
	var buf bytes.Buffer
	ftimer := logger.Start("formatter", "format")
	if err := comp.Formatter.Format(&buf, plan); err != nil {
		return stageErr(logger, "formatter", "format", "", err)
	}
	ftimer.Finish("format", int64(buf.Len()))
	diag.IncOp("formatter", "finish", "success")

	if err := ctx.Err(); err != nil {
		return stageErr(logger, "writer", "write", "", err)
	}
	wtimer := logger.Start("writer", "write")
	if err := comp.Writer.Write(ctx, set.Artifact, &buf); err != nil {
		return stageErr(logger, "writer", "write", "", err)
	}
	wtimer.Finish("write", 0)
	diag.IncOp("writer", "finish", "success")
	return nil
}

// Plan 逐轨道执行 Reader → schedule.Build → 每日字数聚合，返回待渲染的计划。
func Plan(ctx context.Context, reader contract.CorpusReader, set Settings, logger *diag.Logger) (contract.Plan, error) {
	if logger == nil {
		logger = diag.NewNop()
	}
	days, err := schedule.DayBudget(set.Start, set.End)
	if err != nil {
		return contract.Plan{}, err
	}
	withLengths := set.IncludeLengths || len(set.Tracks) > 1
	plan := contract.Plan{Start: set.Start, End: set.End}
	var daily [][]contract.DailyLength
	for _, spec := range set.Tracks {
		if err := ctx.Err(); err != nil {
			return contract.Plan{}, err
		}
		tr, err := runTrack(ctx, reader, spec, set, days, withLengths, logger)
		if err != nil {
			return contract.Plan{}, err
		}
		plan.Tracks = append(plan.Tracks, tr)
		if withLengths {
			daily = append(daily, tr.Lengths)
		}
	}
	if withLengths {
		plan.Daily = schedule.MergeDaily(daily...)
	}
	return plan, nil
}

func runTrack(ctx context.Context, reader contract.CorpusReader, spec TrackSpec, set Settings, days int, withLengths bool, logger *diag.Logger) (tr contract.Track, err error) {
	term := diag.GetTerminal()
	term.TrackStart(spec.Name, days)
	t0 := time.Now()
	defer func() {
		term.TrackFinish(err == nil, len(tr.Entries), countCatchUps(tr.Entries), time.Since(t0))
	}()

	rtimer := logger.StartWith("reader", "read", spec.Name)
	logger.DebugStart("reader", "read_req", spec.Name, map[string]string{"books": fmt.Sprint(spec.Books)})
	chapters, err := reader.Read(ctx, spec.Books)
	if err != nil {
		return contract.Track{}, stageErr(logger, "reader", "read", spec.Name, err)
	}
	if len(chapters) == 0 {
		err = fmt.Errorf("%w: no chapters for books %v", contract.ErrInvalidInput, spec.Books)
		return contract.Track{}, stageErr(logger, "reader", "read", spec.Name, err)
	}
	rtimer.Finish("read", int64(len(chapters)))
	diag.IncOp("reader", "finish", "success")

	stimer := logger.StartWith("schedule", "build", spec.Name)
	res, err := schedule.Build(chapters, set.Start, set.End, set.Schedule)
	if err != nil {
		return contract.Track{}, stageErr(logger, "schedule", "build", spec.Name, err)
	}
	stimer.Finish("build", int64(len(res.Entries)))
	diag.IncOp("schedule", "finish", "success")
	logger.DebugStart("schedule", "repair_report", spec.Name, map[string]string{
		"groups": fmt.Sprint(len(res.Groups)),
		"slack":  fmt.Sprint(res.Report.Slack),
		"seams":  fmt.Sprint(res.Report.Seams),
		"tail":   fmt.Sprint(res.Report.Tail),
		"splits": fmt.Sprint(res.Report.Splits),
		"spread": fmt.Sprint(res.Report.Spread),
		"filled": fmt.Sprint(res.Report.Filled),
	})

	tr = contract.Track{Name: spec.Name, Entries: res.Entries}
	if withLengths {
		lengths, err := schedule.DailyLengths(res.Entries, contract.ByTitle(chapters))
		if err != nil {
			return contract.Track{}, stageErr(logger, "aggregate", "daily", spec.Name, err)
		}
		tr.Lengths = lengths
	}
	return tr, nil
}

// stageErr 记录 error 事件与指标，并附加阶段上下文。
func stageErr(logger *diag.Logger, comp, stage, track string, err error) error {
	code := diag.Classify(err)
	logger.ErrorWith(comp, string(code), stage+" failed", nil, track)
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
	if track != "" {
		return fmt.Errorf("%s %s [%s]: %w", comp, stage, track, err)
	}
	return fmt.Errorf("%s %s: %w", comp, stage, err)
}

func countCatchUps(entries []contract.ScheduleEntry) int {
	n := 0
	for _, e := range entries {
		if e.CatchUp {
			n++
		}
	}
	return n
}

func sanity(c Components, s Settings) error {
	if c.Reader == nil || c.Formatter == nil || c.Writer == nil {
		return fmt.Errorf("%w: pipeline: missing components", contract.ErrInvalidInput)
	}
	if len(s.Tracks) == 0 {
		return fmt.Errorf("%w: pipeline: no tracks", contract.ErrInvalidInput)
	}
	if s.Artifact == "" {
		return fmt.Errorf("%w: pipeline: empty artifact id", contract.ErrInvalidInput)
	}
	return nil
}
