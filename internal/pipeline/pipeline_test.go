package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readplan/internal/diag"
	"readplan/pkg/contract"
	ftext "readplan/plugins/formatter/text"
)

// 通用桩件 ----------------------------------------------------

type stubReader struct {
	chapters []contract.ChapterRecord
	err      error
	calls    int
}

func (r *stubReader) Read(ctx context.Context, books []int) ([]contract.ChapterRecord, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	want := map[int]bool{}
	for _, b := range books {
		want[b] = true
	}
	var out []contract.ChapterRecord
	for _, c := range r.chapters {
		if len(books) == 0 || want[c.Book] {
			out = append(out, c)
		}
	}
	return out, nil
}

type stubWriter struct {
	id    contract.ArtifactID
	out   strings.Builder
	calls int
}

func (w *stubWriter) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	w.calls++
	w.id = id
	_, err := io.Copy(&w.out, r)
	return err
}

func day(d int) civil.Date { return civil.Date{Year: 2025, Month: time.January, Day: d} }

func book(idx int, title string, lengths ...int) []contract.ChapterRecord {
	out := make([]contract.ChapterRecord, len(lengths))
	for i, l := range lengths {
		out[i] = contract.ChapterRecord{Book: idx, Title: title, Chapter: i + 1, Length: l}
	}
	return out
}

func corpus() []contract.ChapterRecord {
	var out []contract.ChapterRecord
	out = append(out, book(1, "Alpha", 50, 50, 100, 100, 100, 100)...)
	out = append(out, book(2, "Beta", 20)...)
	out = append(out, book(3, "Gamma", 30)...)
	out = append(out, book(4, "Delta", 50, 50, 100, 100)...)
	return out
}

func components(t *testing.T, r *stubReader, w *stubWriter) Components {
	t.Helper()
	f, err := ftext.New(nil)
	require.NoError(t, err)
	return Components{Reader: r, Formatter: f, Writer: w}
}

// 单轨道：Beta/Gamma 合并一天，余下一天补在末尾
func TestRunSingleTrack(t *testing.T) {
	r, w := &stubReader{chapters: corpus()}, &stubWriter{}
	set := Settings{
		Start: day(1), End: day(10),
		Tracks:   []TrackSpec{{Name: "all", Books: []int{1, 2, 3, 4}}},
		Artifact: "reading_plan_1",
	}
	require.NoError(t, Run(context.Background(), components(t, r, w), set, diag.NewNop()))
	want := "" +
		"Jan  1, 2025 Alpha 1-2\n" +
		"Jan  2, 2025 Alpha 3\n" +
		"Jan  3, 2025 Alpha 4\n" +
		"Jan  4, 2025 Alpha 5\n" +
		"Jan  5, 2025 Alpha 6\n" +
		"Jan  6, 2025 Beta, Gamma all\n" +
		"Jan  7, 2025 Delta 1-2\n" +
		"Jan  8, 2025 Delta 3\n" +
		"Jan  9, 2025 Delta 4\n" +
		"Jan 10, 2025 Catch-up day 1\n"
	assert.Equal(t, want, w.out.String())
	assert.Equal(t, contract.ArtifactID("reading_plan_1"), w.id)
}

// 两条轨道并列输出，并附合并后的每日字数
func TestRunMultiTrack(t *testing.T) {
	r, w := &stubReader{chapters: corpus()}, &stubWriter{}
	set := Settings{
		Start: day(1), End: day(3),
		Tracks:   []TrackSpec{{Name: "a", Books: []int{1}}, {Name: "d", Books: []int{4}}},
		Artifact: "plan",
	}
	require.NoError(t, Run(context.Background(), components(t, r, w), set, nil))
	want := "" +
		"Jan  1, 2025 Alpha 1-3 | Delta 1-2 (300 words)\n" +
		"Jan  2, 2025 Alpha 4-5 | Delta 3 (300 words)\n" +
		"Jan  3, 2025 Alpha 6 | Delta 4 (200 words)\n"
	assert.Equal(t, want, w.out.String())
	assert.Equal(t, 2, r.calls)
}

func TestPlanLengthsOnlyWhenRequested(t *testing.T) {
	r := &stubReader{chapters: corpus()}
	set := Settings{Start: day(1), End: day(3), Tracks: []TrackSpec{{Name: "a", Books: []int{1}}}}
	plan, err := Plan(context.Background(), r, set, nil)
	require.NoError(t, err)
	assert.Nil(t, plan.Daily)
	assert.Nil(t, plan.Tracks[0].Lengths)

	set.IncludeLengths = true
	plan, err = Plan(context.Background(), r, set, nil)
	require.NoError(t, err)
	require.Len(t, plan.Daily, 3)
	assert.Equal(t, []int{200, 200, 100}, []int{plan.Daily[0].Length, plan.Daily[1].Length, plan.Daily[2].Length})
}

// 任一轨道失败：不写出任何工件
func TestRunAllOrNothing(t *testing.T) {
	diag.ResetMetrics()
	r, w := &stubReader{chapters: corpus()}, &stubWriter{}
	set := Settings{
		Start: day(1), End: day(10),
		// 第二条轨道仅 6 章，10 天预算超额
		Tracks:   []TrackSpec{{Name: "ok", Books: []int{1, 2, 3, 4}}, {Name: "short", Books: []int{1}}},
		Artifact: "plan",
	}
	err := Run(context.Background(), components(t, r, w), set, diag.NewNop())
	if !errors.Is(err, contract.ErrOverAllocation) {
		t.Fatalf("期望 ErrOverAllocation, 实得 %v", err)
	}
	assert.Contains(t, err.Error(), "[short]")
	assert.Equal(t, 0, w.calls)
	assert.Equal(t, int64(1), diag.Snapshot()["error_total{schedule,budget}"])
}

func TestRunReaderError(t *testing.T) {
	boom := errors.New("boom")
	r, w := &stubReader{err: boom}, &stubWriter{}
	set := Settings{Start: day(1), End: day(3), Tracks: []TrackSpec{{Name: "a"}}, Artifact: "plan"}
	err := Run(context.Background(), components(t, r, w), set, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, w.calls)
}

func TestRunNoChapters(t *testing.T) {
	r, w := &stubReader{chapters: corpus()}, &stubWriter{}
	set := Settings{Start: day(1), End: day(3), Tracks: []TrackSpec{{Name: "a", Books: []int{99}}}, Artifact: "plan"}
	err := Run(context.Background(), components(t, r, w), set, nil)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

func TestRunCanceled(t *testing.T) {
	r, w := &stubReader{chapters: corpus()}, &stubWriter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	set := Settings{Start: day(1), End: day(3), Tracks: []TrackSpec{{Name: "a", Books: []int{1}}}, Artifact: "plan"}
	err := Run(ctx, components(t, r, w), set, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, r.calls)
	assert.Equal(t, 0, w.calls)
}

func TestRunSanity(t *testing.T) {
	r, w := &stubReader{}, &stubWriter{}
	comp := components(t, r, w)
	cases := map[string]struct {
		comp Components
		set  Settings
	}{
		"缺组件":   {Components{Reader: r}, Settings{Tracks: []TrackSpec{{}}, Artifact: "x"}},
		"无轨道":   {comp, Settings{Artifact: "x"}},
		"空工件名": {comp, Settings{Tracks: []TrackSpec{{}}}},
	}
	for name, c := range cases {
		if err := Run(context.Background(), c.comp, c.set, nil); !errors.Is(err, contract.ErrInvalidInput) {
			t.Fatalf("%s: 期望 ErrInvalidInput, 实得 %v", name, err)
		}
	}
}

// 终端提示逐轨道输出
func TestRunTerminal(t *testing.T) {
	var buf bytes.Buffer
	diag.SetTerminal(diag.NewTerminal(&buf, true))
	defer diag.SetTerminal(nil)
	r, w := &stubReader{chapters: corpus()}, &stubWriter{}
	set := Settings{Start: day(1), End: day(10), Tracks: []TrackSpec{{Name: "all"}}, Artifact: "plan"}
	require.NoError(t, Run(context.Background(), components(t, r, w), set, nil))
	out := buf.String()
	assert.Contains(t, out, "[track] all | 预算 10 天")
	assert.Contains(t, out, "[done] all | 条目 10 | 补读 1")
}
