package text

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"readplan/pkg/contract"
)

const (
	defaultLayout    = "Jan _2, 2006"
	defaultSeparator = " | "
)

// Options 为文本 Formatter 的选项。
type Options struct {
	// DateLayout: time 包布局，默认 "Jan _2, 2006"。
	DateLayout string `json:"date_layout,omitempty"`
	// Language: BCP 47 标签，用于字数的数字分组，默认 en。
	Language string `json:"language,omitempty"`
	// Separator: 多轨道之间的分隔符，默认 " | "。
	Separator string `json:"separator,omitempty"`
}

// Formatter 将计划渲染为每日一行：<日期> <书卷> <章范围>。
type Formatter struct {
	layout string
	sep    string
	p      *message.Printer
}

// New 创建文本 Formatter。
func New(opts *Options) (*Formatter, error) {
	f := &Formatter{layout: defaultLayout, sep: defaultSeparator}
	tag := language.English
	if opts != nil {
		if strings.TrimSpace(opts.DateLayout) != "" {
			f.layout = opts.DateLayout
		}
		if opts.Separator != "" {
			f.sep = opts.Separator
		}
		if opts.Language != "" {
			t, err := language.Parse(opts.Language)
			if err != nil {
				return nil, fmt.Errorf("%w: language %q: %v", contract.ErrInvalidInput, opts.Language, err)
			}
			tag = t
		}
	}
	f.p = message.NewPrinter(tag)
	return f, nil
}

var _ contract.Formatter = (*Formatter)(nil)

// Format 按日期升序输出所有轨道日期的并集；某轨道缺失当日时以 "-" 占位。
func (f *Formatter) Format(w io.Writer, plan contract.Plan) error {
	if len(plan.Tracks) == 0 {
		return fmt.Errorf("%w: plan has no tracks", contract.ErrInvalidInput)
	}
	cells := make([]map[civil.Date]string, len(plan.Tracks))
	var dates []civil.Date
	seen := map[civil.Date]bool{}
	for i, tr := range plan.Tracks {
		cells[i] = renderTrack(tr.Entries)
		for _, e := range tr.Entries {
			if !seen[e.Date] {
				seen[e.Date] = true
				dates = append(dates, e.Date)
			}
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	daily := make(map[civil.Date]int, len(plan.Daily))
	for _, d := range plan.Daily {
		daily[d.Date] = d.Length
	}

	var b strings.Builder
	for _, d := range dates {
		b.Reset()
		b.WriteString(d.In(time.UTC).Format(f.layout))
		b.WriteByte(' ')
		for i := range plan.Tracks {
			if i > 0 {
				b.WriteString(f.sep)
			}
			if c, ok := cells[i][d]; ok {
				b.WriteString(c)
			} else {
				b.WriteString("-")
			}
		}
		if plan.Daily != nil {
			b.WriteString(f.p.Sprintf(" (%d words)", daily[d]))
		}
		b.WriteByte('\n')
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// renderTrack 生成单轨道每个日期的 "<书卷> <章范围>" 文本。
// 补读日按出现顺序自 1 编号；补读日之后的书卷从第 1 章重新计。
func renderTrack(entries []contract.ScheduleEntry) map[civil.Date]string {
	out := make(map[civil.Date]string, len(entries))
	prevTitle, prevChapter, catchUps := "", 0, 0
	for _, e := range entries {
		titles := strings.Join(e.Titles, ", ")
		var rng string
		switch {
		case e.CatchUp:
			catchUps++
			rng = fmt.Sprint(catchUps)
		case len(e.Titles) > 1:
			rng = "all"
		case titles == prevTitle:
			if prevChapter >= e.Chapters-1 {
				rng = fmt.Sprint(e.Chapters)
			} else {
				rng = fmt.Sprintf("%d-%d", prevChapter+1, e.Chapters)
			}
		case e.Chapters == 1:
			rng = "1"
		default:
			rng = fmt.Sprintf("1-%d", e.Chapters)
		}
		out[e.Date] = titles + " " + rng
		prevTitle, prevChapter = titles, e.Chapters
	}
	return out
}
