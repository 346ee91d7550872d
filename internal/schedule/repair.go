package schedule

import (
	"fmt"

	"cloud.google.com/go/civil"

	"readplan/pkg/contract"
)

// Report 记录各修复步骤消耗的天数（用于日志）。
type Report struct {
	Slack  int // 修复前的余量
	Seams  int // 分界处插入的补读日
	Tail   int // 末尾补读日
	Splits int // 被拆开的合并日
	Spread int // 均匀插入的补读日
	Filled int // 最后补齐的末尾补读日
}

// Repair 把排期的最后日期推到 end，依次尝试：
//  1. 分界补读：一次扫描，在每个仍有余量的分界处插入补读日；
//  2. 末尾补读：追加一天；
//  3. 拆分合并日：余量 >1 时，把章数最多的合并日拆为每卷一天；
//  4. 均匀补读：按间隔在书卷切换处插入补读日；
//  5. 仍有余量时在末尾补齐。
//
// 插入只会把后续条目整体后移，不覆盖任何条目。books 提供各书卷的完整章数。
func Repair(entries []contract.ScheduleEntry, end civil.Date, books []contract.BookRecord, opts Options) ([]contract.ScheduleEntry, Report, error) {
	opts = opts.withDefaults()
	r := &repairer{entries: entries, end: end, opts: opts, counts: make(map[string]int, len(books))}
	for _, b := range books {
		r.counts[b.Title] = b.Chapters
	}
	if len(entries) == 0 {
		return entries, r.report, nil
	}
	r.slack = r.remaining()
	r.report.Slack = r.slack
	if r.slack <= 0 {
		return r.entries, r.report, nil
	}
	r.insertSeams()
	r.appendTail()
	if err := r.splitMerged(); err != nil {
		return nil, r.report, err
	}
	r.distribute()
	r.fill()
	return r.entries, r.report, nil
}

type repairer struct {
	entries []contract.ScheduleEntry
	end     civil.Date
	opts    Options
	counts  map[string]int
	slack   int
	report  Report
}

// remaining: 最后一条与 end 之间的天数。
func (r *repairer) remaining() int {
	return r.end.DaysSince(r.entries[len(r.entries)-1].Date)
}

func (r *repairer) catchUp(d civil.Date) contract.ScheduleEntry {
	return contract.ScheduleEntry{Titles: []string{r.opts.CatchUpLabel}, Date: d, CatchUp: true}
}

// insertCatchUp 在下标 at 处插入补读日（沿用原条目的日期），其后全部后移一天。
func (r *repairer) insertCatchUp(at int) {
	d := r.entries[at].Date
	r.entries = append(r.entries, contract.ScheduleEntry{})
	copy(r.entries[at+1:], r.entries[at:])
	r.entries[at] = r.catchUp(d)
	r.shift(at+1, 1)
}

func (r *repairer) shift(from, days int) {
	for j := from; j < len(r.entries); j++ {
		r.entries[j].Date = r.entries[j].Date.AddDays(days)
	}
}

func (r *repairer) isSeam(a, b contract.ScheduleEntry) bool {
	if a.CatchUp || b.CatchUp {
		return false
	}
	for _, s := range r.opts.Seams {
		if a.HasTitle(s.Before) && b.HasTitle(s.After) {
			return true
		}
	}
	return false
}

func (r *repairer) insertSeams() {
	if len(r.opts.Seams) == 0 {
		return
	}
	for i := 0; i+1 < len(r.entries) && r.slack > 0; i++ {
		if r.isSeam(r.entries[i], r.entries[i+1]) {
			r.insertCatchUp(i + 1)
			r.slack--
			r.report.Seams++
		}
	}
}

func (r *repairer) appendTail() {
	if r.slack <= 0 {
		return
	}
	last := r.entries[len(r.entries)-1].Date
	r.entries = append(r.entries, r.catchUp(last.AddDays(1)))
	r.slack--
	r.report.Tail++
}

// splitMerged: 余量按书卷数扣减；实际只占 titles-1 天，剩余由 distribute 按日期重算。
func (r *repairer) splitMerged() error {
	for r.slack > 1 {
		room := r.remaining()
		idx := -1
		for i, e := range r.entries {
			if !e.Merged() || len(e.Titles)-1 > room {
				continue
			}
			// 并列时取最后一个
			if idx < 0 || e.Chapters >= r.entries[idx].Chapters {
				idx = i
			}
		}
		if idx < 0 {
			return nil
		}
		target := r.entries[idx]
		parts := make([]contract.ScheduleEntry, len(target.Titles))
		for i, title := range target.Titles {
			n, ok := r.counts[title]
			if !ok {
				return fmt.Errorf("%w: no chapter count for %s", contract.ErrInvariantViolation, title)
			}
			parts[i] = contract.ScheduleEntry{Titles: []string{title}, Chapters: n, Date: target.Date.AddDays(i)}
		}
		rest := append([]contract.ScheduleEntry(nil), r.entries[idx+1:]...)
		r.entries = append(append(r.entries[:idx], parts...), rest...)
		r.shift(idx+len(parts), len(parts)-1)
		r.slack -= len(parts)
		r.report.Splits++
	}
	return nil
}

func (r *repairer) distribute() {
	slack := r.remaining()
	if slack <= 0 {
		return
	}
	span := r.entries[len(r.entries)-1].Date.DaysSince(r.entries[0].Date)
	interval := span / (slack + 1)
	k := 1
	// 边界随插入增长；插入总数受 slack 约束
	for i := 0; i+1 < len(r.entries) && r.report.Spread < slack; i++ {
		if i > interval*k && !r.entries[i].SameTitles(r.entries[i+1]) {
			r.insertCatchUp(i + 1)
			r.report.Spread++
			k++
		}
	}
}

func (r *repairer) fill() {
	for r.remaining() > 0 {
		last := r.entries[len(r.entries)-1].Date
		r.entries = append(r.entries, r.catchUp(last.AddDays(1)))
		r.report.Filled++
	}
}
