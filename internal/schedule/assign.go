package schedule

import (
	"fmt"

	"cloud.google.com/go/civil"

	"readplan/pkg/contract"
)

// Assign 按语料顺序遍历 DayGroup，为每个阅读单元盖上日期。
// corpus 为按书卷分组的章记录（见 contract.ByTitle）。
// 任一日期越过 end 返回 ErrDateOverflow。
func Assign(groups []contract.DayGroup, corpus map[string][]contract.ChapterRecord, start, end civil.Date, opts Options) ([]contract.ScheduleEntry, error) {
	opts = opts.withDefaults()
	out := make([]contract.ScheduleEntry, 0, len(groups))
	cur := start
	emit := func(titles []string, chapters int) error {
		if cur.After(end) {
			return fmt.Errorf("%w: %s on %s is after %s", contract.ErrDateOverflow, titles[0], cur, end)
		}
		out = append(out, contract.ScheduleEntry{Titles: cloneTitles(titles), Chapters: chapters, Date: cur})
		cur = cur.AddDays(1)
		return nil
	}

	for _, g := range groups {
		if len(g.Titles) == 0 || g.Days < 1 {
			return nil, fmt.Errorf("%w: malformed day group %+v", contract.ErrInvariantViolation, g)
		}
		if g.Days == 1 {
			if err := emit(g.Titles, g.Chapters); err != nil {
				return nil, err
			}
			continue
		}
		if len(g.Titles) != 1 {
			return nil, fmt.Errorf("%w: merged group %v spans %d days", contract.ErrInvariantViolation, g.Titles, g.Days)
		}
		chapters, ok := corpus[g.Titles[0]]
		if !ok {
			return nil, fmt.Errorf("%w: no chapters for %s", contract.ErrInvariantViolation, g.Titles[0])
		}
		ends, err := Partition(chapters, g.Days, opts.MaxIterations)
		if err != nil {
			return nil, err
		}
		for _, ch := range ends {
			if err := emit(g.Titles, ch); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func cloneTitles(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
