package schedule

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"

	"readplan/pkg/contract"
)

// DailyLengths 计算单条轨道每个条目当天读的字数。
// - 单卷：同卷接续时从上一结束章的下一章起，换卷时从第 1 章起，累加到当天结束章；
// - 合并日：各卷全文字数之和；
// - 补读日：0，并打断接续关系（其后同卷从第 1 章起）。
// 同一日期出现多次时合并。
func DailyLengths(entries []contract.ScheduleEntry, corpus map[string][]contract.ChapterRecord) ([]contract.DailyLength, error) {
	prefix := make(map[string][]int, len(corpus))
	for title, chapters := range corpus {
		p := make([]int, len(chapters)+1)
		for i, c := range chapters {
			p[i+1] = p[i] + c.Length
		}
		prefix[title] = p
	}
	span := func(title string, from, to int) (int, error) {
		p, ok := prefix[title]
		if !ok {
			return 0, fmt.Errorf("%w: unknown title %s", contract.ErrInvalidInput, title)
		}
		if from < 1 || to >= len(p) || from > to+1 {
			return 0, fmt.Errorf("%w: %s chapters %d-%d out of range", contract.ErrInvalidInput, title, from, to)
		}
		return p[to] - p[from-1], nil
	}

	out := make([]contract.DailyLength, 0, len(entries))
	prevTitle, prevCh := "", 0
	for _, e := range entries {
		n := 0
		switch {
		case e.CatchUp:
			prevTitle, prevCh = "", 0
		case len(e.Titles) > 1:
			for _, title := range e.Titles {
				l, err := span(title, 1, len(prefix[title])-1)
				if err != nil {
					return nil, err
				}
				n += l
			}
			prevTitle, prevCh = "", 0
		case len(e.Titles) == 1:
			from := 1
			if e.Titles[0] == prevTitle {
				from = prevCh + 1
			}
			l, err := span(e.Titles[0], from, e.Chapters)
			if err != nil {
				return nil, err
			}
			n = l
			prevTitle, prevCh = e.Titles[0], e.Chapters
		}
		out = append(out, contract.DailyLength{Date: e.Date, Length: n})
	}
	return MergeDaily(out), nil
}

// MergeDaily 按日期合并多条轨道的字数，按日期升序输出。
func MergeDaily(tracks ...[]contract.DailyLength) []contract.DailyLength {
	sum := make(map[civil.Date]int)
	for _, tr := range tracks {
		for _, d := range tr {
			sum[d.Date] += d.Length
		}
	}
	out := make([]contract.DailyLength, 0, len(sum))
	for d, n := range sum {
		out = append(out, contract.DailyLength{Date: d, Length: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
