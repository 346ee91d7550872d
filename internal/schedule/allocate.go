package schedule

import (
	"fmt"
	"math"

	"readplan/pkg/contract"
)

// Allocate 按字数比例把 days 天分配给各书卷，产出有序 DayGroup。
//
// 份额不足 MergeThreshold 的短书卷进入缓冲，累计份额达到 FlushThreshold 后合并为一组；
// 长书卷单独成组（先冲刷缓冲）。取整偏向少分，差额由 Repair 吸收。
func Allocate(books []contract.BookRecord, days int, opts Options) ([]contract.DayGroup, error) {
	opts = opts.withDefaults()
	if len(books) == 0 {
		return nil, fmt.Errorf("%w: no books to allocate", contract.ErrInvalidInput)
	}
	if days < 1 {
		return nil, fmt.Errorf("%w: day budget %d", contract.ErrInvalidInput, days)
	}
	totalChapters, totalLength := 0, 0
	for _, b := range books {
		totalChapters += b.Chapters
		totalLength += b.Length
	}
	if days > totalChapters {
		return nil, fmt.Errorf("%w: %d days exceed %d chapters", contract.ErrOverAllocation, days, totalChapters)
	}
	if totalLength == 0 {
		return nil, fmt.Errorf("%w: corpus has no words", contract.ErrInvalidInput)
	}

	standalone := make(map[string]bool, len(opts.Standalone))
	for _, t := range opts.Standalone {
		standalone[t] = true
	}

	var (
		out         []contract.DayGroup
		pending     []string
		pendingCh   int
		pendingDays float64
	)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		out = append(out, contract.DayGroup{Titles: pending, Chapters: pendingCh, Days: roundDays(pendingDays, days, opts)})
		pending, pendingCh, pendingDays = nil, 0, 0
	}

	for _, b := range books {
		share := float64(b.Length) / float64(totalLength) * float64(days)
		if share >= opts.MergeThreshold || standalone[b.Title] {
			flush()
			out = append(out, contract.DayGroup{Titles: []string{b.Title}, Chapters: b.Chapters, Days: roundDays(share, days, opts)})
			continue
		}
		pending = append(pending, b.Title)
		pendingCh += b.Chapters
		pendingDays += share
		if pendingDays >= opts.FlushThreshold {
			flush()
		}
	}
	flush()
	return out, nil
}

// roundDays: 大份额截断，小份额四舍五入，最少 1 天。
func roundDays(share float64, days int, opts Options) int {
	limit := float64(days) / opts.TruncateDivisor
	var n int
	if share > limit {
		n = int(share)
	} else {
		n = int(math.Round(share))
	}
	if n < 1 {
		n = 1
	}
	return n
}
