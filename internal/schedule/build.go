package schedule

import (
	"fmt"

	"cloud.google.com/go/civil"

	"readplan/pkg/contract"
)

// Result: 单条轨道的排期结果。
type Result struct {
	Books   []contract.BookRecord
	Groups  []contract.DayGroup
	Entries []contract.ScheduleEntry
	Report  Report
}

// DayBudget 返回 [start, end] 闭区间内的天数；end 不晚于 start 时返回 ErrInvalidInput。
func DayBudget(start, end civil.Date) (int, error) {
	if !start.IsValid() || !end.IsValid() {
		return 0, fmt.Errorf("%w: invalid date %s..%s", contract.ErrInvalidInput, start, end)
	}
	if !end.After(start) {
		return 0, fmt.Errorf("%w: end %s must be after start %s", contract.ErrInvalidInput, end, start)
	}
	return end.DaysSince(start) + 1, nil
}

// Build 对单条轨道执行 Summarize → Allocate → Assign → Repair。
func Build(chapters []contract.ChapterRecord, start, end civil.Date, opts Options) (Result, error) {
	days, err := DayBudget(start, end)
	if err != nil {
		return Result{}, err
	}
	books, err := contract.Summarize(chapters)
	if err != nil {
		return Result{}, err
	}
	groups, err := Allocate(books, days, opts)
	if err != nil {
		return Result{}, fmt.Errorf("allocate: %w", err)
	}
	corpus := contract.ByTitle(chapters)
	entries, err := Assign(groups, corpus, start, end, opts)
	if err != nil {
		return Result{}, fmt.Errorf("assign: %w", err)
	}
	entries, rep, err := Repair(entries, end, books, opts)
	if err != nil {
		return Result{}, fmt.Errorf("repair: %w", err)
	}
	return Result{Books: books, Groups: groups, Entries: entries, Report: rep}, nil
}
