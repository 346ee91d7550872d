package contract

import "cloud.google.com/go/civil"

// ChapterRecord: 语料中的单章记录（只读）。
// 约束：同一 Title 的 Chapter 自 1 起连续递增；Length 为字数（>=0）。
type ChapterRecord struct {
	Book    int // 书卷序号（语料表中的 index 列，用于按序号筛选）
	Title   string
	Chapter int
	Length  int
}

// BookRecord: 按书卷聚合的记录；由 Summarize 一次性构造，之后不可变。
type BookRecord struct {
	Title    string
	Chapters int
	Length   int
}

// DayGroup: 分配器产出的天数组。
// - 单书卷：Titles 长度为 1，Chapters 为该书章数；
// - 合并的短书卷：Titles 长度 >1，Chapters 为各书章数之和。
// 单书卷且 Days>1 时要求 Chapters >= Days。
type DayGroup struct {
	Titles   []string
	Chapters int
	Days     int
}

// ScheduleEntry: 计划中的一天。
// Chapters 为当天读到的结束章（累计），补读日为 0。
type ScheduleEntry struct {
	Titles   []string
	Chapters int
	Date     civil.Date
	// CatchUp: 补读日（无阅读内容，仅吸收取整余量）。
	CatchUp bool
}

// Merged 报告该条目是否为多书卷合并的一天。
func (e ScheduleEntry) Merged() bool { return !e.CatchUp && len(e.Titles) > 1 }

// SameTitles 比较两条目的书卷列表（有序）。
func (e ScheduleEntry) SameTitles(o ScheduleEntry) bool {
	if len(e.Titles) != len(o.Titles) {
		return false
	}
	for i := range e.Titles {
		if e.Titles[i] != o.Titles[i] {
			return false
		}
	}
	return true
}

// HasTitle 报告条目是否包含指定书卷。
func (e ScheduleEntry) HasTitle(title string) bool {
	for _, t := range e.Titles {
		if t == title {
			return true
		}
	}
	return false
}

// DailyLength: 某日的阅读字数（多轨合并后为各轨之和）。
type DailyLength struct {
	Date   civil.Date
	Length int
}

// Track: 一条独立排期的阅读轨道。
type Track struct {
	Name    string
	Entries []ScheduleEntry
	// Lengths: 按日期升序的每日字数；未要求统计时为 nil。
	Lengths []DailyLength
}

// Plan: 交给 Formatter 的最终结果（只读）。
type Plan struct {
	Start  civil.Date
	End    civil.Date
	Tracks []Track
	// Daily: 跨轨道合并后的每日字数；为 nil 表示不输出字数。
	Daily []DailyLength
}
