package schedule

import (
	"time"

	"cloud.google.com/go/civil"

	"readplan/pkg/contract"
)

func day(d int) civil.Date { return civil.Date{Year: 2025, Month: time.January, Day: d} }

// book 按给定每章字数生成一卷章记录。
func book(idx int, title string, lengths ...int) []contract.ChapterRecord {
	out := make([]contract.ChapterRecord, len(lengths))
	for i, l := range lengths {
		out[i] = contract.ChapterRecord{Book: idx, Title: title, Chapter: i + 1, Length: l}
	}
	return out
}

func corpusOf(books ...[]contract.ChapterRecord) []contract.ChapterRecord {
	var out []contract.ChapterRecord
	for _, b := range books {
		out = append(out, b...)
	}
	return out
}

// sampleCorpus: 四卷、共 850 字；10 天预算时 Alpha 分 5 天、Beta+Gamma 合并 1 天、Delta 3 天。
func sampleCorpus() []contract.ChapterRecord {
	return corpusOf(
		book(1, "Alpha", 50, 50, 100, 100, 100, 100),
		book(2, "Beta", 20),
		book(3, "Gamma", 30),
		book(4, "Delta", 50, 50, 100, 100),
	)
}

func entry(date civil.Date, chapters int, titles ...string) contract.ScheduleEntry {
	return contract.ScheduleEntry{Titles: titles, Chapters: chapters, Date: date}
}

func catchUp(date civil.Date) contract.ScheduleEntry {
	return contract.ScheduleEntry{Titles: []string{DefaultCatchUpLabel}, Date: date, CatchUp: true}
}
