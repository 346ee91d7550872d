package contract

import "fmt"

// Summarize 按首次出现顺序把章记录聚合为书卷记录，并做结构校验：
// - Title 非空，Length >= 0；
// - 同一书卷的章记录必须相邻（不得与其他书卷交错）；
// - 章号自 1 起连续递增。
func Summarize(chapters []ChapterRecord) ([]BookRecord, error) {
	if len(chapters) == 0 {
		return nil, fmt.Errorf("%w: empty corpus", ErrInvalidInput)
	}
	seen := make(map[string]bool)
	var books []BookRecord
	for i, c := range chapters {
		if c.Title == "" {
			return nil, fmt.Errorf("%w: record %d has empty title", ErrInvalidInput, i)
		}
		if c.Length < 0 {
			return nil, fmt.Errorf("%w: %s %d has negative length %d", ErrInvalidInput, c.Title, c.Chapter, c.Length)
		}
		if n := len(books); n > 0 && books[n-1].Title == c.Title {
			cur := &books[n-1]
			if c.Chapter != cur.Chapters+1 {
				return nil, fmt.Errorf("%w: %s chapter %d follows %d", ErrInvalidInput, c.Title, c.Chapter, cur.Chapters)
			}
			cur.Chapters++
			cur.Length += c.Length
			continue
		}
		if seen[c.Title] {
			return nil, fmt.Errorf("%w: %s is not contiguous", ErrInvalidInput, c.Title)
		}
		if c.Chapter != 1 {
			return nil, fmt.Errorf("%w: %s starts at chapter %d", ErrInvalidInput, c.Title, c.Chapter)
		}
		seen[c.Title] = true
		books = append(books, BookRecord{Title: c.Title, Chapters: 1, Length: c.Length})
	}
	return books, nil
}

// ByTitle 将章记录按书卷分组（每组保持原顺序）。
func ByTitle(chapters []ChapterRecord) map[string][]ChapterRecord {
	out := make(map[string][]ChapterRecord)
	for _, c := range chapters {
		out[c.Title] = append(out[c.Title], c)
	}
	return out
}
