package contract

import "context"

// CorpusReader: 语料来源抽象（CSV/SQLite 等）。
// 约束：
// 1) 仅返回 books 中列出的书卷（books 为空表示全部）；
// 2) 保持语料原始顺序，不排序、不去重；
// 3) 不做结构校验以外的业务处理（校验见 Summarize）；
// 4) 不在内部起并发。
type CorpusReader interface {
	Read(ctx context.Context, books []int) ([]ChapterRecord, error)
}
