package sqlitecorpus

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	"readplan/pkg/contract"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Options 为 SQLite 语料 Reader 的选项。
// 表结构：book INTEGER, title TEXT, chapter INTEGER, length INTEGER；按 rowid 保序。
type Options struct {
	// Path: 数据库文件路径（必需，须已存在）。
	Path string `json:"path"`
	// Table: 表名，默认 chapters。
	Table string `json:"table,omitempty"`
}

// Reader 从 SQLite 表读取章记录（只读）。
type Reader struct {
	path  string
	table string
}

// New 创建 SQLite 语料 Reader。
func New(opts *Options) (*Reader, error) {
	if opts == nil || strings.TrimSpace(opts.Path) == "" {
		return nil, fmt.Errorf("%w: sqlite reader requires path", contract.ErrInvalidInput)
	}
	table := strings.TrimSpace(opts.Table)
	if table == "" {
		table = "chapters"
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("%w: invalid table name %q", contract.ErrInvalidInput, table)
	}
	return &Reader{path: opts.Path, table: table}, nil
}

var _ contract.CorpusReader = (*Reader)(nil)

// Read 返回 books 中列出的书卷的章记录（books 为空表示全部），按 rowid 升序。
func (r *Reader) Read(ctx context.Context, books []int) ([]contract.ChapterRecord, error) {
	// 不存在时 sqlite 会新建空库；先确认文件存在，保持 I/O 错误原样上抛
	if _, err := os.Stat(r.path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", r.path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := fmt.Sprintf("SELECT book, title, chapter, length FROM %s", r.table)
	args := make([]any, 0, len(books))
	if len(books) > 0 {
		marks := make([]string, len(books))
		for i, b := range books {
			marks[i] = "?"
			args = append(args, b)
		}
		query += " WHERE book IN (" + strings.Join(marks, ",") + ")"
	}
	query += " ORDER BY rowid"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.table, err)
	}
	defer rows.Close()

	var out []contract.ChapterRecord
	for rows.Next() {
		var rec contract.ChapterRecord
		if err := rows.Scan(&rec.Book, &rec.Title, &rec.Chapter, &rec.Length); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", contract.ErrInvalidInput, r.table, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
