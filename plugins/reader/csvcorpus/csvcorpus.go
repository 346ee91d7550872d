package csvcorpus

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"readplan/pkg/contract"
)

// 语料表列名（首行表头，顺序不限，大小写不敏感）。
var columns = []string{"index", "title", "chapter", "length"}

// Options 为 CSV 语料 Reader 的选项（最小必要）。
type Options struct {
	// Path: 语料文件路径；"-" 表示 STDIN。必需。
	Path string `json:"path"`
	// Comma: 字段分隔符（单字符），默认 ","。
	Comma string `json:"comma,omitempty"`
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `json:"buf_size,omitempty"`
}

// Reader 从 CSV 表读取章记录。
type Reader struct {
	path    string
	comma   rune
	bufSize int
	stdin   io.Reader
}

// New 创建 CSV 语料 Reader。
func New(opts *Options) (*Reader, error) {
	if opts == nil || strings.TrimSpace(opts.Path) == "" {
		return nil, fmt.Errorf("%w: csv reader requires path", contract.ErrInvalidInput)
	}
	comma := ','
	if opts.Comma != "" {
		r, size := utf8.DecodeRuneInString(opts.Comma)
		if size != len(opts.Comma) || r == utf8.RuneError || r == '"' || r == '\n' || r == '\r' {
			return nil, fmt.Errorf("%w: invalid comma %q", contract.ErrInvalidInput, opts.Comma)
		}
		comma = r
	}
	b := 64 * 1024
	if opts.BufSize > 0 {
		b = opts.BufSize
	}
	return &Reader{path: opts.Path, comma: comma, bufSize: b, stdin: os.Stdin}, nil
}

var _ contract.CorpusReader = (*Reader)(nil)

// Read 按文件顺序返回 books 中列出的书卷的章记录（books 为空表示全部）。
func (r *Reader) Read(ctx context.Context, books []int) ([]contract.ChapterRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if r.path == "-" {
		return r.decode(ctx, bufio.NewReaderSize(r.stdin, r.bufSize), books)
	}
	f, err := os.Open(r.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return r.decode(ctx, bufio.NewReaderSize(f, r.bufSize), books)
}

func (r *Reader) decode(ctx context.Context, in io.Reader, books []int) ([]contract.ChapterRecord, error) {
	want := make(map[int]bool, len(books))
	for _, b := range books {
		want[b] = true
	}
	cr := csv.NewReader(in)
	cr.Comma = r.comma
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s is empty", contract.ErrInvalidInput, r.path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contract.ErrInvalidInput, err)
	}
	pos, err := columnPositions(header)
	if err != nil {
		return nil, err
	}

	var out []contract.ChapterRecord
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", contract.ErrInvalidInput, err)
		}
		line, _ := cr.FieldPos(0)
		rec, err := parseRow(row, pos)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", contract.ErrInvalidInput, line, err)
		}
		if len(want) > 0 && !want[rec.Book] {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func columnPositions(header []string) (map[string]int, error) {
	pos := make(map[string]int, len(columns))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range columns {
		if _, ok := pos[c]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", contract.ErrInvalidInput, c)
		}
	}
	return pos, nil
}

func parseRow(row []string, pos map[string]int) (contract.ChapterRecord, error) {
	var rec contract.ChapterRecord
	ints := []struct {
		name string
		dst  *int
	}{{"index", &rec.Book}, {"chapter", &rec.Chapter}, {"length", &rec.Length}}
	for _, f := range ints {
		v, err := strconv.Atoi(strings.TrimSpace(row[pos[f.name]]))
		if err != nil {
			return rec, fmt.Errorf("column %s: %w", f.name, err)
		}
		*f.dst = v
	}
	rec.Title = strings.TrimSpace(row[pos["title"]])
	return rec, nil
}
