package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"readplan/pkg/contract"
	ftext "readplan/plugins/formatter/text"
	rcsv "readplan/plugins/reader/csvcorpus"
	rsql "readplan/plugins/reader/sqlitecorpus"
	wfs "readplan/plugins/writer/filesystem"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: options: %v", contract.ErrInvalidInput, err)
	}
	return nil
}

// NewReader 工厂签名：接收原样 JSON Options。
type NewReader func(raw json.RawMessage) (contract.CorpusReader, error)

// NewFormatter 工厂签名：接收原样 JSON Options。
type NewFormatter func(raw json.RawMessage) (contract.Formatter, error)

// NewWriter 工厂签名：接收原样 JSON Options。
type NewWriter func(raw json.RawMessage) (contract.Writer, error)

// Reader 语料读取器注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// csv: index,title,chapter,length 表（文件或 STDIN）
	"csv": func(raw json.RawMessage) (contract.CorpusReader, error) {
		var opts rcsv.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rcsv.New(&opts)
	},
	// sqlite: SQLite 文件中的 chapters 表
	"sqlite": func(raw json.RawMessage) (contract.CorpusReader, error) {
		var opts rsql.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rsql.New(&opts)
	},
}

// Formatter 注册表。
var Formatter = map[string]NewFormatter{
	"text": func(raw json.RawMessage) (contract.Formatter, error) {
		var opts ftext.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return ftext.New(&opts)
	},
}

// Writer 注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（默认原子替换）
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
}
