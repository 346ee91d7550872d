package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"readplan/internal/schedule"
)

// EnvPrefix 为所有环境变量覆盖的前缀。
const EnvPrefix = "READPLAN_"

// Defaults 返回带有安全默认值的 Config 雏形。
// 注意：日期与轨道不设默认（必须由文件/ENV/CLI 提供）。
func Defaults() Config {
	return Config{
		CatchUpLabel: schedule.DefaultCatchUpLabel,
		Allocator: Allocator{
			MergeThreshold:  schedule.DefaultMergeThreshold,
			FlushThreshold:  schedule.DefaultFlushThreshold,
			TruncateDivisor: schedule.DefaultTruncateDivisor,
		},
		Partition: Partition{MaxIterations: schedule.DefaultMaxIterations},
		Output:    Output{Dir: ".", Prefix: "reading_plan"},
		Logging:   Logging{Level: "info", Dir: "logs"},
		Components: Components{
			Reader:    "csv",
			Formatter: "text",
			Writer:    "fs",
		},
	}
}

// LoadFile 按扩展名解析配置文件：.yaml/.yml 走 YAML，其余按 JSON。
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(raw)
	default:
		return LoadJSON(raw)
	}
}

// LoadJSON 严格解析 JSON（拒绝未知字段与尾随内容）。
func LoadJSON(raw []byte) (Config, error) {
	var cfg Config
	if len(bytes.TrimSpace(raw)) == 0 {
		return cfg, errors.New("config: empty source")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if dec.More() {
		return cfg, errors.New("config: trailing data after object")
	}
	return cfg, nil
}

// LoadYAML 将 YAML 转为 JSON 后走同一严格解析，保证两种格式的字段约束一致。
func LoadYAML(raw []byte) (Config, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Config{}, fmt.Errorf("config: yaml: %w", err)
	}
	if doc == nil {
		return Config{}, errors.New("config: empty source")
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return Config{}, fmt.Errorf("config: yaml to json: %w", err)
	}
	return LoadJSON(js)
}

// Merge 按优先级合并（后者覆盖前者）。
// 标量非零即覆盖；切片与原样 JSON 整体替换；不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if s := strings.TrimSpace(over.StartDate); s != "" {
		out.StartDate = s
	}
	if s := strings.TrimSpace(over.EndDate); s != "" {
		out.EndDate = s
	}
	if len(over.Tracks) > 0 {
		out.Tracks = cloneTracks(over.Tracks)
	}
	if over.IncludeLengths != nil {
		v := *over.IncludeLengths
		out.IncludeLengths = &v
	}
	if over.CatchUpLabel != "" {
		out.CatchUpLabel = over.CatchUpLabel
	}
	if over.Seams != nil {
		out.Seams = append([]schedule.Seam(nil), over.Seams...)
	}
	if over.Standalone != nil {
		out.Standalone = cloneStrings(over.Standalone)
	}
	if over.Allocator.MergeThreshold != 0 {
		out.Allocator.MergeThreshold = over.Allocator.MergeThreshold
	}
	if over.Allocator.FlushThreshold != 0 {
		out.Allocator.FlushThreshold = over.Allocator.FlushThreshold
	}
	if over.Allocator.TruncateDivisor != 0 {
		out.Allocator.TruncateDivisor = over.Allocator.TruncateDivisor
	}
	if over.Partition.MaxIterations != 0 {
		out.Partition.MaxIterations = over.Partition.MaxIterations
	}
	if s := strings.TrimSpace(over.Output.Dir); s != "" {
		out.Output.Dir = s
	}
	if s := strings.TrimSpace(over.Output.Prefix); s != "" {
		out.Output.Prefix = s
	}
	if s := strings.TrimSpace(over.Logging.Level); s != "" {
		out.Logging.Level = s
	}
	if s := strings.TrimSpace(over.Logging.Dir); s != "" {
		out.Logging.Dir = s
	}

	// 组件名（空不覆盖）
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Formatter != "" {
		out.Components.Formatter = over.Components.Formatter
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}

	// Options（完整替换对应键）
	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneRaw(over.Options.Reader)
	}
	if len(over.Options.Formatter) > 0 {
		out.Options.Formatter = cloneRaw(over.Options.Formatter)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}
	return out
}

// envSource: READPLAN_* 环境变量映射；空值视为未设置。
type envSource struct {
	ConfigFile     string `env:"CONFIG_FILE"`
	ConfigJSON     string `env:"CONFIG_JSON"`
	StartDate      string `env:"START_DATE"`
	EndDate        string `env:"END_DATE"`
	Books          string `env:"BOOKS"`
	IncludeLengths string `env:"INCLUDE_LENGTHS"`
	CatchUpLabel   string `env:"CATCH_UP_LABEL"`
	Standalone     string `env:"STANDALONE"`
	MaxIterations  int    `env:"PARTITION_MAX_ITERATIONS"`
	OutputDir      string `env:"OUTPUT_DIR"`
	OutputPrefix   string `env:"OUTPUT_PREFIX"`
	LogLevel       string `env:"LOG_LEVEL"`
	LogDir         string `env:"LOG_DIR"`

	Reader    string `env:"COMPONENTS_READER"`
	Formatter string `env:"COMPONENTS_FORMATTER"`
	Writer    string `env:"COMPONENTS_WRITER"`

	ReaderOptions    string `env:"OPTIONS_READER_JSON"`
	FormatterOptions string `env:"OPTIONS_FORMATTER_JSON"`
	WriterOptions    string `env:"OPTIONS_WRITER_JSON"`
}

// Source: 由环境变量指定的配置来源（文件路径或原始 JSON）。
type Source struct {
	File string
	JSON string
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（前缀 READPLAN_）。
// READPLAN_BOOKS 以单条轨道 "main" 替换配置中的轨道。
func EnvOverlay(environ []string) (Config, Source, error) {
	var src envSource
	if err := env.ParseWithOptions(&src, env.Options{
		Prefix:      EnvPrefix,
		Environment: envMap(environ),
	}); err != nil {
		return Config{}, Source{}, fmt.Errorf("config: env: %w", err)
	}

	var over Config
	over.StartDate = src.StartDate
	over.EndDate = src.EndDate
	if strings.TrimSpace(src.Books) != "" {
		books, err := ParseBooks(src.Books)
		if err != nil {
			return Config{}, Source{}, fmt.Errorf("config: %sBOOKS: %w", EnvPrefix, err)
		}
		over.Tracks = []Track{{Name: "main", Books: books}}
	}
	if s := strings.TrimSpace(src.IncludeLengths); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return Config{}, Source{}, fmt.Errorf("config: %sINCLUDE_LENGTHS: %w", EnvPrefix, err)
		}
		over.IncludeLengths = &v
	}
	over.CatchUpLabel = src.CatchUpLabel
	if s := strings.TrimSpace(src.Standalone); s != "" {
		over.Standalone = splitComma(s)
	}
	over.Partition.MaxIterations = src.MaxIterations
	over.Output = Output{Dir: src.OutputDir, Prefix: src.OutputPrefix}
	over.Logging = Logging{Level: src.LogLevel, Dir: src.LogDir}
	over.Components = Components{
		Reader:    strings.TrimSpace(src.Reader),
		Formatter: strings.TrimSpace(src.Formatter),
		Writer:    strings.TrimSpace(src.Writer),
	}
	for _, o := range []struct {
		name string
		val  string
		dst  *json.RawMessage
	}{
		{"OPTIONS_READER_JSON", src.ReaderOptions, &over.Options.Reader},
		{"OPTIONS_FORMATTER_JSON", src.FormatterOptions, &over.Options.Formatter},
		{"OPTIONS_WRITER_JSON", src.WriterOptions, &over.Options.Writer},
	} {
		if strings.TrimSpace(o.val) == "" {
			continue
		}
		if !json.Valid([]byte(o.val)) {
			return Config{}, Source{}, fmt.Errorf("config: %s%s: invalid JSON", EnvPrefix, o.name)
		}
		*o.dst = json.RawMessage(o.val)
	}
	return over, Source{File: strings.TrimSpace(src.ConfigFile), JSON: src.ConfigJSON}, nil
}

func envMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}

func cloneTracks(in []Track) []Track {
	out := make([]Track, len(in))
	for i, t := range in {
		out[i] = Track{Name: t.Name, Books: append([]BookSpec(nil), t.Books...)}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
