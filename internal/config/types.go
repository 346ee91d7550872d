package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"readplan/internal/schedule"
	"readplan/pkg/contract"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON 使用 snake_case；未知字段在解析期失败。
type Config struct {
	// 日期区间（闭区间），格式 YYYY-MM-DD。
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	Tracks []Track `json:"tracks"`
	// IncludeLengths: nil 表示未设置（Merge 时不覆盖）。
	IncludeLengths *bool `json:"include_lengths,omitempty"`

	CatchUpLabel string          `json:"catch_up_label"`
	Seams        []schedule.Seam `json:"seams"`
	Standalone   []string        `json:"standalone"`
	Allocator    Allocator       `json:"allocator"`
	Partition    Partition       `json:"partition"`

	Output  Output  `json:"output"`
	Logging Logging `json:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`
	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Track: 一条轨道及其书卷序号。
type Track struct {
	Name  string     `json:"name"`
	Books []BookSpec `json:"books"`
}

// BookSpec: 单个书卷序号或闭区间 "a-b"；JSON 中可为数字或字符串。
type BookSpec string

// UnmarshalJSON 接受 5 或 "1-39"。
func (b *BookSpec) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*b = BookSpec(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("book spec must be a number or string: %s", data)
	}
	*b = BookSpec(s)
	return nil
}

// Expand 返回区间内的全部序号（升序）。
func (b BookSpec) Expand() ([]int, error) {
	s := strings.TrimSpace(string(b))
	lo, hi, isRange := strings.Cut(s, "-")
	from, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return nil, fmt.Errorf("%w: book %q", contract.ErrInvalidInput, s)
	}
	to := from
	if isRange {
		if to, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
			return nil, fmt.Errorf("%w: book %q", contract.ErrInvalidInput, s)
		}
	}
	if from < 1 || to < from {
		return nil, fmt.Errorf("%w: book range %q", contract.ErrInvalidInput, s)
	}
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out, nil
}

// ParseBooks 解析逗号分隔的书卷列表，例如 "1-39,41"。
func ParseBooks(s string) ([]BookSpec, error) {
	var out []BookSpec
	for _, p := range splitComma(s) {
		b := BookSpec(p)
		if _, err := b.Expand(); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty book list", contract.ErrInvalidInput)
	}
	return out, nil
}

// Allocator: 天数分配阈值；0 表示使用默认。
type Allocator struct {
	MergeThreshold  float64 `json:"merge_threshold"`
	FlushThreshold  float64 `json:"flush_threshold"`
	TruncateDivisor float64 `json:"truncate_divisor"`
}

// Partition: 二分切分参数；0 表示使用默认。
type Partition struct {
	MaxIterations int `json:"max_iterations"`
}

// Output: 工件命名与目录（目录注入 fs writer）。
type Output struct {
	Dir    string `json:"dir"`
	Prefix string `json:"prefix"`
}

// Logging: 日志等级与目录。
type Logging struct {
	Level string `json:"level"`
	Dir   string `json:"dir"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader    string `json:"reader"`
	Formatter string `json:"formatter"`
	Writer    string `json:"writer"`
}

// Options: 各组件的原样 JSON Options。
type Options struct {
	Reader    json.RawMessage `json:"reader,omitempty"`
	Formatter json.RawMessage `json:"formatter,omitempty"`
	Writer    json.RawMessage `json:"writer,omitempty"`
}
