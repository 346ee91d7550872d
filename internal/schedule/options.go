package schedule

// 默认参数。
const (
	DefaultMergeThreshold  = 0.66
	DefaultFlushThreshold  = 1.0
	DefaultTruncateDivisor = 30.0
	DefaultMaxIterations   = 100
	DefaultCatchUpLabel    = "Catch-up day"
)

// Seam: 结构性分界（例如上一部分的最后一卷 → 下一部分的第一卷）。
// 相邻两天分别包含 Before 与 After 时，优先在其间插入补读日。
type Seam struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// Options: 分配/切分/修复的可注入参数；零值字段使用默认值。
type Options struct {
	// MergeThreshold: 理想天数份额不低于该值的书卷单独成组。
	MergeThreshold float64
	// FlushThreshold: 合并缓冲的累计份额达到该值即出组。
	FlushThreshold float64
	// TruncateDivisor: 份额超过 days/TruncateDivisor 时向零截断，否则四舍五入。
	TruncateDivisor float64
	// Standalone: 无论份额大小都不参与合并的书卷。
	Standalone []string
	// MaxIterations: 章节二分切分的迭代上限。
	MaxIterations int
	// Seams: 结构分界表，按顺序匹配。
	Seams []Seam
	// CatchUpLabel: 补读日的标题。
	CatchUpLabel string
}

func (o Options) withDefaults() Options {
	if o.MergeThreshold <= 0 {
		o.MergeThreshold = DefaultMergeThreshold
	}
	if o.FlushThreshold <= 0 {
		o.FlushThreshold = DefaultFlushThreshold
	}
	if o.TruncateDivisor <= 0 {
		o.TruncateDivisor = DefaultTruncateDivisor
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.CatchUpLabel == "" {
		o.CatchUpLabel = DefaultCatchUpLabel
	}
	return o
}
