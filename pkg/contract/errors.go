package contract

import "errors"

// 排期与 I/O 相关的最小错误分类。所有错误对本次运行都是终止性的。
var (
	// ErrOverAllocation: 天数预算超过可用章数（每天一章也排不满）。
	ErrOverAllocation = errors.New("over allocation")
	// ErrInsufficientChapters: 书卷分到的天数超过其章数。
	ErrInsufficientChapters = errors.New("insufficient chapters")
	// ErrDateOverflow: 分配出的日期越过结束日期（上游不变量被破坏）。
	ErrDateOverflow = errors.New("date overflow")
	// ErrPartitionNotConverged: 章节二分切分在迭代上限内未得到目标组数。
	ErrPartitionNotConverged = errors.New("partition not converged")
	// ErrInvalidInput: 输入结构不合法（空语料、章号不连续、日期倒置等）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
)
