package contract

import "io"

// Formatter: 将最终计划渲染为逐日文本行。纯函数语义，无 I/O 以外副作用。
type Formatter interface {
	Format(w io.Writer, plan Plan) error
}
