package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"testing"
)

// BenchmarkWrite 测量不同计划尺寸下的写入开销（一年计划约 20KiB）。
func BenchmarkWrite(b *testing.B) {
	for _, sz := range []int{20 * 1024, 1024 * 1024} {
		b.Run(fmt.Sprintf("size=%d", sz), func(b *testing.B) {
			data := bytes.Repeat([]byte("Jan  1, 2025 Genesis 1-3\n"), sz/25)
			w, err := New(&Options{Dir: b.TempDir()})
			if err != nil {
				b.Fatalf("创建 Writer 失败: %v", err)
			}
			ctx := context.Background()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := w.Write(ctx, "reading_plan", bytes.NewReader(data)); err != nil {
					b.Fatalf("写入失败: %v", err)
				}
			}
		})
	}
}
