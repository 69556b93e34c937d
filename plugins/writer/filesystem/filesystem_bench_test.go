package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"pgrep/pkg/contract"
)

// BenchmarkWrite 不同报告尺寸下的写入性能（每条记录 LineWidth 字节）。
func BenchmarkWrite(b *testing.B) {
	for _, rows := range []int{16, 16 * 1024} {
		b.Run(fmt.Sprintf("rows=%d", rows), func(b *testing.B) {
			data := bytes.Repeat([]byte("a"), rows*contract.LineWidth)
			w, err := New(&Options{OutputDir: b.TempDir()})
			if err != nil {
				b.Fatalf("创建 Writer 失败: %v", err)
			}
			ctx := context.Background()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := w.Write(ctx, "output.txt", bytes.NewReader(data)); err != nil {
					b.Fatalf("写入失败: %v", err)
				}
			}
		})
	}
}
