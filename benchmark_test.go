package tileconv

import (
	"context"
	"fmt"
	"testing"
)

func benchmarkConvolver(b *testing.B, size, width int, opts ...Option) {
	b.Helper()
	f, err := GaussianFilter(width, 0)
	if err != nil {
		b.Fatal(err)
	}
	in := randomImage(size+2*f.HalfWidth(), size+2*f.HalfWidth(), 7)
	out := NewImage(size, size)

	c := NewConvolver(append([]Option{WithBackend(BackendCPU)}, opts...)...)
	defer c.Close()
	ctx := context.Background()

	b.SetBytes(int64(len(out.Data) * 4))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.Convolve(ctx, in, f, out); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportMetric(float64(size*size)*float64(b.N)/b.Elapsed().Seconds()/1e6, "Mpx/s")
}

func BenchmarkConvolveModes(b *testing.B) {
	for _, m := range []Mode{ModeGoroutines, ModePhased} {
		b.Run(m.String(), func(b *testing.B) {
			benchmarkConvolver(b, 256, 11, WithMode(m))
		})
	}
}

func BenchmarkConvolveTileSizes(b *testing.B) {
	for _, tile := range []int{4, 8, 16} {
		b.Run(fmt.Sprintf("tile%d", tile), func(b *testing.B) {
			benchmarkConvolver(b, 256, 7, WithTileSize(tile, tile), WithMode(ModePhased))
		})
	}
}

func BenchmarkConvolveFilterWidths(b *testing.B) {
	for _, w := range []int{3, 11, 21} {
		b.Run(fmt.Sprintf("width%d", w), func(b *testing.B) {
			benchmarkConvolver(b, 128, w, WithMode(ModePhased))
		})
	}
}
