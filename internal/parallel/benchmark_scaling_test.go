package parallel

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/gogpu/tileconv/internal/ndrange"
)

// setMaxProcs sets GOMAXPROCS and returns a cleanup function to restore it.
func setMaxProcs(n int) func() {
	old := runtime.GOMAXPROCS(n)
	return func() {
		runtime.GOMAXPROCS(old)
	}
}

// BenchmarkScaling_ScratchGroups dispatches 1024 groups that each fill and
// reduce a halo-extended scratch tile, across worker counts.
//
// Run with: go test -bench=BenchmarkScaling -benchtime=1s ./internal/parallel/...
func BenchmarkScaling_ScratchGroups(b *testing.B) {
	extent := ndrange.R(18, 18)
	for _, procs := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("procs%d", procs), func(b *testing.B) {
			defer setMaxProcs(procs)()
			pool := NewGroupPool(procs)
			defer pool.Close()
			scratch := NewScratchPool()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = pool.Dispatch(1024, func(int) {
					s := scratch.Get(extent)
					for r := range extent.Rows {
						for c := range extent.Cols {
							s.Set(r, c, s.At(r, c).Add(s.At(0, 0)))
						}
					}
					scratch.Put(s)
				})
			}
		})
	}
}
