package kernel

import (
	"math/rand/v2"
	"testing"

	"github.com/gogpu/tileconv/internal/ndrange"
	"github.com/gogpu/tileconv/internal/wide"
)

// Test helper functions shared across kernel tests.

// newParams builds Params with a random padded input and a normalized
// random filter. Values are deterministic for a given seed.
func newParams(t testing.TB, global, local ndrange.Range, filterWidth int, seed uint64) Params {
	t.Helper()

	nd, err := ndrange.New(global, local)
	if err != nil {
		t.Fatalf("ndrange.New(%v, %v): %v", global, local, err)
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	halo := filterWidth / 2
	inRows := global.Rows + 2*halo
	inCols := global.Cols + 2*halo

	in := make([]float32, inRows*inCols*wide.Lanes)
	for i := range in {
		in[i] = rng.Float32() * 255
	}

	n := filterWidth * filterWidth
	filter := make([]float32, n*wide.Lanes)
	var sum float32
	raw := make([]float32, n)
	for i := range raw {
		raw[i] = rng.Float32() + 0.1
		sum += raw[i]
	}
	for i, v := range raw {
		wide.SplatF32x4(v/sum).Store(filter, i)
	}

	return Params{
		In:          in,
		Filter:      filter,
		FilterWidth: filterWidth,
		Out:         make([]float32, global.Size()*wide.Lanes),
		Range:       nd,
	}
}

// withFreshOutput returns a copy of p with its own zeroed output buffer.
func withFreshOutput(p Params) Params {
	p.Out = make([]float32, len(p.Out))
	return p
}

// firstDiff reports the first index where a and b differ, or -1.
func firstDiff(a, b []float32) int {
	for i := range a {
		if a[i] != b[i] {
			return i
		}
	}
	return -1
}
