package wide

import "testing"

func BenchmarkF32x4_LoadStore(b *testing.B) {
	buf := make([]float32, 64*Lanes)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		j := i & 63
		LoadF32x4(buf, j).Scale(0.5).Store(buf, j)
	}
}
