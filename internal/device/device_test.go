package device

import (
	"runtime"
	"strings"
	"testing"
)

func TestDetect(t *testing.T) {
	info := Detect()
	if info.Arch != runtime.GOARCH {
		t.Errorf("Arch = %q, want %q", info.Arch, runtime.GOARCH)
	}
	if info.NumCPU < 1 || info.GOMAXPROCS < 1 {
		t.Errorf("NumCPU = %d, GOMAXPROCS = %d", info.NumCPU, info.GOMAXPROCS)
	}
	for _, f := range info.Features {
		if !info.Has(f) {
			t.Errorf("Has(%q) = false for a listed feature", f)
		}
	}
	if info.Has("no-such-feature") {
		t.Error("Has reported an unknown feature")
	}
}

func TestVectorWidth(t *testing.T) {
	tests := []struct {
		features []string
		want     int
	}{
		{nil, 1},
		{[]string{"sse4.1"}, 4},
		{[]string{"asimd", "fphp"}, 4},
		{[]string{"sse4.1", "avx"}, 8},
		{[]string{"avx", "avx2", "fma"}, 8},
		{[]string{"avx2", "avx512f"}, 16},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.features, "+"), func(t *testing.T) {
			if got := (Info{Features: tt.features}).VectorWidth(); got != tt.want {
				t.Errorf("VectorWidth = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	got := Info{Arch: "amd64", NumCPU: 8, GOMAXPROCS: 4}.String()
	if got != "amd64 cpus=8 gomaxprocs=4 features=none" {
		t.Errorf("String = %q", got)
	}
	got = Info{Arch: "arm64", NumCPU: 2, GOMAXPROCS: 2, Features: []string{"asimd", "sve"}}.String()
	if !strings.HasSuffix(got, "features=asimd,sve") {
		t.Errorf("String = %q", got)
	}
}
