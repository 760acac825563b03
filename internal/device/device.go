// Package device describes the host CPU the software convolution runs on.
package device

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// Info is a snapshot of the host's compute resources.
type Info struct {
	Arch       string
	NumCPU     int
	GOMAXPROCS int
	Features   []string
}

// Detect reads the current host's CPU description.
func Detect() Info {
	return Info{
		Arch:       runtime.GOARCH,
		NumCPU:     runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		Features:   features(),
	}
}

type feature struct {
	name string
	has  bool
}

func features() []string {
	var list []feature
	switch runtime.GOARCH {
	case "amd64", "386":
		list = []feature{
			{"sse4.1", cpu.X86.HasSSE41},
			{"sse4.2", cpu.X86.HasSSE42},
			{"avx", cpu.X86.HasAVX},
			{"avx2", cpu.X86.HasAVX2},
			{"fma", cpu.X86.HasFMA},
			{"avx512f", cpu.X86.HasAVX512F},
		}
	case "arm64":
		list = []feature{
			{"asimd", cpu.ARM64.HasASIMD},
			{"fphp", cpu.ARM64.HasFPHP},
			{"asimdhp", cpu.ARM64.HasASIMDHP},
			{"sve", cpu.ARM64.HasSVE},
		}
	}

	out := make([]string, 0, len(list))
	for _, f := range list {
		if f.has {
			out = append(out, f.name)
		}
	}
	return out
}

// Has reports whether the named feature was detected.
func (i Info) Has(name string) bool {
	for _, f := range i.Features {
		if f == name {
			return true
		}
	}
	return false
}

// VectorWidth returns the widest float32 SIMD register in lanes the host
// offers, or 1 when no vector extension was found.
func (i Info) VectorWidth() int {
	switch {
	case i.Has("avx512f"):
		return 16
	case i.Has("avx2"), i.Has("avx"):
		return 8
	case i.Has("sse4.1"), i.Has("asimd"):
		return 4
	}
	return 1
}

func (i Info) String() string {
	feat := "none"
	if len(i.Features) > 0 {
		feat = strings.Join(i.Features, ",")
	}
	return fmt.Sprintf("%s cpus=%d gomaxprocs=%d features=%s", i.Arch, i.NumCPU, i.GOMAXPROCS, feat)
}
