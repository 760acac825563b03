package kernel

import (
	"fmt"
	"sync"

	"github.com/gogpu/tileconv/internal/ndrange"
	"github.com/gogpu/tileconv/internal/parallel"
	"github.com/gogpu/tileconv/internal/wide"
)

// Mode selects how the workers of a group are executed.
type Mode int

const (
	// ModeGoroutines runs one goroutine per worker with a Barrier between
	// the load and evaluate phases.
	ModeGoroutines Mode = iota

	// ModePhased runs a group on one goroutine, all loads before all
	// evaluations.
	ModePhased
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeGoroutines:
		return "goroutines"
	case ModePhased:
		return "phased"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "goroutines":
		return ModeGoroutines, nil
	case "phased":
		return ModePhased, nil
	default:
		return 0, fmt.Errorf("kernel: unknown mode %q", s)
	}
}

// Tiled is a prepared tiled convolution.
type Tiled struct {
	p       Params
	coeffs  []wide.F32x4
	extent  ndrange.Range
	inCols  int
	scratch *parallel.ScratchPool
}

// NewTiled prepares a tiled convolution. If scratch is nil a private pool
// is created.
func NewTiled(p Params, scratch *parallel.ScratchPool) *Tiled {
	if scratch == nil {
		scratch = parallel.NewScratchPool()
	}
	return &Tiled{
		p:       p,
		coeffs:  p.filterPixels(),
		extent:  p.ScratchExtent(),
		inCols:  p.InputCols(),
		scratch: scratch,
	}
}

// Run executes every group on pool and returns when all output pixels have
// been written, or with the first group fault.
func (k *Tiled) Run(pool *parallel.GroupPool, mode Mode) error {
	nd := k.p.Range
	return pool.Dispatch(nd.Groups(), func(g int) {
		k.RunGroup(nd.Group(g), mode)
	})
}

// RunGroup executes one group to completion.
func (k *Tiled) RunGroup(group ndrange.Range, mode Mode) {
	s := k.scratch.Get(k.extent)
	defer k.scratch.Put(s)

	switch mode {
	case ModePhased:
		k.runPhased(group, s)
	default:
		k.runGoroutines(group, s)
	}
}

func (k *Tiled) runGoroutines(group ndrange.Range, s *parallel.Scratch) {
	nd := k.p.Range
	barrier := parallel.NewBarrier(nd.Local.Size())

	var (
		wg      sync.WaitGroup
		faultMu sync.Mutex
		fault   any
	)
	wg.Add(nd.Local.Size())
	nd.ForEachItem(group, func(it ndrange.Item) {
		go func() {
			defer wg.Done()
			passed := false
			defer func() {
				if r := recover(); r != nil {
					faultMu.Lock()
					if fault == nil {
						fault = r
					}
					faultMu.Unlock()
					// Still arrive so the rest of the group is not stranded.
					if !passed {
						barrier.Wait()
					}
				}
			}()
			k.load(it, s)
			barrier.Wait()
			passed = true
			k.commit(it, k.evaluate(it, s))
		}()
	})
	wg.Wait()

	if fault != nil {
		// Surface on the group's goroutine so the pool reports it.
		panic(fault)
	}
}

func (k *Tiled) runPhased(group ndrange.Range, s *parallel.Scratch) {
	nd := k.p.Range
	nd.ForEachItem(group, func(it ndrange.Item) {
		k.load(it, s)
	})
	// Phase boundary: every load above completes before any read below.
	nd.ForEachItem(group, func(it ndrange.Item) {
		k.commit(it, k.evaluate(it, s))
	})
}

// load performs one worker's share of the cooperative load.
func (k *Tiled) load(it ndrange.Item, s *parallel.Scratch) {
	off := k.p.Range.GroupOffset(it.Group)
	ndrange.Cover(it.Local, k.p.Range.Local, k.extent, func(i, j int) {
		src := (off.Rows+i)*k.inCols + off.Cols + j
		s.Set(i, j, wide.LoadF32x4(k.p.In, src))
	})
}

// evaluate computes the weighted sum for one worker from scratch.
func (k *Tiled) evaluate(it ndrange.Item, s *parallel.Scratch) wide.F32x4 {
	fw := k.p.FilterWidth
	var sum wide.F32x4
	for r := 0; r < fw; r++ {
		row := (it.Local.Rows+r)*s.Extent.Cols + it.Local.Cols
		for c := 0; c < fw; c++ {
			sum = sum.MulAdd(s.Cells[row+c], k.coeffs[r*fw+c])
		}
	}
	return sum
}

// commit writes one output pixel.
func (k *Tiled) commit(it ndrange.Item, v wide.F32x4) {
	v.Store(k.p.Out, k.p.Range.Global.Linear(it.Global))
}
