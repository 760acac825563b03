// Package parallel provides the CPU execution substrate for tiled kernels.
//
// The package models the three resources a work-group kernel needs on a
// CPU:
//
//   - GroupPool schedules independent groups across goroutines
//   - Barrier synchronizes the workers of one group
//   - ScratchPool hands out the per-group scratch tile (the CPU stand-in for
//     workgroup-local memory), reused via sync.Pool
//
// A scratch tile belongs to exactly one group execution: it is taken from
// the pool when the group starts and returned when the group finishes.
package parallel

import (
	"sync"

	"github.com/gogpu/tileconv/internal/ndrange"
	"github.com/gogpu/tileconv/internal/wide"
)

// Scratch is a halo-extended tile of pixels owned by one group execution.
type Scratch struct {
	// Extent is the tile size in (rows, cols).
	Extent ndrange.Range

	// Cells holds Extent.Rows*Extent.Cols pixels in row-major order.
	Cells []wide.F32x4
}

// At returns the pixel at scratch coordinate (i, j).
func (s *Scratch) At(i, j int) wide.F32x4 {
	return s.Cells[i*s.Extent.Cols+j]
}

// Set stores the pixel at scratch coordinate (i, j).
func (s *Scratch) Set(i, j int, v wide.F32x4) {
	s.Cells[i*s.Extent.Cols+j] = v
}

// Reset zeroes every cell.
func (s *Scratch) Reset() {
	clear(s.Cells)
}

// Bytes returns the storage size of the tile.
func (s *Scratch) Bytes() int {
	return len(s.Cells) * wide.Lanes * 4
}

// ScratchPool provides per-extent reuse of Scratch tiles via sync.Pool.
//
// Thread safety: ScratchPool is safe for concurrent use.
type ScratchPool struct {
	// pools holds one sync.Pool per extent.
	pools sync.Map
}

// NewScratchPool creates an empty scratch pool.
func NewScratchPool() *ScratchPool {
	return &ScratchPool{}
}

// Get returns a zeroed tile of the given extent, or nil if the extent is empty.
func (p *ScratchPool) Get(extent ndrange.Range) *Scratch {
	if extent.Empty() {
		return nil
	}
	s := p.poolFor(extent).Get().(*Scratch)
	s.Reset()
	return s
}

// Put returns a tile to the pool. A nil tile is ignored.
func (p *ScratchPool) Put(s *Scratch) {
	if s == nil {
		return
	}
	if pool, ok := p.pools.Load(s.Extent); ok {
		pool.(*sync.Pool).Put(s)
	}
	// If pool doesn't exist, let GC reclaim the tile
}

func (p *ScratchPool) poolFor(extent ndrange.Range) *sync.Pool {
	if pool, ok := p.pools.Load(extent); ok {
		return pool.(*sync.Pool)
	}

	newPool := &sync.Pool{
		New: func() any {
			return &Scratch{
				Extent: extent,
				Cells:  make([]wide.F32x4, extent.Size()),
			}
		},
	}

	// Try to store; if another goroutine beat us, use theirs
	actual, _ := p.pools.LoadOrStore(extent, newPool)
	return actual.(*sync.Pool)
}
