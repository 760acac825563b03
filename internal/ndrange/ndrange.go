// Package ndrange partitions a 2D output domain into equally sized work groups.
//
// An NDRange pairs a global extent (one work item per output pixel) with a
// local extent (the worker grid of one group). The global extent must be an
// exact multiple of the local extent in both dimensions; ragged edges are
// rejected rather than truncated.
//
// All coordinates are (row, column) pairs. Because the convolution input is
// padded by the filter halo before dispatch, a group's offset is the same in
// output coordinates and in padded-input coordinates: the output region
// starts at the offset and the halo-extended read region starts there too.
package ndrange

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyRange is returned when an extent has a non-positive dimension.
	ErrEmptyRange = errors.New("ndrange: empty range")

	// ErrNotDivisible is returned when the global extent is not a multiple
	// of the local extent.
	ErrNotDivisible = errors.New("ndrange: global range not divisible by local range")
)

// Range is a 2D extent or coordinate in (row, column) order.
type Range struct {
	Rows int
	Cols int
}

// R is shorthand for Range{Rows: rows, Cols: cols}.
func R(rows, cols int) Range {
	return Range{Rows: rows, Cols: cols}
}

// Add returns the component-wise sum.
func (r Range) Add(o Range) Range {
	return Range{Rows: r.Rows + o.Rows, Cols: r.Cols + o.Cols}
}

// Mul returns the component-wise product.
func (r Range) Mul(o Range) Range {
	return Range{Rows: r.Rows * o.Rows, Cols: r.Cols * o.Cols}
}

// Size returns Rows*Cols.
func (r Range) Size() int {
	return r.Rows * r.Cols
}

// Empty reports whether either dimension is non-positive.
func (r Range) Empty() bool {
	return r.Rows <= 0 || r.Cols <= 0
}

// Contains reports whether the coordinate p lies in [0, r).
func (r Range) Contains(p Range) bool {
	return p.Rows >= 0 && p.Rows < r.Rows && p.Cols >= 0 && p.Cols < r.Cols
}

// Linear returns the row-major index of p inside an extent of r.Cols columns.
func (r Range) Linear(p Range) int {
	return p.Rows*r.Cols + p.Cols
}

// String formats the range as RowsxCols.
func (r Range) String() string {
	return fmt.Sprintf("%dx%d", r.Rows, r.Cols)
}

// NDRange is a global index space split into groups of Local size.
type NDRange struct {
	Global Range
	Local  Range
}

// New validates and returns an NDRange.
func New(global, local Range) (NDRange, error) {
	if global.Empty() {
		return NDRange{}, fmt.Errorf("%w: global %v", ErrEmptyRange, global)
	}
	if local.Empty() {
		return NDRange{}, fmt.Errorf("%w: local %v", ErrEmptyRange, local)
	}
	if global.Rows%local.Rows != 0 || global.Cols%local.Cols != 0 {
		return NDRange{}, fmt.Errorf("%w: global %v, local %v", ErrNotDivisible, global, local)
	}
	return NDRange{Global: global, Local: local}, nil
}

// GroupCount returns the number of groups along each dimension.
func (nd NDRange) GroupCount() Range {
	return Range{Rows: nd.Global.Rows / nd.Local.Rows, Cols: nd.Global.Cols / nd.Local.Cols}
}

// Groups returns the total number of groups.
func (nd NDRange) Groups() int {
	return nd.GroupCount().Size()
}

// Group converts a linear group index into group coordinates.
func (nd NDRange) Group(linear int) Range {
	gc := nd.GroupCount()
	return Range{Rows: linear / gc.Cols, Cols: linear % gc.Cols}
}

// GroupOffset returns the top-left corner of a group's output region,
// which is also the top-left corner of its padded-input read region.
func (nd NDRange) GroupOffset(group Range) Range {
	return group.Mul(nd.Local)
}

// ScratchExtent returns the halo-extended tile a group must read.
func (nd NDRange) ScratchExtent(halo int) Range {
	return nd.Local.Add(Range{Rows: 2 * halo, Cols: 2 * halo})
}

// Item identifies one worker: its global coordinate, its group and its
// coordinate within the group.
type Item struct {
	Global Range
	Group  Range
	Local  Range
}

// Item builds the work item for a local coordinate inside group.
func (nd NDRange) Item(group, local Range) Item {
	return Item{
		Global: nd.GroupOffset(group).Add(local),
		Group:  group,
		Local:  local,
	}
}

// ForEachItem calls fn for every worker of group in row-major local order.
func (nd NDRange) ForEachItem(group Range, fn func(Item)) {
	for li := 0; li < nd.Local.Rows; li++ {
		for lj := 0; lj < nd.Local.Cols; lj++ {
			fn(nd.Item(group, Range{Rows: li, Cols: lj}))
		}
	}
}

// ForEachGroup calls fn for every group in row-major order.
func (nd NDRange) ForEachGroup(fn func(group Range)) {
	gc := nd.GroupCount()
	for gi := 0; gi < gc.Rows; gi++ {
		for gj := 0; gj < gc.Cols; gj++ {
			fn(Range{Rows: gi, Cols: gj})
		}
	}
}
