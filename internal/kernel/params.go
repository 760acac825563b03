package kernel

import (
	"github.com/gogpu/tileconv/internal/ndrange"
	"github.com/gogpu/tileconv/internal/wide"
)

// Params describes one convolution invocation over borrowed buffers.
//
// In is the padded input of (Global.Rows+2*halo) x (Global.Cols+2*halo)
// pixels, Out the output of Global.Rows x Global.Cols pixels and Filter
// FilterWidth x FilterWidth pixels of coefficients, all row-major with
// wide.Lanes floats per pixel. The caller validates sizes before building
// Params; the kernel trusts them.
type Params struct {
	In          []float32
	Filter      []float32
	FilterWidth int
	Out         []float32
	Range       ndrange.NDRange
}

// Halo returns the filter half-width.
func (p *Params) Halo() int {
	return p.FilterWidth / 2
}

// InputCols returns the padded input width in pixels.
func (p *Params) InputCols() int {
	return p.Range.Global.Cols + 2*p.Halo()
}

// ScratchExtent returns the halo-extended tile each group loads.
func (p *Params) ScratchExtent() ndrange.Range {
	return p.Range.ScratchExtent(p.Halo())
}

// filterPixels unpacks the coefficients into lane vectors.
func (p *Params) filterPixels() []wide.F32x4 {
	n := p.FilterWidth * p.FilterWidth
	coeffs := make([]wide.F32x4, n)
	for i := range coeffs {
		coeffs[i] = wide.LoadF32x4(p.Filter, i)
	}
	return coeffs
}
