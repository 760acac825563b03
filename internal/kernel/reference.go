package kernel

import "github.com/gogpu/tileconv/internal/wide"

// Reference computes the convolution directly from the padded input without
// tiling. Accumulation order matches Tiled, so results are bit-identical.
func Reference(p Params) {
	coeffs := p.filterPixels()
	fw := p.FilterWidth
	inCols := p.InputCols()
	g := p.Range.Global

	for y := 0; y < g.Rows; y++ {
		for x := 0; x < g.Cols; x++ {
			var sum wide.F32x4
			for r := 0; r < fw; r++ {
				row := (y+r)*inCols + x
				for c := 0; c < fw; c++ {
					sum = sum.MulAdd(wide.LoadF32x4(p.In, row+c), coeffs[r*fw+c])
				}
			}
			sum.Store(p.Out, y*g.Cols+x)
		}
	}
}
