package tileconv

import (
	"fmt"
	"math"

	"github.com/gogpu/tileconv/internal/filter"
	"github.com/gogpu/tileconv/internal/wide"
)

// FilterType selects a generated filter.
type FilterType = filter.Type

// Generated filter types.
const (
	FilterIdentity = filter.Identity
	FilterBox      = filter.Box
	FilterGaussian = filter.Gaussian
	FilterSharpen  = filter.Sharpen
)

// ParseFilterType parses a filter name such as "gaussian" or "box".
func ParseFilterType(s string) (FilterType, error) {
	return filter.ParseType(s)
}

// Filter is a square, odd-width convolution filter with Channels
// coefficients per tap. Filters are immutable after construction.
type Filter struct {
	width int
	data  []float32
}

// NewFilter creates a filter from width*width*Channels coefficients in
// row-major order. The data is copied.
func NewFilter(width int, data []float32) (*Filter, error) {
	if width < 1 || width%2 == 0 {
		return nil, fmt.Errorf("%w: %d", ErrFilterWidth, width)
	}
	if want := width * width * Channels; len(data) != want {
		return nil, fmt.Errorf("%w: filter holds %d floats, want %d", ErrBufferSize, len(data), want)
	}
	d := make([]float32, len(data))
	copy(d, data)
	return &Filter{width: width, data: d}, nil
}

// NewFilterScalar creates a filter from width*width scalar coefficients,
// replicating each across all lanes.
func NewFilterScalar(width int, coeffs []float32) (*Filter, error) {
	if width < 1 || width%2 == 0 {
		return nil, fmt.Errorf("%w: %d", ErrFilterWidth, width)
	}
	if len(coeffs) != width*width {
		return nil, fmt.Errorf("%w: %d coefficients, want %d", ErrBufferSize, len(coeffs), width*width)
	}
	return &Filter{width: width, data: filter.Expand(coeffs)}, nil
}

// NewFilterOfType generates a filter of the given type and width.
func NewFilterOfType(t FilterType, width int) (*Filter, error) {
	coeffs, err := filter.Cached(t, width)
	if err != nil {
		if width < 1 || width%2 == 0 {
			return nil, fmt.Errorf("%w: %d", ErrFilterWidth, width)
		}
		return nil, err
	}
	d := make([]float32, len(coeffs))
	copy(d, coeffs)
	return &Filter{width: width, data: d}, nil
}

// IdentityFilter returns the 1x1 filter with coefficient 1.
func IdentityFilter() *Filter {
	return &Filter{width: 1, data: filter.Expand([]float32{1})}
}

// BoxFilter returns a width x width averaging filter.
func BoxFilter(width int) (*Filter, error) {
	return NewFilterOfType(FilterBox, width)
}

// GaussianFilter returns a normalized width x width Gaussian with the given
// standard deviation. A non-positive sigma selects width/6.
func GaussianFilter(width int, sigma float64) (*Filter, error) {
	if width < 1 || width%2 == 0 {
		return nil, fmt.Errorf("%w: %d", ErrFilterWidth, width)
	}
	if sigma <= 0 || math.IsNaN(sigma) {
		sigma = float64(width) / 6
	}
	k := filter.GaussianKernel(width, sigma)
	return NewFilterScalar(width, filter.Outer(k, k))
}

// SharpenFilter returns the 3x3 unsharp filter 2*identity - box.
func SharpenFilter() *Filter {
	f, _ := NewFilterOfType(FilterSharpen, 3)
	return f
}

// Width returns the filter width.
func (f *Filter) Width() int { return f.width }

// HalfWidth returns the halo each side of an output pixel.
func (f *Filter) HalfWidth() int { return f.width / 2 }

// Data returns the coefficients. The slice must not be modified.
func (f *Filter) Data() []float32 { return f.data }

// At returns the coefficients of tap (r, c).
func (f *Filter) At(r, c int) Pixel {
	return wide.LoadF32x4(f.data, r*f.width+c)
}

// validate checks a filter that may have been built as a zero value.
func (f *Filter) validate() error {
	if f == nil {
		return fmt.Errorf("%w: filter is nil", ErrBufferSize)
	}
	if f.width < 1 || f.width%2 == 0 {
		return fmt.Errorf("%w: %d", ErrFilterWidth, f.width)
	}
	if want := f.width * f.width * Channels; len(f.data) != want {
		return fmt.Errorf("%w: filter holds %d floats, want %d", ErrBufferSize, len(f.data), want)
	}
	return nil
}
