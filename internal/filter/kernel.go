package filter

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/tileconv/internal/cache"
	"github.com/gogpu/tileconv/internal/wide"
)

// ErrWidth is returned for even or non-positive filter widths.
var ErrWidth = errors.New("filter: width must be odd and positive")

// Type selects a filter shape.
type Type int

const (
	// Identity passes the input through unchanged.
	Identity Type = iota

	// Box averages the footprint uniformly.
	Box

	// Gaussian weights the footprint with a 2D Gaussian.
	Gaussian

	// Sharpen boosts the centre against the box average.
	Sharpen
)

var typeNames = [...]string{
	Identity: "identity",
	Box:      "box",
	Gaussian: "gaussian",
	Sharpen:  "sharpen",
}

// String returns the filter type name.
func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType converts a name to a Type. "blur" is an alias for Gaussian.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "blur" {
		return Gaussian, nil
	}
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("filter: unknown type %q", s)
}

// GaussianKernel generates a normalized 1D Gaussian kernel of the given odd
// size and standard deviation. For sigma <= 0 it returns a centred impulse.
func GaussianKernel(size int, sigma float64) []float32 {
	kernel := make([]float32, size)
	half := size / 2
	if sigma <= 0 {
		kernel[half] = 1
		return kernel
	}

	// Gaussian formula: G(x) = exp(-x²/(2σ²)) / (σ√(2π))
	// We skip the normalization constant since we'll normalize sum to 1
	twoSigmaSq := 2 * sigma * sigma
	weights := make([]float64, size)
	sum := float64(0)
	for i := range weights {
		x := float64(i - half)
		weights[i] = math.Exp(-(x * x) / twoSigmaSq)
		sum += weights[i]
	}
	for i, w := range weights {
		kernel[i] = float32(w / sum)
	}
	return kernel
}

// BoxKernel generates a 1D box kernel: size values of 1/size.
func BoxKernel(size int) []float32 {
	kernel := make([]float32, size)
	val := float32(1.0) / float32(size)
	for i := range kernel {
		kernel[i] = val
	}
	return kernel
}

// Outer returns the row-major outer product col ⊗ row.
func Outer(col, row []float32) []float32 {
	out := make([]float32, len(col)*len(row))
	for r, cv := range col {
		for c, rv := range row {
			out[r*len(row)+c] = cv * rv
		}
	}
	return out
}

// Generate returns width*width scalar coefficients for the filter type.
func Generate(t Type, width int) ([]float32, error) {
	if width < 1 || width%2 == 0 {
		return nil, fmt.Errorf("%w: %d", ErrWidth, width)
	}

	n := width * width
	switch t {
	case Identity:
		coeffs := make([]float32, n)
		coeffs[n/2] = 1
		return coeffs, nil

	case Box:
		coeffs := make([]float32, n)
		val := float32(1.0) / float32(n)
		for i := range coeffs {
			coeffs[i] = val
		}
		return coeffs, nil

	case Gaussian:
		k := GaussianKernel(width, float64(width)/6)
		return Outer(k, k), nil

	case Sharpen:
		coeffs := make([]float32, n)
		val := float32(1.0) / float32(n)
		for i := range coeffs {
			coeffs[i] = -val
		}
		coeffs[n/2] += 2
		return coeffs, nil

	default:
		return nil, fmt.Errorf("filter: unknown type %v", t)
	}
}

// Expand replicates each scalar coefficient across all pixel lanes.
func Expand(coeffs []float32) []float32 {
	out := make([]float32, len(coeffs)*wide.Lanes)
	for i, c := range coeffs {
		wide.SplatF32x4(c).Store(out, i)
	}
	return out
}

// Sum returns the sum of the coefficients in float64.
func Sum(coeffs []float32) float64 {
	var s float64
	for _, c := range coeffs {
		s += float64(c)
	}
	return s
}

// cacheKey identifies a generated filter.
type cacheKey struct {
	t     Type
	width int
}

var kernelCache = cache.New[cacheKey, []float32](64, nil)

// Cached returns the lane-expanded coefficients for (t, width) from the
// package cache. The returned slice is shared and must not be modified.
func Cached(t Type, width int) ([]float32, error) {
	return kernelCache.GetOrCreate(cacheKey{t: t, width: width}, func() ([]float32, error) {
		coeffs, err := Generate(t, width)
		if err != nil {
			return nil, err
		}
		return Expand(coeffs), nil
	})
}
