package tileconv

import (
	"fmt"
	"math"

	"github.com/gogpu/tileconv/internal/wide"
)

// Channels is the number of float32 lanes per pixel. Every image and filter
// stores four lanes per pixel; the fourth is convolved like the others.
const Channels = wide.Lanes

// Pixel is one four-lane pixel value.
type Pixel = wide.F32x4

// Splat returns a pixel with every lane set to v.
func Splat(v float32) Pixel {
	return wide.SplatF32x4(v)
}

// Image is a planar float32 image stored row-major with Channels lanes per
// pixel. Convolve borrows images for the duration of a call and never
// retains them.
type Image struct {
	Width    int
	Height   int
	Channels int
	Data     []float32
}

// NewImage allocates a zero image of w x h pixels.
func NewImage(w, h int) *Image {
	n, ok := sampleCount(w, h, Channels)
	if !ok {
		panic(fmt.Sprintf("tileconv: invalid image size %dx%d", w, h))
	}
	return &Image{
		Width:    w,
		Height:   h,
		Channels: Channels,
		Data:     make([]float32, n),
	}
}

// sampleCount returns w*h*c, or false when a factor is negative or the
// product overflows int.
func sampleCount(w, h, c int) (int, bool) {
	if w < 0 || h < 0 || c < 0 {
		return 0, false
	}
	if w != 0 && h > math.MaxInt/w {
		return 0, false
	}
	n := w * h
	if c != 0 && n > math.MaxInt/c {
		return 0, false
	}
	return n * c, true
}

// WrapImage wraps existing data without copying. The data length must be
// exactly w*h*c and c must equal Channels.
func WrapImage(w, h, c int, data []float32) (*Image, error) {
	if c != Channels {
		return nil, fmt.Errorf("%w: %d channels, want %d", ErrBufferSize, c, Channels)
	}
	if n, ok := sampleCount(w, h, c); !ok || len(data) != n {
		return nil, fmt.Errorf("%w: %d floats for %dx%dx%d", ErrBufferSize, len(data), w, h, c)
	}
	return &Image{Width: w, Height: h, Channels: c, Data: data}, nil
}

// validate checks that the declared shape matches the buffer.
func (img *Image) validate(name string) error {
	if img == nil {
		return fmt.Errorf("%w: %s image is nil", ErrBufferSize, name)
	}
	if img.Channels != Channels {
		return fmt.Errorf("%w: %s has %d channels, want %d", ErrBufferSize, name, img.Channels, Channels)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%w: %s is empty (%dx%d)", ErrBufferSize, name, img.Width, img.Height)
	}
	want, ok := sampleCount(img.Width, img.Height, img.Channels)
	if !ok {
		return fmt.Errorf("%w: %s size %dx%d overflows", ErrBufferSize, name, img.Width, img.Height)
	}
	if len(img.Data) != want {
		return fmt.Errorf("%w: %s holds %d floats, want %d", ErrBufferSize, name, len(img.Data), want)
	}
	return nil
}

// Bounds reports whether (x, y) lies inside the image.
func (img *Image) Bounds(x, y int) bool {
	return x >= 0 && x < img.Width && y >= 0 && y < img.Height
}

// At returns the pixel at (x, y). Out-of-range coordinates return zero.
func (img *Image) At(x, y int) Pixel {
	if !img.Bounds(x, y) {
		return Pixel{}
	}
	return wide.LoadF32x4(img.Data, y*img.Width+x)
}

// Set stores the pixel at (x, y). Out-of-range coordinates are ignored.
func (img *Image) Set(x, y int, p Pixel) {
	if !img.Bounds(x, y) {
		return
	}
	p.Store(img.Data, y*img.Width+x)
}

// Fill sets every pixel to p.
func (img *Image) Fill(p Pixel) {
	for i := 0; i < img.Width*img.Height; i++ {
		p.Store(img.Data, i)
	}
}

// Clone returns a deep copy.
func (img *Image) Clone() *Image {
	data := make([]float32, len(img.Data))
	copy(data, img.Data)
	return &Image{Width: img.Width, Height: img.Height, Channels: img.Channels, Data: data}
}

// Pad returns a new image extended by halo pixels on every side. Border
// pixels are replicated outward (clamp to edge).
func (img *Image) Pad(halo int) *Image {
	if halo < 0 {
		panic("tileconv: negative halo")
	}
	out := NewImage(img.Width+2*halo, img.Height+2*halo)
	if img.Width == 0 || img.Height == 0 {
		return out
	}
	for y := 0; y < out.Height; y++ {
		sy := clampInt(y-halo, 0, img.Height-1)
		for x := 0; x < out.Width; x++ {
			sx := clampInt(x-halo, 0, img.Width-1)
			out.Set(x, y, img.At(sx, sy))
		}
	}
	return out
}

// Crop returns a new image with halo pixels removed from every side.
// It is the inverse of Pad.
func (img *Image) Crop(halo int) *Image {
	w, h := img.Width-2*halo, img.Height-2*halo
	if halo < 0 || w < 0 || h < 0 {
		panic(fmt.Sprintf("tileconv: cannot crop %d from %dx%d", halo, img.Width, img.Height))
	}
	out := NewImage(w, h)
	for y := 0; y < h; y++ {
		src := ((y+halo)*img.Width + halo) * Channels
		copy(out.Data[y*w*Channels:(y+1)*w*Channels], img.Data[src:src+w*Channels])
	}
	return out
}

// Scale multiplies every lane by k in place and returns img.
func (img *Image) Scale(k float32) *Image {
	for i := range img.Data {
		img.Data[i] *= k
	}
	return img
}

// Add adds other lane-wise in place and returns img. Both images must have
// the same shape.
func (img *Image) Add(other *Image) (*Image, error) {
	if other.Width != img.Width || other.Height != img.Height || len(other.Data) != len(img.Data) {
		return nil, fmt.Errorf("%w: add %dx%d to %dx%d", ErrBufferSize,
			other.Width, other.Height, img.Width, img.Height)
	}
	for i, v := range other.Data {
		img.Data[i] += v
	}
	return img, nil
}

// MaxAbsDiff returns the largest lane-wise absolute difference between two
// images of equal shape, or -1 if the shapes differ.
func (img *Image) MaxAbsDiff(other *Image) float32 {
	if other.Width != img.Width || other.Height != img.Height || len(other.Data) != len(img.Data) {
		return -1
	}
	var m float32
	for i := 0; i < img.Width*img.Height; i++ {
		if d := wide.LoadF32x4(img.Data, i).MaxAbsDiff(wide.LoadF32x4(other.Data, i)); d > m {
			m = d
		}
	}
	return m
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
