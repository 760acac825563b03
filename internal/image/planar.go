package image

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/tileconv"
)

// NRGBA returns img as non-premultiplied 8-bit RGBA with a zero origin.
// An *image.NRGBA already at the origin is returned unchanged.
func NRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}

// FitTile rescales img so both sides are multiples of the tile, rounding
// down but never below one tile. An image that already fits is returned as is.
func FitTile(img image.Image, tileH, tileW int) image.Image {
	b := img.Bounds()
	w := fitDown(b.Dx(), tileW)
	h := fitDown(b.Dy(), tileH)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

func fitDown(n, tile int) int {
	if tile <= 0 {
		return n
	}
	n -= n % tile
	if n < tile {
		n = tile
	}
	return n
}

// ToPlanar converts img to channel-interleaved float32 in [0, 1] and pads
// it by halo pixels on every side, replicating the edge.
func ToPlanar(img image.Image, halo int) *tileconv.Image {
	src := NRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := tileconv.NewImage(w, h)

	const inv = 1.0 / 255
	for y := range h {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		dst := out.Data[y*w*tileconv.Channels:]
		for i, v := range row {
			dst[i] = float32(v) * inv
		}
	}
	if halo <= 0 {
		return out
	}
	return out.Pad(halo)
}

// FromPlanar converts a float image back to 8-bit RGBA, clamping every
// channel to [0, 1].
func FromPlanar(p *tileconv.Image) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, p.Width, p.Height))
	for y := range p.Height {
		src := p.Data[y*p.Width*p.Channels : (y+1)*p.Width*p.Channels]
		row := dst.Pix[y*dst.Stride:]
		for i, v := range src {
			row[i] = toByte(v)
		}
	}
	return dst
}

func toByte(v float32) uint8 {
	switch {
	case v <= 0 || v != v:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
