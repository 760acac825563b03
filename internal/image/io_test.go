package image

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func testPicture() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 6, 4))
	for y := range 4 {
		for x := range 6 {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 60), B: 128, A: 255})
		}
	}
	return img
}

func TestDecode_Formats(t *testing.T) {
	src := testPicture()

	tests := []struct {
		name   string
		format string
		encode func(*bytes.Buffer) error
	}{
		{"png", "png", func(b *bytes.Buffer) error { return EncodePNG(b, src) }},
		{"bmp", "bmp", func(b *bytes.Buffer) error { return bmp.Encode(b, src) }},
		{"tiff", "tiff", func(b *bytes.Buffer) error { return tiff.Encode(b, src, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf); err != nil {
				t.Fatalf("encode: %v", err)
			}
			img, format, err := LoadBytes(buf.Bytes())
			if err != nil {
				t.Fatalf("LoadBytes: %v", err)
			}
			if format != tt.format {
				t.Errorf("format = %q, want %q", format, tt.format)
			}
			got := NRGBA(img)
			if got.Rect.Dx() != 6 || got.Rect.Dy() != 4 {
				t.Fatalf("size = %v, want 6x4", got.Rect)
			}
			if c := got.NRGBAAt(5, 3); c != src.NRGBAAt(5, 3) {
				t.Errorf("pixel (5,3) = %v, want %v", c, src.NRGBAAt(5, 3))
			}
		})
	}
}

func TestLoadBytes_Empty(t *testing.T) {
	if _, _, err := LoadBytes(nil); !errors.Is(err, ErrEmptyData) {
		t.Errorf("err = %v, want ErrEmptyData", err)
	}
}

func TestDecode_Garbage(t *testing.T) {
	if _, _, err := Decode(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("expected decode error")
	}
}

func TestSaveLoad_PNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	src := testPicture()

	if err := Save(path, src, 0); err != nil {
		t.Fatalf("Save: %v", err)
	}
	img, format, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if format != "png" {
		t.Errorf("format = %q, want png", format)
	}
	got := NRGBA(img)
	for y := range 4 {
		for x := range 6 {
			if got.NRGBAAt(x, y) != src.NRGBAAt(x, y) {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got.NRGBAAt(x, y), src.NRGBAAt(x, y))
			}
		}
	}
}

func TestSave_JPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jpg")
	if err := Save(path, testPicture(), 500); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, format, err := Load(path); err != nil || format != "jpeg" {
		t.Errorf("Load = %q, %v; want jpeg", format, err)
	}
}

func TestSave_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.gif")
	if err := Save(path, testPicture(), 90); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file should not be created for an unsupported extension")
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, _, err := Load(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for a missing file")
	}
}
