package image

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/gogpu/tileconv"
)

// rawMagic opens every decompressed raw stream.
const rawMagic = "TCF1"

// maxRawPixels bounds the header dimensions accepted by ReadRaw.
const maxRawPixels = 1 << 28

// ErrInvalidMagic is returned when a raw stream does not start with TCF1.
var ErrInvalidMagic = errors.New("image: raw: invalid magic")

type rawHeader struct {
	Width, Height, Channels uint32
}

// WriteRaw writes p as a zstd-compressed raw float dump: the TCF1 magic,
// width, height and channel count as little-endian uint32, then the samples
// as little-endian float32.
func WriteRaw(w io.Writer, p *tileconv.Image) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("image: raw: %w", err)
	}

	bw := bufio.NewWriter(enc)
	hdr := rawHeader{Width: uint32(p.Width), Height: uint32(p.Height), Channels: uint32(p.Channels)}
	if err := writeRaw(bw, hdr, p.Data); err != nil {
		_ = enc.Close()
		return fmt.Errorf("image: raw: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("image: raw: %w", err)
	}
	return nil
}

func writeRaw(bw *bufio.Writer, hdr rawHeader, data []float32) error {
	if _, err := bw.WriteString(rawMagic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, hdr); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, data); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadRaw reads a stream written by WriteRaw.
func ReadRaw(r io.Reader) (*tileconv.Image, error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("image: raw: %w", err)
	}
	defer dec.Close()

	br := bufio.NewReader(dec)
	magic := make([]byte, len(rawMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("image: raw: %w", err)
	}
	if string(magic) != rawMagic {
		return nil, ErrInvalidMagic
	}

	var hdr rawHeader
	if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("image: raw: header: %w", err)
	}
	n, ok := rawSamples(hdr)
	if !ok {
		return nil, fmt.Errorf("image: raw: %dx%dx%d exceeds size limit", hdr.Width, hdr.Height, hdr.Channels)
	}

	data := make([]float32, n)
	if err := binary.Read(br, binary.LittleEndian, data); err != nil {
		return nil, fmt.Errorf("image: raw: samples: %w", err)
	}
	return tileconv.WrapImage(int(hdr.Width), int(hdr.Height), int(hdr.Channels), data)
}

// rawSamples returns the sample count declared by hdr, or false when it
// exceeds maxRawPixels. Each factor is bounded before multiplying.
func rawSamples(hdr rawHeader) (uint64, bool) {
	w, h, c := uint64(hdr.Width), uint64(hdr.Height), uint64(hdr.Channels)
	if w != 0 && h > maxRawPixels/w {
		return 0, false
	}
	if c != 0 && w*h > maxRawPixels/c {
		return 0, false
	}
	return w * h * c, true
}

// SaveRaw writes p to path in the raw format.
func SaveRaw(path string, p *tileconv.Image) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("image: create file: %w", err)
	}

	if err := WriteRaw(f, p); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// LoadRaw reads a raw dump from path.
func LoadRaw(path string) (*tileconv.Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("image: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadRaw(f)
}
