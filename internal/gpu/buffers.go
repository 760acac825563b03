//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// paramsSize is the byte size of the shader's Params uniform.
const paramsSize = 16

// convParams mirrors the WGSL Params struct.
type convParams struct {
	outWidth    uint32
	outHeight   uint32
	inWidth     uint32
	filterWidth uint32
}

func (p convParams) bytes() []byte {
	b := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(b[0:], p.outWidth)
	binary.LittleEndian.PutUint32(b[4:], p.outHeight)
	binary.LittleEndian.PutUint32(b[8:], p.inWidth)
	binary.LittleEndian.PutUint32(b[12:], p.filterWidth)
	return b
}

// packFloats encodes float32 values little-endian for upload.
func packFloats(src []float32) []byte {
	b := make([]byte, len(src)*4)
	for i, v := range src {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// unpackFloats decodes little-endian float32 values into dst.
func unpackFloats(src []byte, dst []float32) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
}

// jobBuffers holds the device buffers of one dispatch.
type jobBuffers struct {
	params  hal.Buffer
	input   hal.Buffer
	filter  hal.Buffer
	output  hal.Buffer
	staging hal.Buffer

	inputSize  uint64
	filterSize uint64
	outputSize uint64
}

// createBuffer creates one labelled buffer.
func (b *jobBuffers) createBuffer(device hal.Device, label string, size uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{Label: label, Size: size, Usage: usage})
	if err != nil {
		return nil, fmt.Errorf("create %s buffer: %w", label, err)
	}
	return buf, nil
}

// allocate creates all buffers for the given sizes.
func (b *jobBuffers) allocate(device hal.Device, inputFloats, filterFloats, outputFloats int) error {
	b.inputSize = uint64(inputFloats) * 4   //nolint:gosec // length is non-negative
	b.filterSize = uint64(filterFloats) * 4 //nolint:gosec // length is non-negative
	b.outputSize = uint64(outputFloats) * 4 //nolint:gosec // length is non-negative

	var err error
	if b.params, err = b.createBuffer(device, "conv_params", paramsSize,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst); err != nil {
		return err
	}
	if b.input, err = b.createBuffer(device, "conv_input", b.inputSize,
		gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst); err != nil {
		return err
	}
	if b.filter, err = b.createBuffer(device, "conv_filter", b.filterSize,
		gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst); err != nil {
		return err
	}
	if b.output, err = b.createBuffer(device, "conv_output", b.outputSize,
		gputypes.BufferUsageStorage|gputypes.BufferUsageCopySrc); err != nil {
		return err
	}
	if b.staging, err = b.createBuffer(device, "conv_staging", b.outputSize,
		gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst); err != nil {
		return err
	}
	return nil
}

// release destroys every allocated buffer.
func (b *jobBuffers) release(device hal.Device) {
	for _, buf := range []hal.Buffer{b.staging, b.output, b.filter, b.input, b.params} {
		if buf != nil {
			device.DestroyBuffer(buf)
		}
	}
	*b = jobBuffers{}
}

// errNonCoherent is returned for a staging mapping that would need an
// explicit invalidate before the CPU may read it. hal offers no invalidate
// call, so such jobs run on the CPU instead.
var errNonCoherent = errors.New("gpu: staging mapping is not coherent")

// readStaging copies the staging buffer into dst. dst is left untouched
// when the mapping is not coherent.
func readStaging(device hal.Device, staging hal.Buffer, dst []float32) error {
	size := uint64(len(dst)) * 4 //nolint:gosec // length is non-negative
	mapping, err := device.MapBuffer(staging, 0, size)
	if err != nil {
		return fmt.Errorf("map staging buffer: %w", err)
	}
	defer func() { _ = device.UnmapBuffer(staging) }()

	if !mapping.IsCoherent {
		return errNonCoherent
	}
	raw := unsafe.Slice((*byte)(mapping.Ptr), size)
	unpackFloats(raw, dst)
	return nil
}
