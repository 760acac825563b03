//go:build !nogpu

// Package gpu registers the wgpu accelerator for tiled convolution.
//
// Import this package to run tileconv.Convolve on the GPU when a device is
// available:
//
//	import _ "github.com/gogpu/tileconv/gpu"
//
// If no GPU can be opened, the accelerator declines every job and
// convolutions run on the CPU kernel.
package gpu

import (
	"github.com/gogpu/tileconv"
	gpuimpl "github.com/gogpu/tileconv/internal/gpu"
)

func init() {
	if err := tileconv.RegisterAccelerator(gpuimpl.NewTiledConvAccelerator()); err != nil {
		tileconv.Logger().Warn("GPU accelerator not available", "err", err)
	}
}

// SetDeviceProvider makes the accelerator use a GPU device owned by the host
// application instead of opening its own.
//
// The provider should be a gpucontext.DeviceProvider whose Device exposes
// HalDevice and HalQueue, or any value with HalDevice() any and
// HalQueue() any methods.
func SetDeviceProvider(provider any) error {
	return tileconv.SetAcceleratorDeviceProvider(provider)
}

// Available reports whether the registered accelerator has an open device.
func Available() bool {
	a, ok := tileconv.Accelerator().(interface{ Ready() bool })
	return ok && a.Ready()
}
