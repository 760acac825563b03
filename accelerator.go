package tileconv

import (
	"context"
	"errors"
	"sync"
)

// ErrFallbackToCPU indicates the accelerator declines a job. Convolve
// transparently runs the CPU kernel instead.
var ErrFallbackToCPU = errors.New("tileconv: falling back to CPU kernel")

// Job is one validated convolution handed to an accelerator. All buffers
// hold Channels floats per pixel. In is (Height+2*Halo()) x (Width+2*Halo())
// pixels, Out is Height x Width, Filter is FilterWidth x FilterWidth.
// Buffers are borrowed for the duration of Convolve only.
type Job struct {
	In     []float32
	Filter []float32
	Out    []float32

	Width       int
	Height      int
	FilterWidth int
	TileHeight  int
	TileWidth   int
}

// Halo returns the filter half-width.
func (j Job) Halo() int {
	return j.FilterWidth / 2
}

// InputWidth returns the padded input width in pixels.
func (j Job) InputWidth() int {
	return j.Width + 2*j.Halo()
}

// InputHeight returns the padded input height in pixels.
func (j Job) InputHeight() int {
	return j.Height + 2*j.Halo()
}

// ScratchBytes returns the size of one halo-extended tile.
func (j Job) ScratchBytes() int {
	return scratchBytes(j.TileHeight, j.TileWidth, j.Halo())
}

func scratchBytes(tileH, tileW, halo int) int {
	return (tileH + 2*halo) * (tileW + 2*halo) * Channels * 4
}

// ConvAccelerator is an optional device backend for the tiled kernel.
//
// When registered via RegisterAccelerator, Convolve offers each job to the
// accelerator first (unless BackendCPU is selected). Returning
// ErrFallbackToCPU hands the job to the CPU kernel. Any other error is a
// device fault: the invocation fails and is not retried.
//
// Implementations are provided by backend packages. Users opt in via blank
// import:
//
//	import _ "github.com/gogpu/tileconv/gpu"
type ConvAccelerator interface {
	// Name returns the accelerator name (e.g., "wgpu").
	Name() string

	// Init initializes device resources. Called once during registration.
	Init() error

	// Close releases device resources.
	Close()

	// CanAccelerate reports whether the accelerator supports the job's
	// geometry. This is a fast check made before any upload.
	CanAccelerate(job Job) bool

	// Convolve runs the job to completion and fills job.Out.
	// Returns ErrFallbackToCPU if the job cannot run on the device.
	Convolve(ctx context.Context, job Job) error
}

// DeviceProviderAware is an optional interface for accelerators that can
// share a GPU device with an external provider. When SetDeviceProvider is
// called, the accelerator reuses the provided device instead of opening
// its own.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	accelMu sync.RWMutex
	accel   ConvAccelerator
)

// RegisterAccelerator registers the device backend.
//
// Only one accelerator can be registered. Subsequent calls replace the
// previous one, which is closed. Init is called during registration; if it
// fails the accelerator is not registered and the error is returned.
func RegisterAccelerator(a ConvAccelerator) error {
	if a == nil {
		return errors.New("tileconv: accelerator must not be nil")
	}
	if err := a.Init(); err != nil {
		return err
	}
	propagateLogger(a, Logger())

	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
	Logger().Info("tileconv: accelerator registered", "name", a.Name())
	return nil
}

// Accelerator returns the registered accelerator, or nil if none.
func Accelerator() ConvAccelerator {
	accelMu.RLock()
	a := accel
	accelMu.RUnlock()
	return a
}

// SetAcceleratorDeviceProvider passes a device provider to the registered
// accelerator. If no accelerator is registered or it does not support
// device sharing, this is a no-op.
//
// The provider should implement gpucontext.DeviceProvider, or expose
// HalDevice() any and HalQueue() any returning wgpu/hal types.
func SetAcceleratorDeviceProvider(provider any) error {
	a := Accelerator()
	if a == nil {
		return nil
	}
	if dpa, ok := a.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}
