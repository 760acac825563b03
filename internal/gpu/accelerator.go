//go:build !nogpu

package gpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/tileconv"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// errNotReady is wrapped with tileconv.ErrFallbackToCPU when no device is
// open.
var errNotReady = errors.New("gpu: device not initialized")

// TiledConvAccelerator runs the tiled convolution as a WGSL compute shader
// through wgpu/hal. It implements tileconv.ConvAccelerator.
//
// Each workgroup is one tile: it copies its halo-extended input block into
// workgroup memory, calls workgroupBarrier, and every invocation writes one
// output pixel. Pipelines are compiled per (tile, halo) on first use and
// cached until Close.
type TiledConvAccelerator struct {
	mu sync.Mutex

	backend  gputypes.Backend
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	limits   gputypes.Limits
	adapter  string

	pipelines *pipelineCache

	gpuReady       bool
	preferCPU      bool // shared device is a software adapter
	externalDevice bool // shared device is not destroyed on Close
}

var _ tileconv.ConvAccelerator = (*TiledConvAccelerator)(nil)

// NewTiledConvAccelerator returns an accelerator that opens a Vulkan device
// on Init.
func NewTiledConvAccelerator() *TiledConvAccelerator {
	return NewTiledConvAcceleratorWithBackend(gputypes.BackendVulkan)
}

// NewTiledConvAcceleratorWithBackend returns an accelerator that opens a
// device on the given registered HAL backend.
func NewTiledConvAcceleratorWithBackend(backend gputypes.Backend) *TiledConvAccelerator {
	return &TiledConvAccelerator{
		backend:   backend,
		pipelines: newPipelineCache(),
	}
}

// Name returns "wgpu".
func (a *TiledConvAccelerator) Name() string { return "wgpu" }

// SetLogger updates the package logger.
func (a *TiledConvAccelerator) SetLogger(l *slog.Logger) { setLogger(l) }

// Init opens a device. A missing GPU is not an error: the accelerator stays
// registered, declines every job, and can still adopt a shared device via
// SetDeviceProvider.
func (a *TiledConvAccelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pipelines == nil {
		a.pipelines = newPipelineCache()
	}
	if err := a.initGPU(); err != nil {
		slogger().Warn("GPU init failed, using CPU kernel", "backend", a.backend.String(), "err", err)
	}
	return nil
}

// Ready reports whether a device is open.
func (a *TiledConvAccelerator) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gpuReady
}

// Close releases pipelines and, unless shared, the device.
func (a *TiledConvAccelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked()
}

func (a *TiledConvAccelerator) releaseLocked() {
	if a.pipelines != nil {
		a.pipelines.clear(a.device)
	}
	if !a.externalDevice {
		if a.device != nil {
			a.device.Destroy()
		}
		if a.instance != nil {
			a.instance.Destroy()
		}
	}
	a.device = nil
	a.queue = nil
	a.instance = nil
	a.gpuReady = false
	a.preferCPU = false
	a.externalDevice = false
}

// SetDeviceProvider switches to a device owned by the host application.
// The provider may be a gpucontext.DeviceProvider whose Device exposes
// HalDevice() and HalQueue(), or any value exposing HalDevice() any and
// HalQueue() any.
func (a *TiledConvAccelerator) SetDeviceProvider(provider any) error {
	device, queue, info, err := resolveProvider(provider)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.releaseLocked()
	a.device = device
	a.queue = queue
	a.limits = gputypes.DefaultLimits()
	a.adapter = info.Name
	a.externalDevice = true
	a.preferCPU = info.Type == gpucontext.AdapterTypeSoftware
	a.gpuReady = true

	slogger().Info("switched to shared GPU device",
		"adapter", info.Name, "type", info.Type.String(), "prefer_cpu", a.preferCPU)
	return nil
}

// resolveProvider extracts HAL handles from a device provider.
func resolveProvider(provider any) (hal.Device, hal.Queue, gpucontext.AdapterInfo, error) {
	info := gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}

	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	if hp, ok := provider.(halProvider); ok {
		device, ok := hp.HalDevice().(hal.Device)
		if !ok || device == nil {
			return nil, nil, info, fmt.Errorf("gpu: provider HalDevice is not hal.Device")
		}
		queue, ok := hp.HalQueue().(hal.Queue)
		if !ok || queue == nil {
			return nil, nil, info, fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
		}
		if dp, ok := provider.(gpucontext.DeviceProvider); ok {
			info = dp.AdapterInfo()
		}
		return device, queue, info, nil
	}

	dp, ok := provider.(gpucontext.DeviceProvider)
	if !ok {
		return nil, nil, info, fmt.Errorf("gpu: provider %T does not expose a device", provider)
	}
	info = dp.AdapterInfo()

	type wrappedDevice interface {
		HalDevice() hal.Device
		HalQueue() hal.Queue
	}
	switch d := dp.Device().(type) {
	case wrappedDevice:
		if d.HalDevice() == nil || d.HalQueue() == nil {
			return nil, nil, info, fmt.Errorf("gpu: provider device is not initialized")
		}
		return d.HalDevice(), d.HalQueue(), info, nil
	case hal.Device:
		queue, ok := dp.Queue().(hal.Queue)
		if !ok || queue == nil {
			return nil, nil, info, fmt.Errorf("gpu: provider Queue is not hal.Queue")
		}
		return d, queue, info, nil
	default:
		return nil, nil, info, fmt.Errorf("gpu: provider Device %T is not a HAL device", d)
	}
}

// CanAccelerate reports whether the job fits the device limits.
func (a *TiledConvAccelerator) CanAccelerate(job tileconv.Job) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gpuReady && !a.preferCPU && a.fitsLocked(job) == nil
}

// fitsLocked checks the job against the device limits.
func (a *TiledConvAccelerator) fitsLocked(job tileconv.Job) error {
	l := a.limits
	spec := specFor(job)
	switch {
	case job.TileWidth > int(l.MaxComputeWorkgroupSizeX) || job.TileHeight > int(l.MaxComputeWorkgroupSizeY):
		return fmt.Errorf("gpu: tile %dx%d exceeds workgroup size limits", job.TileHeight, job.TileWidth)
	case job.TileWidth*job.TileHeight > int(l.MaxComputeInvocationsPerWorkgroup):
		return fmt.Errorf("gpu: tile %dx%d exceeds %d invocations", job.TileHeight, job.TileWidth, l.MaxComputeInvocationsPerWorkgroup)
	case spec.scratchBytes() > int(l.MaxComputeWorkgroupStorageSize):
		return fmt.Errorf("gpu: %d bytes of workgroup memory exceeds %d", spec.scratchBytes(), l.MaxComputeWorkgroupStorageSize)
	case job.Width/job.TileWidth > int(l.MaxComputeWorkgroupsPerDimension) || job.Height/job.TileHeight > int(l.MaxComputeWorkgroupsPerDimension):
		return fmt.Errorf("gpu: %dx%d groups exceed dispatch limit", job.Height/job.TileHeight, job.Width/job.TileWidth)
	case uint64(len(job.In))*4 > l.MaxStorageBufferBindingSize:
		return fmt.Errorf("gpu: input of %d bytes exceeds storage binding limit", len(job.In)*4)
	}
	return nil
}

func specFor(job tileconv.Job) shaderSpec {
	return shaderSpec{tileH: job.TileHeight, tileW: job.TileWidth, halo: job.Halo()}
}

// Convolve runs the job on the device and blocks until the output has been
// read back. It returns tileconv.ErrFallbackToCPU (wrapped) when no device
// is open, the job exceeds device limits, or the shader cannot be compiled
// for this specialisation, or when the readback mapping is not coherent.
// Any other later failure is a device fault.
func (a *TiledConvAccelerator) Convolve(ctx context.Context, job tileconv.Job) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.gpuReady {
		return fmt.Errorf("%w: %w", tileconv.ErrFallbackToCPU, errNotReady)
	}
	if err := a.fitsLocked(job); err != nil {
		return fmt.Errorf("%w: %w", tileconv.ErrFallbackToCPU, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	pipe, err := a.pipelines.get(a.device, specFor(job))
	if err != nil {
		return fmt.Errorf("%w: %w", tileconv.ErrFallbackToCPU, err)
	}

	slogger().Debug("dispatch",
		"groups_x", job.Width/job.TileWidth, "groups_y", job.Height/job.TileHeight,
		"spec", pipe.spec.String())
	return a.dispatch(job, pipe)
}

// dispatch uploads the job, runs one compute pass and reads the output back.
func (a *TiledConvAccelerator) dispatch(job tileconv.Job, pipe *convPipeline) error {
	var bufs jobBuffers
	defer bufs.release(a.device)
	if err := bufs.allocate(a.device, len(job.In), len(job.Filter), len(job.Out)); err != nil {
		return err
	}

	params := convParams{
		outWidth:    uint32(job.Width),       //nolint:gosec // validated positive
		outHeight:   uint32(job.Height),      //nolint:gosec // validated positive
		inWidth:     uint32(job.InputWidth()), //nolint:gosec // validated positive
		filterWidth: uint32(job.FilterWidth), //nolint:gosec // validated positive
	}
	if err := a.queue.WriteBuffer(bufs.params, 0, params.bytes()); err != nil {
		return fmt.Errorf("write params: %w", err)
	}
	if err := a.queue.WriteBuffer(bufs.input, 0, packFloats(job.In)); err != nil {
		return fmt.Errorf("write input: %w", err)
	}
	if err := a.queue.WriteBuffer(bufs.filter, 0, packFloats(job.Filter)); err != nil {
		return fmt.Errorf("write filter: %w", err)
	}

	bg, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "tiled_conv_bind",
		Layout: pipe.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: bindingParams, Resource: gputypes.BufferBinding{Buffer: bufs.params.NativeHandle(), Size: paramsSize}},
			{Binding: bindingInput, Resource: gputypes.BufferBinding{Buffer: bufs.input.NativeHandle(), Size: bufs.inputSize}},
			{Binding: bindingFilter, Resource: gputypes.BufferBinding{Buffer: bufs.filter.NativeHandle(), Size: bufs.filterSize}},
			{Binding: bindingOutput, Resource: gputypes.BufferBinding{Buffer: bufs.output.NativeHandle(), Size: bufs.outputSize}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	defer a.device.DestroyBindGroup(bg)

	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "tiled_conv_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("tiled_conv"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "tiled_conv_pass"})
	pass.SetPipeline(pipe.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(uint32(job.Width/job.TileWidth), uint32(job.Height/job.TileHeight), 1) //nolint:gosec // checked against limits
	pass.End()

	encoder.CopyBufferToBuffer(bufs.output, bufs.staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: bufs.outputSize},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer a.device.FreeCommandBuffer(cmdBuf)

	index, err := a.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := a.waitSubmission(index); err != nil {
		return err
	}
	if err := readStaging(a.device, bufs.staging, job.Out); err != nil {
		if errors.Is(err, errNonCoherent) {
			return fmt.Errorf("%w: %w", tileconv.ErrFallbackToCPU, err)
		}
		return err
	}
	return nil
}

// waitSubmission blocks until the submission has completed.
func (a *TiledConvAccelerator) waitSubmission(index uint64) error {
	if a.queue.PollCompleted() >= index {
		return nil
	}
	if err := a.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	return nil
}

// PipelineCount returns the number of cached shader specialisations.
func (a *TiledConvAccelerator) PipelineCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pipelines.size()
}

// Adapter returns the name of the adapter in use, or "" before Init.
func (a *TiledConvAccelerator) Adapter() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.adapter
}

func (a *TiledConvAccelerator) initGPU() error {
	backend, ok := hal.GetBackend(a.backend)
	if !ok {
		return fmt.Errorf("%s backend not available", a.backend.String())
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return fmt.Errorf("no GPU adapters found")
	}
	selected := selectAdapter(adapters)

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("open device: %w", err)
	}

	a.instance = instance
	a.device = openDev.Device
	a.queue = openDev.Queue
	a.limits = selected.Capabilities.Limits
	if a.limits.MaxComputeInvocationsPerWorkgroup == 0 {
		a.limits = gputypes.DefaultLimits()
	}
	a.adapter = selected.Info.Name
	a.gpuReady = true
	slogger().Info("GPU accelerator initialized",
		"adapter", selected.Info.Name, "type", selected.Info.DeviceType.String())
	return nil
}

// selectAdapter prefers a discrete, then an integrated GPU, then the first
// adapter.
func selectAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	for _, want := range []gputypes.DeviceType{gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU} {
		for i := range adapters {
			if adapters[i].Info.DeviceType == want {
				return &adapters[i]
			}
		}
	}
	return &adapters[0]
}
