//go:build !nogpu

// Package gpu implements the tiled convolution on the GPU through
// gogpu/wgpu HAL.
//
// TiledConvAccelerator compiles a WGSL compute shader specialised per
// (tile, halo) with naga, dispatches one workgroup per output tile, and reads
// the output back through a mappable staging buffer. Workgroup memory holds
// the halo-extended tile; workgroupBarrier separates loading from
// evaluation.
//
// The accelerator opens its own Vulkan device by default. Hosts that already
// own a device share it through SetDeviceProvider with a
// gpucontext.DeviceProvider.
//
// Build with -tags nogpu to exclude the package.
package gpu
