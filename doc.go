// Package tileconv applies square convolution filters to planar float
// images using a work-group tiled kernel.
//
// # Overview
//
// The output image is partitioned into equally sized groups (8x8 by
// default). Each group cooperatively copies the halo-extended input region
// it needs into a private scratch tile, waits on a group-wide barrier, and
// then every worker of the group computes one output pixel from the scratch
// tile. Global input is read once per group instead of once per filter tap.
//
// The same algorithm runs on the CPU (goroutines and an explicit barrier)
// and, when a GPU accelerator is registered, as a WGSL compute shader with
// workgroup memory and workgroupBarrier.
//
// # Quick Start
//
//	halo := 5
//	in := tileconv.NewImage(w+2*halo, h+2*halo) // padded input
//	out := tileconv.NewImage(w, h)
//	f, _ := tileconv.NewFilterOfType(tileconv.FilterGaussian, 2*halo+1)
//
//	if err := tileconv.Convolve(ctx, in, f, out); err != nil {
//	    log.Fatal(err)
//	}
//
// # Padding
//
// The input must already be padded by the filter half-width on every side:
// an output of W x H pixels needs an input of (W+2*halo) x (H+2*halo).
// Image.Pad replicates edge pixels; the image I/O layer pads while decoding.
//
// # Preconditions
//
// Output dimensions must be exact multiples of the tile size, the filter
// width must be odd, and the halo-extended tile must fit the scratch limit.
// Violations are reported as configuration errors before any work starts;
// see Error.
//
// # GPU Acceleration
//
// Import the gpu package to register the wgpu accelerator:
//
//	import _ "github.com/gogpu/tileconv/gpu"
//
// If no GPU is available the CPU kernel is used transparently.
package tileconv
