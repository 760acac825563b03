// Package wide provides SIMD-friendly lane types for pixel arithmetic.
//
// F32x4 holds the four float32 channels of one pixel as a fixed-size array.
// Simple loops over fixed-size arrays let the Go compiler keep the lanes in
// registers and, on supported architectures, emit packed SSE/NEON
// instructions without unsafe reinterpretation of the underlying buffers.
//
// # Design Philosophy
//
//   - Use simple loops over fixed-size arrays for auto-vectorization
//   - Avoid unsafe and assembly - rely on compiler optimization
//   - Keep functions small and inlineable
//
// # Usage Example
//
//	var sum wide.F32x4
//	for i := range coeffs {
//	    sum = sum.MulAdd(pixels[i], coeffs[i])
//	}
package wide
