// Package filter generates square convolution filters.
//
// Filters are produced as width*width scalar coefficients in row-major
// order and normalized so they sum to 1.0, then replicated across the pixel
// lanes by Expand. Widths are always odd so every filter has a centre tap.
//
// Available filters:
//   - Identity: a single centred 1.0 tap
//   - Box: uniform 1/(width*width)
//   - Gaussian: separable Gaussian with sigma = width/6 (±3σ spans the filter)
//   - Sharpen: 2*Identity - Box, which also sums to 1.0
//
// Generated filters are cached by (type, width) since the same filter is
// typically applied to many images.
package filter
