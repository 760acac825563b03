// Package cache provides a small generic LRU used for derived convolution
// state: lane-expanded filter coefficients and compiled device pipelines.
//
//	c := cache.New[key, []float32](64, nil)
//	coeffs, err := c.GetOrCreate(k, func() ([]float32, error) { return build(k) })
//
// A hard limit bounds the entry count; the least recently used entry is
// evicted first and handed to the eviction callback, which is how device
// objects get released. Cache is safe for concurrent use.
package cache
