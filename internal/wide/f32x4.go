package wide

// Lanes is the number of float32 channels carried by one pixel.
const Lanes = 4

// F32x4 represents the 4 float32 channels of a pixel.
// Lane 3 carries alpha or padding; arithmetic treats every lane alike.
type F32x4 [Lanes]float32

// SplatF32x4 creates F32x4 with all lanes set to n.
func SplatF32x4(n float32) F32x4 {
	return F32x4{n, n, n, n}
}

// LoadF32x4 reads one pixel from src starting at index i*Lanes.
func LoadF32x4(src []float32, i int) F32x4 {
	_ = src[i*Lanes+Lanes-1]
	s := src[i*Lanes : i*Lanes+Lanes : i*Lanes+Lanes]
	return F32x4{s[0], s[1], s[2], s[3]}
}

// Store writes v into dst starting at index i*Lanes.
func (v F32x4) Store(dst []float32, i int) {
	_ = dst[i*Lanes+Lanes-1]
	d := dst[i*Lanes : i*Lanes+Lanes : i*Lanes+Lanes]
	d[0] = v[0]
	d[1] = v[1]
	d[2] = v[2]
	d[3] = v[3]
}

// Add performs element-wise addition.
func (v F32x4) Add(other F32x4) F32x4 {
	var result F32x4
	for i := range v {
		result[i] = v[i] + other[i]
	}
	return result
}

// Sub performs element-wise subtraction.
func (v F32x4) Sub(other F32x4) F32x4 {
	var result F32x4
	for i := range v {
		result[i] = v[i] - other[i]
	}
	return result
}

// Mul performs element-wise multiplication.
func (v F32x4) Mul(other F32x4) F32x4 {
	var result F32x4
	for i := range v {
		result[i] = v[i] * other[i]
	}
	return result
}

// MulAdd returns v + a*b for each lane.
// The product is rounded before the addition, matching a separate
// multiply followed by an add in single precision.
func (v F32x4) MulAdd(a, b F32x4) F32x4 {
	var result F32x4
	for i := range v {
		p := a[i] * b[i]
		result[i] = v[i] + p
	}
	return result
}

// Scale multiplies every lane by k.
func (v F32x4) Scale(k float32) F32x4 {
	var result F32x4
	for i := range v {
		result[i] = v[i] * k
	}
	return result
}

// Clamp clamps each element to [minVal, maxVal].
func (v F32x4) Clamp(minVal, maxVal float32) F32x4 {
	var result F32x4
	for i := range v {
		switch {
		case v[i] < minVal:
			result[i] = minVal
		case v[i] > maxVal:
			result[i] = maxVal
		default:
			result[i] = v[i]
		}
	}
	return result
}

// MaxAbsDiff returns the largest absolute lane difference between v and other.
func (v F32x4) MaxAbsDiff(other F32x4) float32 {
	var m float32
	for i := range v {
		d := v[i] - other[i]
		if d < 0 {
			d = -d
		}
		if d > m {
			m = d
		}
	}
	return m
}
