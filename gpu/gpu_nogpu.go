//go:build nogpu

package gpu

import "github.com/gogpu/tileconv"

// SetDeviceProvider always fails in builds without GPU support.
func SetDeviceProvider(any) error {
	return tileconv.ErrNoAccelerator
}

// Available always reports false in builds without GPU support.
func Available() bool { return false }
