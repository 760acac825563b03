package tileconv

import (
	"errors"
	"fmt"
)

// Configuration sentinels. Each is reported wrapped in an *Error of
// KindConfig before any group is dispatched.
var (
	// ErrTileMismatch means an output dimension is not a multiple of the
	// tile size. Images are never truncated to fit.
	ErrTileMismatch = errors.New("tileconv: output size not a multiple of tile size")

	// ErrFilterWidth means the filter width is even or not positive.
	ErrFilterWidth = errors.New("tileconv: filter width must be odd and positive")

	// ErrScratchTooSmall means the halo-extended tile does not fit the
	// per-group scratch limit.
	ErrScratchTooSmall = errors.New("tileconv: halo-extended tile exceeds scratch limit")

	// ErrGroupTooLarge means the tile has more workers than a group allows.
	ErrGroupTooLarge = errors.New("tileconv: tile exceeds maximum group size")

	// ErrBufferSize means a buffer length or channel count does not match
	// its declared dimensions.
	ErrBufferSize = errors.New("tileconv: buffer size mismatch")

	// ErrInputExtent means the input is not the output padded by the
	// filter half-width on every side.
	ErrInputExtent = errors.New("tileconv: input must be output size plus 2*halo")

	// ErrNoAccelerator means BackendGPU was requested but no registered
	// accelerator accepts the job.
	ErrNoAccelerator = errors.New("tileconv: no accelerator available")

	// ErrClosed is returned by a Convolver after Close.
	ErrClosed = errors.New("tileconv: convolver closed")
)

// Kind classifies an Error.
type Kind int

const (
	// KindConfig is a precondition violation detected during setup.
	KindConfig Kind = iota

	// KindDevice is a failure while executing on the CPU pool or a device.
	// The invocation is aborted and output contents are undefined.
	KindDevice
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindDevice:
		return "device"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the error type returned by Convolve.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	s := "tileconv: " + e.Kind.String() + " error"
	if e.Op != "" {
		s += " in " + e.Op
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func configError(op string, sentinel error, format string, args ...any) error {
	return &Error{Kind: KindConfig, Op: op, Msg: fmt.Sprintf(format, args...), Err: sentinel}
}

func deviceError(op string, err error) error {
	return &Error{Kind: KindDevice, Op: op, Err: err}
}

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindConfig
}

// IsDevice reports whether err is a device fault.
func IsDevice(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindDevice
}
