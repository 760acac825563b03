package tileconv

import (
	"fmt"
	"strings"

	"github.com/gogpu/tileconv/internal/kernel"
)

// Default configuration values.
const (
	// DefaultTileSize is the default group tile edge in pixels.
	DefaultTileSize = 8

	// DefaultScratchLimit is the default per-group scratch budget in bytes.
	// It matches the WebGPU maxComputeWorkgroupStorageSize default.
	DefaultScratchLimit = 16384

	// DefaultMaxGroupWorkers is the default upper bound on workers per group.
	// It matches the WebGPU maxComputeInvocationsPerWorkgroup default.
	DefaultMaxGroupWorkers = 256
)

// Mode selects how the CPU kernel runs the workers of one group.
type Mode = kernel.Mode

// CPU execution modes.
const (
	// ModeGoroutines runs one goroutine per worker with an explicit barrier
	// between loading and evaluation.
	ModeGoroutines = kernel.ModeGoroutines

	// ModePhased runs all loads of a group, then all evaluations, on one
	// goroutine. The phase boundary acts as the barrier.
	ModePhased = kernel.ModePhased
)

// ParseMode parses "goroutines" or "phased".
func ParseMode(s string) (Mode, error) {
	return kernel.ParseMode(s)
}

// Backend selects where a convolution runs.
type Backend int

const (
	// BackendAuto uses the registered accelerator when it accepts the job
	// and the CPU kernel otherwise.
	BackendAuto Backend = iota

	// BackendCPU always uses the CPU kernel.
	BackendCPU

	// BackendGPU requires the registered accelerator. Convolve fails with a
	// device error if none is registered or it declines the job.
	BackendGPU
)

// String returns the backend name.
func (b Backend) String() string {
	switch b {
	case BackendAuto:
		return "auto"
	case BackendCPU:
		return "cpu"
	case BackendGPU:
		return "gpu"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// ParseBackend parses "auto", "cpu" or "gpu".
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return BackendAuto, nil
	case "cpu":
		return BackendCPU, nil
	case "gpu":
		return BackendGPU, nil
	default:
		return 0, fmt.Errorf("tileconv: unknown backend %q", s)
	}
}

// Option configures a convolution.
//
// Example:
//
//	err := tileconv.Convolve(ctx, in, f, out,
//	    tileconv.WithTileSize(16, 16),
//	    tileconv.WithBackend(tileconv.BackendCPU),
//	)
type Option func(*options)

// options holds the resolved configuration for one invocation.
type options struct {
	tileHeight      int
	tileWidth       int
	workers         int
	mode            Mode
	backend         Backend
	scratchLimit    int
	maxGroupWorkers int
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		tileHeight:      DefaultTileSize,
		tileWidth:       DefaultTileSize,
		workers:         0, // GOMAXPROCS
		mode:            ModeGoroutines,
		backend:         BackendAuto,
		scratchLimit:    DefaultScratchLimit,
		maxGroupWorkers: DefaultMaxGroupWorkers,
	}
}

func resolveOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithTileSize sets the group tile to h rows by w columns. Output
// dimensions must be multiples of the tile.
func WithTileSize(h, w int) Option {
	return func(o *options) {
		o.tileHeight = h
		o.tileWidth = w
	}
}

// WithWorkers sets the number of pool goroutines running groups.
// Zero or negative selects GOMAXPROCS. Ignored by Convolver.Convolve, whose
// pool size is fixed at construction.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithMode selects the CPU execution mode.
func WithMode(m Mode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithBackend selects the backend.
func WithBackend(b Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithScratchLimit sets the per-group scratch budget in bytes.
func WithScratchLimit(bytes int) Option {
	return func(o *options) {
		o.scratchLimit = bytes
	}
}

// WithMaxGroupWorkers sets the upper bound on workers per group.
func WithMaxGroupWorkers(n int) Option {
	return func(o *options) {
		o.maxGroupWorkers = n
	}
}
