package tileconv

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/tileconv/internal/kernel"
	"github.com/gogpu/tileconv/internal/ndrange"
	"github.com/gogpu/tileconv/internal/parallel"
)

// Convolve applies filter to the padded input in and writes the result to
// out. It returns once every output pixel has been written, or with a
// single error.
//
// The input must measure (out.Width+2*halo) x (out.Height+2*halo) where
// halo is filter.HalfWidth(). Configuration errors are reported before any
// output is touched. A device fault leaves out undefined.
//
// Convolve creates a worker pool per call. Use a Convolver for repeated
// invocations.
func Convolve(ctx context.Context, in *Image, filter *Filter, out *Image, opts ...Option) error {
	o := resolveOptions(opts)
	c := newConvolver(o)
	defer c.Close()
	return c.convolve(ctx, in, filter, out, o)
}

// Convolver runs repeated convolutions on a shared worker pool and scratch
// pool. It is safe for concurrent use.
type Convolver struct {
	defaults options
	pool     *parallel.GroupPool
	scratch  *parallel.ScratchPool
}

// NewConvolver creates a Convolver. The options become the defaults of
// every Convolve call; WithWorkers fixes the pool size.
func NewConvolver(opts ...Option) *Convolver {
	return newConvolver(resolveOptions(opts))
}

func newConvolver(o options) *Convolver {
	return &Convolver{
		defaults: o,
		pool:     parallel.NewGroupPool(o.workers),
		scratch:  parallel.NewScratchPool(),
	}
}

// Convolve runs one convolution. Per-call options override the defaults
// given to NewConvolver.
func (c *Convolver) Convolve(ctx context.Context, in *Image, filter *Filter, out *Image, opts ...Option) error {
	o := c.defaults
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return c.convolve(ctx, in, filter, out, o)
}

// Workers returns the size of the worker pool.
func (c *Convolver) Workers() int {
	return c.pool.Workers()
}

// Close stops the worker pool. Close is safe to call multiple times.
func (c *Convolver) Close() {
	c.pool.Close()
}

func (c *Convolver) convolve(ctx context.Context, in *Image, filter *Filter, out *Image, o options) error {
	nd, err := validate(in, filter, out, o)
	if err != nil {
		return err
	}
	if !c.pool.IsRunning() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("tileconv: convolve: %w", err)
	}

	job := Job{
		In:          in.Data,
		Filter:      filter.Data(),
		Out:         out.Data,
		Width:       out.Width,
		Height:      out.Height,
		FilterWidth: filter.Width(),
		TileHeight:  o.tileHeight,
		TileWidth:   o.tileWidth,
	}

	if o.backend != BackendCPU {
		done, err := tryAccelerator(ctx, job, o.backend)
		if done || err != nil {
			return err
		}
	}

	return c.runCPU(job, nd, o.mode)
}

// tryAccelerator offers the job to the registered accelerator. It reports
// done when the accelerator produced the output.
func tryAccelerator(ctx context.Context, job Job, backend Backend) (bool, error) {
	a := Accelerator()
	if a == nil || !a.CanAccelerate(job) {
		if backend == BackendGPU {
			return false, deviceError("accelerator", ErrNoAccelerator)
		}
		return false, nil
	}

	err := a.Convolve(ctx, job)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrFallbackToCPU):
		if backend == BackendGPU {
			return false, deviceError(a.Name(), err)
		}
		Logger().Warn("tileconv: accelerator declined job, using CPU",
			"accelerator", a.Name(), "err", err)
		return false, nil
	default:
		return false, deviceError(a.Name(), err)
	}
}

func (c *Convolver) runCPU(job Job, nd ndrange.NDRange, mode Mode) error {
	logDispatch(nd, job.Halo(), mode, job.ScratchBytes())

	k := kernel.NewTiled(kernel.Params{
		In:          job.In,
		Filter:      job.Filter,
		FilterWidth: job.FilterWidth,
		Out:         job.Out,
		Range:       nd,
	}, c.scratch)

	if err := k.Run(c.pool, mode); err != nil {
		if errors.Is(err, parallel.ErrPoolClosed) {
			return ErrClosed
		}
		return deviceError("cpu", err)
	}
	return nil
}

// validate checks every precondition of the tiled kernel and returns the
// execution range. No buffer is written.
func validate(in *Image, filter *Filter, out *Image, o options) (ndrange.NDRange, error) {
	const op = "validate"

	if err := out.validate("output"); err != nil {
		return ndrange.NDRange{}, &Error{Kind: KindConfig, Op: op, Err: err}
	}
	if err := in.validate("input"); err != nil {
		return ndrange.NDRange{}, &Error{Kind: KindConfig, Op: op, Err: err}
	}
	if err := filter.validate(); err != nil {
		return ndrange.NDRange{}, &Error{Kind: KindConfig, Op: op, Err: err}
	}

	th, tw := o.tileHeight, o.tileWidth
	if th <= 0 || tw <= 0 {
		return ndrange.NDRange{}, configError(op, ErrTileMismatch, "tile %dx%d", th, tw)
	}
	if th*tw > o.maxGroupWorkers {
		return ndrange.NDRange{}, configError(op, ErrGroupTooLarge,
			"tile %dx%d has %d workers, limit %d", th, tw, th*tw, o.maxGroupWorkers)
	}

	nd, err := ndrange.New(ndrange.R(out.Height, out.Width), ndrange.R(th, tw))
	if err != nil {
		return ndrange.NDRange{}, configError(op, ErrTileMismatch,
			"output %dx%d, tile %dx%d: %v", out.Width, out.Height, tw, th, err)
	}

	halo := filter.HalfWidth()
	if in.Width != out.Width+2*halo || in.Height != out.Height+2*halo {
		return ndrange.NDRange{}, configError(op, ErrInputExtent,
			"input %dx%d, output %dx%d, halo %d", in.Width, in.Height, out.Width, out.Height, halo)
	}

	if n := scratchBytes(th, tw, halo); n > o.scratchLimit {
		return ndrange.NDRange{}, configError(op, ErrScratchTooSmall,
			"tile %dx%d with halo %d needs %d bytes, limit %d", th, tw, halo, n, o.scratchLimit)
	}

	return nd, nil
}
