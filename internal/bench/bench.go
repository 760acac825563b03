// Package bench times repeated convolution runs and summarizes them.
package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrNoIterations is returned when Run is asked for fewer than one iteration.
var ErrNoIterations = errors.New("bench: iterations must be positive")

// Result summarizes the wall time of repeated runs.
type Result struct {
	Iterations int
	Pixels     int // output pixels produced per run
	Min        time.Duration
	Max        time.Duration
	Mean       time.Duration
	Median     time.Duration
	StdDev     time.Duration
	Total      time.Duration
}

// Run calls fn iterations times and collects timings. The first error from
// fn stops the run and is returned. ctx is checked between iterations.
func Run(ctx context.Context, iterations, pixels int, fn func() error) (Result, error) {
	if iterations < 1 {
		return Result{}, ErrNoIterations
	}

	samples := make([]time.Duration, 0, iterations)
	for i := range iterations {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("bench: iteration %d: %w", i, err)
		}
		start := time.Now()
		if err := fn(); err != nil {
			return Result{}, fmt.Errorf("bench: iteration %d: %w", i, err)
		}
		samples = append(samples, time.Since(start))
	}
	return summarize(samples, pixels), nil
}

func summarize(samples []time.Duration, pixels int) Result {
	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	n := len(sorted)
	r := Result{
		Iterations: n,
		Pixels:     pixels,
		Min:        sorted[0],
		Max:        sorted[n-1],
	}
	for _, d := range sorted {
		r.Total += d
	}
	r.Mean = r.Total / time.Duration(n)

	if n%2 == 1 {
		r.Median = sorted[n/2]
	} else {
		r.Median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	var ss float64
	for _, d := range sorted {
		diff := float64(d - r.Mean)
		ss += diff * diff
	}
	r.StdDev = time.Duration(math.Sqrt(ss / float64(n)))
	return r
}

// Throughput returns megapixels per second at the mean run time.
func (r Result) Throughput() float64 {
	if r.Mean <= 0 {
		return 0
	}
	return float64(r.Pixels) / r.Mean.Seconds() / 1e6
}

// Report writes a human-readable summary using the number formatting of tag.
func (r Result) Report(w io.Writer, tag language.Tag) error {
	p := message.NewPrinter(tag)
	_, err := p.Fprintf(w,
		"iterations: %d\npixels:     %d\nmin:        %v\nmedian:     %v\nmean:       %v\nmax:        %v\nstddev:     %v\nthroughput: %.2f Mpx/s\n",
		r.Iterations, r.Pixels, r.Min, r.Median, r.Mean, r.Max, r.StdDev, r.Throughput())
	return err
}
