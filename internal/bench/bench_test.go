package bench

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"
)

func TestRun_CountsIterations(t *testing.T) {
	calls := 0
	r, err := Run(context.Background(), 5, 64, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 5 || r.Iterations != 5 {
		t.Errorf("calls = %d, Iterations = %d, want 5", calls, r.Iterations)
	}
	if r.Min > r.Median || r.Median > r.Max {
		t.Errorf("ordering broken: min=%v median=%v max=%v", r.Min, r.Median, r.Max)
	}
}

func TestRun_Errors(t *testing.T) {
	if _, err := Run(context.Background(), 0, 1, func() error { return nil }); !errors.Is(err, ErrNoIterations) {
		t.Errorf("zero iterations: err = %v", err)
	}

	boom := errors.New("boom")
	calls := 0
	_, err := Run(context.Background(), 10, 1, func() error {
		calls++
		if calls == 3 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) || calls != 3 {
		t.Errorf("err = %v after %d calls, want boom after 3", err, calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, 3, 1, func() error { return nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: err = %v", err)
	}
}

func TestSummarize(t *testing.T) {
	ms := time.Millisecond
	tests := []struct {
		name       string
		samples    []time.Duration
		wantMedian time.Duration
		wantMean   time.Duration
		wantStdDev time.Duration
	}{
		{"odd", []time.Duration{3 * ms, 1 * ms, 2 * ms}, 2 * ms, 2 * ms, 816496},
		{"even", []time.Duration{4 * ms, 1 * ms, 3 * ms, 2 * ms}, 2500 * time.Microsecond, 2500 * time.Microsecond, 1118033},
		{"single", []time.Duration{5 * ms}, 5 * ms, 5 * ms, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := summarize(tt.samples, 0)
			if r.Median != tt.wantMedian || r.Mean != tt.wantMean {
				t.Errorf("median = %v mean = %v, want %v %v", r.Median, r.Mean, tt.wantMedian, tt.wantMean)
			}
			if d := r.StdDev - tt.wantStdDev; d < -1 || d > 1 {
				t.Errorf("stddev = %d, want %d", r.StdDev, tt.wantStdDev)
			}
		})
	}
}

func TestSummarize_DoesNotReorderInput(t *testing.T) {
	in := []time.Duration{3, 1, 2}
	summarize(in, 0)
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Errorf("input reordered: %v", in)
	}
}

func TestThroughput(t *testing.T) {
	r := Result{Pixels: 2_000_000, Mean: 500 * time.Millisecond}
	if got := r.Throughput(); got != 4 {
		t.Errorf("Throughput = %v, want 4", got)
	}
	if got := (Result{}).Throughput(); got != 0 {
		t.Errorf("zero result Throughput = %v, want 0", got)
	}
}

func TestReport_Localized(t *testing.T) {
	r := Result{Iterations: 1000, Pixels: 1048576, Mean: time.Second}

	var en, de bytes.Buffer
	if err := r.Report(&en, language.English); err != nil {
		t.Fatal(err)
	}
	if err := r.Report(&de, language.German); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(en.String(), "1,048,576") {
		t.Errorf("english report missing grouped pixels:\n%s", en.String())
	}
	if !strings.Contains(de.String(), "1.048.576") {
		t.Errorf("german report missing grouped pixels:\n%s", de.String())
	}
	if !strings.Contains(en.String(), "throughput: 1.05 Mpx/s") {
		t.Errorf("english report missing throughput:\n%s", en.String())
	}
}
