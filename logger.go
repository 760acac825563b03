package tileconv

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/tileconv/internal/ndrange"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip attribute construction entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called while convolutions run on other goroutines.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger for tileconv and its accelerator.
// By default tileconv produces no log output. Pass nil to restore silence.
//
// Log levels used by tileconv:
//   - [slog.LevelDebug]: dispatch geometry (groups, tile, halo, scratch size)
//   - [slog.LevelInfo]: accelerator registration and device selection
//   - [slog.LevelWarn]: CPU fallback from a registered accelerator
//
// Example:
//
//	tileconv.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)

	if a := Accelerator(); a != nil {
		propagateLogger(a, l)
	}
}

// Logger returns the current logger. Sub-packages call this to share the
// same configuration without import cycles.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by accelerators that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes the logger to an accelerator that accepts one.
func propagateLogger(a ConvAccelerator, l *slog.Logger) {
	if ls, ok := a.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}

// logDispatch records the geometry of one CPU dispatch at debug level.
func logDispatch(nd ndrange.NDRange, halo int, mode Mode, scratchBytes int) {
	l := Logger()
	if !l.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	extent := nd.ScratchExtent(halo)
	l.Debug("tileconv: dispatch",
		"global", nd.Global.String(),
		"tile", nd.Local.String(),
		"groups", nd.Groups(),
		"halo", halo,
		"scratch", extent.String(),
		"scratch_bytes", scratchBytes,
		"loads_per_worker", ndrange.LoadsPerWorker(nd.Local, extent),
		"mode", mode.String(),
	)
}
