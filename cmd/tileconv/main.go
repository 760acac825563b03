// Command tileconv convolves an image with a square filter using the tiled
// kernel and reports timings.
package main

import (
	"context"
	"flag"
	"fmt"
	stdimage "image"
	"image/color"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/gogpu/tileconv"
	"github.com/gogpu/tileconv/gpu"
	"github.com/gogpu/tileconv/internal/bench"
	"github.com/gogpu/tileconv/internal/device"
	"github.com/gogpu/tileconv/internal/image"
	"github.com/gogpu/tileconv/internal/kernel"
	"github.com/gogpu/tileconv/internal/ndrange"
)

// verifyTolerance allows for device arithmetic that does not match the CPU
// summation bit for bit.
const verifyTolerance = 1e-4

func main() {
	var (
		input      = flag.String("in", "", "input image (PNG, JPEG, BMP, TIFF or WebP); a synthetic pattern when empty")
		output     = flag.String("out", "out.png", "output image (.png or .jpg)")
		rawOut     = flag.String("raw", "", "also write the float result as a zstd raw dump")
		filterName = flag.String("filter", "gaussian", "filter: identity, box, gaussian, sharpen")
		width      = flag.Int("width", 11, "filter width (odd)")
		sigma      = flag.Float64("sigma", 0, "gaussian sigma; width/6 when zero")
		tile       = flag.String("tile", "8x8", "group tile as HxW")
		iterations = flag.Int("iterations", 1, "timed runs")
		workers    = flag.Int("workers", 0, "concurrent groups; GOMAXPROCS when zero")
		backend    = flag.String("backend", "auto", "backend: auto, cpu, gpu")
		mode       = flag.String("mode", "goroutines", "group execution: goroutines, phased")
		fit        = flag.Bool("fit", true, "rescale the input to a multiple of the tile")
		size       = flag.Int("size", 512, "synthetic pattern size")
		quality    = flag.Int("quality", 90, "JPEG quality")
		lang       = flag.String("lang", "en", "report number formatting language")
		verify     = flag.Bool("verify", false, "compare against the untiled reference")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		tileconv.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		log.Printf("host: %s", device.Detect())
		log.Printf("gpu available: %v", gpu.Available())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tileH, tileW, err := parseTile(*tile)
	if err != nil {
		log.Fatalf("Invalid -tile: %v", err)
	}
	be, err := tileconv.ParseBackend(*backend)
	if err != nil {
		log.Fatalf("Invalid -backend: %v", err)
	}
	m, err := tileconv.ParseMode(*mode)
	if err != nil {
		log.Fatalf("Invalid -mode: %v", err)
	}
	f, err := buildFilter(*filterName, *width, *sigma)
	if err != nil {
		log.Fatalf("Invalid filter: %v", err)
	}

	src, err := loadSource(*input, *size)
	if err != nil {
		log.Fatalf("Failed to load: %v", err)
	}
	if *fit {
		src = image.FitTile(src, tileH, tileW)
	}

	in := image.ToPlanar(src, f.HalfWidth())
	b := src.Bounds()
	out := tileconv.NewImage(b.Dx(), b.Dy())

	conv := tileconv.NewConvolver(
		tileconv.WithTileSize(tileH, tileW),
		tileconv.WithWorkers(*workers),
		tileconv.WithBackend(be),
		tileconv.WithMode(m),
	)
	defer conv.Close()

	res, err := bench.Run(ctx, *iterations, out.Width*out.Height, func() error {
		return conv.Convolve(ctx, in, f, out)
	})
	if err != nil {
		log.Fatalf("Convolution failed: %v", err)
	}
	if err := res.Report(os.Stdout, language.Make(*lang)); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}

	if *verify {
		diff, err := compareReference(in, f, out)
		if err != nil {
			log.Fatalf("Verify failed: %v", err)
		}
		if diff > verifyTolerance {
			log.Fatalf("Verify failed: max difference %g exceeds %g", diff, verifyTolerance)
		}
		log.Printf("Verify ok: max difference %g", diff)
	}

	if err := image.Save(*output, image.FromPlanar(out), *quality); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	if *rawOut != "" {
		if err := image.SaveRaw(*rawOut, out); err != nil {
			log.Fatalf("Failed to save raw: %v", err)
		}
	}

	log.Printf("Saved %s (%dx%d, %s filter width %d, tile %dx%d)", *output, out.Width, out.Height, *filterName, f.Width(), tileH, tileW)
}

func parseTile(s string) (int, int, error) {
	hs, ws, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("%q is not HxW", s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("tile height: %w", err)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("tile width: %w", err)
	}
	if h < 1 || w < 1 {
		return 0, 0, fmt.Errorf("tile %dx%d must be positive", h, w)
	}
	return h, w, nil
}

func buildFilter(name string, width int, sigma float64) (*tileconv.Filter, error) {
	t, err := tileconv.ParseFilterType(name)
	if err != nil {
		return nil, err
	}
	if t == tileconv.FilterGaussian && sigma > 0 {
		return tileconv.GaussianFilter(width, sigma)
	}
	return tileconv.NewFilterOfType(t, width)
}

func loadSource(path string, size int) (stdimage.Image, error) {
	if path != "" {
		img, format, err := image.Load(path)
		if err != nil {
			return nil, err
		}
		log.Printf("Loaded %s (%s, %dx%d)", path, format, img.Bounds().Dx(), img.Bounds().Dy())
		return img, nil
	}
	return checkerboard(size), nil
}

// checkerboard draws a pattern with sharp edges so filters have something
// visible to act on.
func checkerboard(size int) stdimage.Image {
	img := stdimage.NewNRGBA(stdimage.Rect(0, 0, size, size))
	const cell = 32
	for y := range size {
		for x := range size {
			c := color.NRGBA{R: 30, G: 60, B: 120, A: 255}
			if (x/cell+y/cell)%2 == 0 {
				c = color.NRGBA{R: 240, G: 200, B: uint8(x * 255 / size), A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// compareReference recomputes out with the untiled kernel and returns the
// largest per-channel difference.
func compareReference(in *tileconv.Image, f *tileconv.Filter, out *tileconv.Image) (float32, error) {
	nd, err := ndrange.New(ndrange.R(out.Height, out.Width), ndrange.R(1, 1))
	if err != nil {
		return 0, err
	}
	ref := tileconv.NewImage(out.Width, out.Height)
	kernel.Reference(kernel.Params{
		In:          in.Data,
		Filter:      f.Data(),
		FilterWidth: f.Width(),
		Out:         ref.Data,
		Range:       nd,
	})
	return out.MaxAbsDiff(ref), nil
}
