// Command implicitbench times brute-force and adaptive rendering of an
// implicit surface across a sweep of image sizes.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/tiff"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/implicit"
	"github.com/gogpu/implicit/surface"
	"github.com/gogpu/implicit/tape"
)

func main() {
	var (
		minSize = flag.Int("min", 256, "smallest image size in pixels")
		maxSize = flag.Int("max", 1024, "largest image size in pixels")
		step    = flag.Int("step", 128, "size increment")
		dim     = flag.Int("dim", 2, "dimension (2 or 3)")
		shape   = flag.String("shape", "spheres", "shape to render: spheres or box")
		modes   = flag.String("modes", "brute,adaptive", "comma-separated modes to time")
		warmup  = flag.Int("warmup", 10, "untimed frames per size")
		iters   = flag.Int("iter", 50, "timed frames per size")
		workers = flag.Int("workers", 0, "worker count (0 = GOMAXPROCS)")
		outDir  = flag.String("out", "", "directory for TIFF height maps (empty disables)")
		target  = flag.String("surface", "", "surface target for a shaded PNG of the last frame")
		wgsl    = flag.String("wgsl", "", "write the hard-compiled kernel source to this file")
		lang    = flag.String("lang", "en", "report language tag")
		verbose = flag.Bool("v", false, "log renderer stages")
	)
	flag.Parse()

	sweep, err := sizes(*minSize, *maxSize, *step)
	if err != nil {
		log.Fatalf("Invalid size sweep: %v", err)
	}

	if *verbose {
		implicit.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	t, err := buildShape(*shape)
	if err != nil {
		log.Fatalf("Failed to build shape: %v", err)
	}

	p := message.NewPrinter(language.Make(*lang))
	var opts []implicit.Option
	if *workers > 0 {
		opts = append(opts, implicit.WithWorkers(*workers))
	}

	if *wgsl != "" {
		if err := writeKernel(t, *dim, *wgsl); err != nil {
			log.Fatalf("Failed to write kernel: %v", err)
		}
		log.Printf("Kernel source saved to %s\n", *wgsl)
	}

	for _, mode := range strings.Split(*modes, ",") {
		mode = strings.TrimSpace(mode)
		p.Printf("Rendering %s (%d-D)\n", mode, *dim)
		for i, size := range sweep {
			r, err := implicit.Build(t, size, *dim, opts...)
			if err != nil {
				log.Fatalf("Failed to build %dpx renderable: %v", size, err)
			}
			run, err := runner(r, mode)
			if err != nil {
				r.Close()
				log.Fatalf("%v", err)
			}

			times, err := measure(run, *warmup, *iters)
			if err != nil {
				r.Close()
				log.Fatalf("Failed to render %dpx frame: %v", size, err)
			}
			mean, stddev := meanStddev(times)
			p.Printf("%6d px  %10.3f ms  ± %8.3f ms  peak %d chunks\n", size, mean, stddev, r.Stats().SubtapePeak)

			if *outDir != "" {
				name := filepath.Join(*outDir, fmt.Sprintf("out_%s_%d.tiff", mode, size))
				if err := saveTIFF(r, name); err != nil {
					r.Close()
					log.Fatalf("Failed to save: %v", err)
				}
			}
			if *target != "" && i == len(sweep)-1 {
				if err := saveSurface(r, *target, fmt.Sprintf("out_%s_%d.png", mode, size)); err != nil {
					r.Close()
					log.Fatalf("Failed to copy to surface: %v", err)
				}
			}
			r.Close()
		}
	}
}

// sizes returns the image sizes from lo to hi inclusive in steps of step.
func sizes(lo, hi, step int) ([]int, error) {
	switch {
	case lo <= 0:
		return nil, fmt.Errorf("min size %d is not positive", lo)
	case step <= 0:
		return nil, fmt.Errorf("step %d is not positive", step)
	case lo > hi:
		return nil, fmt.Errorf("min size %d exceeds max size %d", lo, hi)
	}
	out := make([]int, 0, (hi-lo)/step+1)
	for s := lo; s <= hi; s += step {
		out = append(out, s)
	}
	return out, nil
}

// buildShape returns the named test shape.
func buildShape(name string) (*tape.Tape, error) {
	b := tape.NewBuilder()
	switch name {
	case "spheres":
		return b.Build(b.Min(b.Sphere(-0.5, 0, 0, 0.25), b.Sphere(0.5, 0, 0, 0.25)))
	case "box":
		return b.Build(b.Box(-0.5, -0.5, -0.5, 0.5, 0.5, 0.5))
	default:
		return nil, fmt.Errorf("unknown shape %q", name)
	}
}

// runner returns the frame function for a mode.
func runner(r *implicit.Renderable, mode string) (func() error, error) {
	switch mode {
	case "brute":
		return func() error { return r.RunBrute(implicit.Identity()) }, nil
	case "adaptive":
		return func() error { return r.Run(implicit.Identity()) }, nil
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

// measure runs warmup untimed frames, then returns the duration of each of
// iters timed frames in milliseconds.
func measure(run func() error, warmup, iters int) ([]float64, error) {
	for range warmup {
		if err := run(); err != nil {
			return nil, err
		}
	}
	times := make([]float64, 0, iters)
	for range iters {
		start := time.Now()
		if err := run(); err != nil {
			return nil, err
		}
		times = append(times, float64(time.Since(start).Nanoseconds())/1e6)
	}
	return times, nil
}

func saveTIFF(r *implicit.Renderable, name string) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := tiff.Encode(f, r.HeightImage(), &tiff.Options{Compression: tiff.Deflate}); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func saveSurface(r *implicit.Renderable, backend, name string) error {
	dst, err := surface.NewTargetByName(backend, r.Size(), r.Size())
	if err != nil {
		return err
	}
	if err := r.CopyToSurface(dst, implicit.ModeShaded, false); err != nil {
		return err
	}
	pm, ok := dst.(*surface.PixmapTarget)
	if !ok {
		return nil
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := png.Encode(f, pm.Image()); err != nil {
		_ = f.Close()
		return err
	}
	log.Printf("Shaded frame saved to %s\n", name)
	return f.Close()
}

func writeKernel(t *tape.Tape, dim int, name string) error {
	r, err := implicit.Build(t, 64, dim)
	if err != nil {
		return err
	}
	defer r.Close()
	k, err := r.Kernel()
	if err != nil {
		return err
	}
	return os.WriteFile(name, []byte(k.WGSL), 0o600)
}
