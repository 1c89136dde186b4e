package implicit

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/chewxy/math32"

	"github.com/gogpu/implicit/internal/cascade"
	"github.com/gogpu/implicit/internal/parallel"
	"github.com/gogpu/implicit/internal/subtape"
	"github.com/gogpu/implicit/kernel"
	"github.com/gogpu/implicit/surface"
	"github.com/gogpu/implicit/tape"
)

// Mode selects what CopyToSurface writes.
type Mode int

const (
	// ModeHeight writes the height map as gray levels.
	ModeHeight Mode = iota
	// ModeNormal writes packed normals as RGB.
	ModeNormal
	// ModeShaded writes the surface lit from the viewer.
	ModeShaded
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeHeight:
		return "height"
	case ModeNormal:
		return "normal"
	case ModeShaded:
		return "shaded"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Renderable renders one tape at a fixed resolution.
//
// It owns the output buffers, the subtape pool and a worker pool. A frame
// runs the tile stage, one subtile stage per finer region size, the pixel
// stage and the normal stage, in that order; each stage is parallel over
// regions and ends at a barrier.
//
// Renderable is safe for concurrent use, but frames are serialized: Run and
// RunBrute hold an internal lock for the whole frame. Separate Renderables
// render independently.
type Renderable struct {
	mu     sync.Mutex
	closed bool

	tape  *tape.Tape
	size  int
	dim   int
	sizes []int

	pool     *parallel.WorkerPool
	subtapes *subtape.Subtapes
	image    *cascade.Image
	eval     *cascade.Evaluator

	tiles    *cascade.TileRenderer
	subtiles []*cascade.SubtileRenderer
	pixels   *cascade.PixelRenderer
	normals  *cascade.NormalRenderer
	brute    *cascade.BruteRenderer
	kernel   *kernel.Kernel

	gpu    *kernel.Device
	runner *kernel.Runner
}

// Build prepares a Renderable for the tape at a sizePx×sizePx resolution in
// dim (2 or 3) dimensions. On failure no Renderable is returned.
func Build(t *tape.Tape, sizePx, dim int, opts ...Option) (*Renderable, error) {
	if t.Len() == 0 {
		return nil, fmt.Errorf("%w: %w", ErrEmptyTape, tape.ErrEmpty)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("implicit: build: %w", err)
	}
	if sizePx <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, sizePx)
	}
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	sizes := o.tileSizes
	if sizes == nil {
		sizes = DefaultTileSizes(dim)
	}
	if err := validateTileSizes(sizes); err != nil {
		return nil, err
	}
	chunks := o.subtapeChunks
	if chunks <= 0 {
		chunks = DefaultSubtapeChunks(t.Len(), sizePx, dim, sizes)
	}

	pool := parallel.NewWorkerPool(o.workers)
	need := footprint(t.Len(), sizePx, dim, chunks, pool.Workers(), sizes)
	if o.memoryLimit > 0 && need > o.memoryLimit {
		pool.Close()
		return nil, fmt.Errorf("%w: need %d bytes, limit %d", ErrAllocation, need, o.memoryLimit)
	}

	r := &Renderable{
		tape:     t,
		size:     sizePx,
		dim:      dim,
		sizes:    sizes,
		pool:     pool,
		subtapes: subtape.New(chunks),
		image:    cascade.NewImage(sizePx),
	}
	r.eval = cascade.NewEvaluator(t, r.subtapes, r.image, dim)
	r.tiles = cascade.NewTileRenderer(r.eval, sizes[0])
	parent := r.tiles.Tiles
	for _, s := range sizes[1:] {
		sub := cascade.NewSubtileRenderer(r.eval, parent, s)
		r.subtiles = append(r.subtiles, sub)
		parent = sub.Tiles
	}
	r.pixels = cascade.NewPixelRenderer(r.eval, parent)
	r.normals = cascade.NewNormalRenderer(r.eval)
	r.brute = cascade.NewBruteRenderer(r.eval)

	Logger().Info("implicit: renderable built",
		"clauses", t.Len(),
		"choices", t.ChoiceCount(),
		"size", sizePx,
		"dim", dim,
		"tiles", sizes,
		"workers", pool.Workers(),
		"subtapeChunks", chunks,
		"bytes", need)
	return r, nil
}

// Run renders one frame adaptively under the view.
//
// When the subtape pool overflows Run returns an error wrapping
// ErrExhausted and leaves the buffers cleared.
func (r *Renderable) Run(v View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	log := Logger()
	r.image.Clear()
	if err := r.eval.Begin(); err != nil {
		return r.fail(err)
	}

	if err := r.tiles.Run(r.pool, v); err != nil {
		return r.fail(err)
	}
	log.Debug("implicit: stage done", "regionSize", r.sizes[0],
		"filled", len(r.tiles.Tiles.Filled()), "ambiguous", len(r.tiles.Tiles.Active()))

	for _, sub := range r.subtiles {
		if err := sub.Run(r.pool, v); err != nil {
			return r.fail(err)
		}
		log.Debug("implicit: stage done", "regionSize", sub.Tiles.RegionSize(),
			"regions", sub.Tiles.Len(),
			"filled", len(sub.Tiles.Filled()), "ambiguous", len(sub.Tiles.Active()))
	}

	r.pixels.Run(r.pool, v)
	r.normals.Run(r.pool, v)
	log.Debug("implicit: frame done",
		"subtapeChunks", r.subtapes.Used(), "capacity", r.subtapes.Capacity())
	return nil
}

func (r *Renderable) fail(err error) error {
	if errors.Is(err, subtape.ErrExhausted) {
		Logger().Warn("implicit: subtape pool exhausted",
			"requested", r.subtapes.Used(), "capacity", r.subtapes.Capacity())
	}
	r.image.Clear()
	return fmt.Errorf("implicit: run: %w", err)
}

// RunBrute renders one frame by evaluating the full tape at every pixel
// (every voxel in 3-D), without classification or pruning. Its output is
// identical to Run's.
func (r *Renderable) RunBrute(v View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.image.Clear()
	r.brute.Run(r.pool, v)
	r.normals.Run(r.pool, v)
	return nil
}

// Kernel returns the hard-compiled brute-force compute shader for the tape.
// It is generated and compiled on first use and cached.
func (r *Renderable) Kernel() (*kernel.Kernel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.kernel == nil {
		k, err := kernel.Build(r.tape, r.dim)
		if err != nil {
			return nil, fmt.Errorf("implicit: %w", err)
		}
		r.kernel = k
	}
	return r.kernel, nil
}

// RunKernel renders one frame by dispatching the hard-compiled kernel on the
// GPU, then computes normals on the CPU. The device is opened on first use
// and kept until Close. On machines without a GPU it returns an error
// wrapping ErrNoDevice.
func (r *Renderable) RunKernel(v View) error {
	k, err := r.Kernel()
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.runner == nil {
		dev, err := kernel.OpenDevice()
		if err != nil {
			return fmt.Errorf("implicit: %w", err)
		}
		runner, err := kernel.NewRunner(dev, k)
		if err != nil {
			dev.Close()
			return fmt.Errorf("implicit: %w", err)
		}
		r.gpu, r.runner = dev, runner
		Logger().Info("implicit: kernel device opened", "adapter", dev.Name)
	}

	r.image.Clear()
	heights, err := r.runner.Run(uint32(r.size), v) //nolint:gosec // size > 0
	if err != nil {
		return fmt.Errorf("implicit: run kernel: %w", err)
	}
	for i, h := range heights {
		if h > 0 {
			r.image.Raise(i%r.size, i/r.size, h)
		}
	}
	r.normals.Run(r.pool, v)
	return nil
}

// Close releases the worker pool and the GPU device, if one was opened.
// Close is safe to call multiple times.
func (r *Renderable) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.pool.Close()
	if r.runner != nil {
		r.runner.Destroy()
		r.gpu.Close()
		r.runner, r.gpu = nil, nil
	}
}

// Size returns the image edge length in pixels.
func (r *Renderable) Size() int { return r.size }

// Dim returns 2 or 3.
func (r *Renderable) Dim() int { return r.dim }

// TileSizes returns the region size of every classification level.
func (r *Renderable) TileSizes() []int {
	return append([]int(nil), r.sizes...)
}

// HeightAt returns the height of pixel (x, y) of the last frame, with y
// growing downward. Pixels outside the image have height 0.
func (r *Renderable) HeightAt(x, y int) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if x < 0 || y < 0 || x >= r.size || y >= r.size {
		return 0
	}
	return r.image.Depth(x, y)
}

// NormalAt returns the unit normal of pixel (x, y) of the last frame, decoded
// from its RGBA8 packing. It reports false for pixels without a normal.
func (r *Renderable) NormalAt(x, y int) ([3]float32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if x < 0 || y < 0 || x >= r.size || y >= r.size {
		return [3]float32{}, false
	}
	p := r.image.Normal(x, y)
	if p == 0 {
		return [3]float32{}, false
	}
	return cascade.UnpackNormal(p), true
}

// Heights returns a copy of the height buffer in row-major order.
func (r *Renderable) Heights() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint32(nil), r.image.Depths()...)
}

// Normals returns a copy of the packed normal buffer in row-major order.
// Each value holds R in its low byte and A in its high byte; 0 means no
// normal.
func (r *Renderable) Normals() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint32(nil), r.image.Normals()...)
}

// HeightImage returns the height map scaled to the full 16-bit range.
func (r *Renderable) HeightImage() *image.Gray16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	img := image.NewGray16(image.Rect(0, 0, r.size, r.size))
	scale := uint32(65535)
	if r.dim == 3 {
		scale = 65535 / uint32(r.size) //nolint:gosec // size > 0
	}
	for y := range r.size {
		for x := range r.size {
			img.SetGray16(x, y, color.Gray16{Y: uint16(min(r.image.Depth(x, y)*scale, 65535))}) //nolint:gosec // clamped
		}
	}
	return img
}

// NormalImage returns the normal map. Pixels without a normal are
// transparent.
func (r *Renderable) NormalImage() *image.RGBA {
	return r.Shade(ModeNormal)
}

// Shade returns the last frame rendered in the given mode. Background
// pixels are transparent.
func (r *Renderable) Shade(mode Mode) *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	img := image.NewRGBA(image.Rect(0, 0, r.size, r.size))
	for y := range r.size {
		for x := range r.size {
			d := r.image.Depth(x, y)
			if d == 0 {
				continue
			}
			img.SetRGBA(x, y, r.shadePixel(mode, d, r.image.Normal(x, y)))
		}
	}
	return img
}

func (r *Renderable) shadePixel(mode Mode, d, packed uint32) color.RGBA {
	h := float32(1)
	if r.dim == 3 {
		h = float32(d) / float32(r.size)
	}
	switch mode {
	case ModeNormal:
		if packed == 0 {
			return color.RGBA{}
		}
		return color.RGBA{R: uint8(packed), G: uint8(packed >> 8), B: uint8(packed >> 16), A: 255}
	case ModeShaded:
		lit := float32(0.2)
		if packed != 0 {
			lit += 0.8 * math32.Max(0, cascade.UnpackNormal(packed)[2])
		}
		g := uint8(math32.Round(255 * lit * (0.5 + 0.5*h)))
		return color.RGBA{R: g, G: g, B: g, A: 255}
	default:
		g := uint8(math32.Round(255 * h))
		return color.RGBA{R: g, G: g, B: g, A: 255}
	}
}

// CopyToSurface writes the last frame to target in the given mode. With
// appendTo set the frame is composited over the target's contents, so
// background pixels keep what was there; otherwise the target is replaced.
func (r *Renderable) CopyToSurface(target surface.Target, mode Mode, appendTo bool) error {
	if target == nil {
		return surface.ErrNilTarget
	}
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if err := target.Upload(r.Shade(mode), appendTo); err != nil {
		return fmt.Errorf("implicit: copy to surface: %w", err)
	}
	return nil
}

// LevelStats summarizes one classification level of the last frame.
type LevelStats struct {
	RegionSize int
	Regions    int
	Filled     int
	Ambiguous  int
}

// Stats summarizes the last adaptive frame.
type Stats struct {
	Levels          []LevelStats
	SubtapeChunks   int
	SubtapeCapacity int
	SubtapePeak     int
}

// Stats returns region counts and subtape usage of the last Run.
func (r *Renderable) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	level := func(t *cascade.Tiles) LevelStats {
		return LevelStats{
			RegionSize: t.RegionSize(),
			Regions:    t.Len(),
			Filled:     len(t.Filled()),
			Ambiguous:  len(t.Active()),
		}
	}
	s := Stats{
		Levels:          []LevelStats{level(r.tiles.Tiles)},
		SubtapeChunks:   r.subtapes.Used(),
		SubtapeCapacity: r.subtapes.Capacity(),
		SubtapePeak:     r.subtapes.Peak(),
	}
	for _, sub := range r.subtiles {
		s.Levels = append(s.Levels, level(sub.Tiles))
	}
	return s
}
