package implicit

import (
	"fmt"

	"github.com/gogpu/implicit/internal/subtape"
)

// Option configures a Renderable during Build.
// Use functional options to override the defaults derived from the image
// size and dimension.
//
// Example:
//
//	// Defaults: GOMAXPROCS workers, 64/8 regions in 2-D
//	r, err := implicit.Build(t, 512, 2)
//
//	// Four workers and a larger subtape pool
//	r, err := implicit.Build(t, 512, 2,
//	    implicit.WithWorkers(4),
//	    implicit.WithSubtapeChunks(1<<16))
type Option func(*options)

// options holds optional configuration for Build.
type options struct {
	workers       int
	subtapeChunks int
	memoryLimit   int64
	tileSizes     []int
}

// DefaultMemoryLimit bounds the buffers of one Renderable unless
// WithMemoryLimit says otherwise.
const DefaultMemoryLimit = 4 << 30

func defaultOptions() options {
	return options{
		workers:     0, // GOMAXPROCS
		memoryLimit: DefaultMemoryLimit,
	}
}

// DefaultTileSizes returns the region sizes used when WithTileSizes is not
// given: 64 then 8 pixels in 2-D, 64, 16 then 4 voxels in 3-D.
func DefaultTileSizes(dim int) []int {
	if dim == 3 {
		return []int{64, 16, 4}
	}
	return []int{64, 8}
}

// WithWorkers sets the number of worker goroutines. Zero or negative means
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithSubtapeChunks sets the capacity of the subtape pool in chunks of
// subtape.ChunkSize entries. A frame that needs more fails with
// ErrExhausted. Zero selects a capacity derived from the tape and image
// size (see DefaultSubtapeChunks).
func WithSubtapeChunks(n int) Option {
	return func(o *options) {
		o.subtapeChunks = n
	}
}

// WithMemoryLimit bounds the memory Build may allocate for one Renderable.
// Build fails with ErrAllocation when the estimate exceeds it. Zero or
// negative disables the check.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithTileSizes sets the region size of every classification level, largest
// first. Each size must divide the previous one.
//
// Example:
//
//	// 3-D cascade with 32-voxel tiles refined to 8 then 2
//	r, err := implicit.Build(t, 256, 3, implicit.WithTileSizes(32, 8, 2))
func WithTileSizes(sizes ...int) Option {
	return func(o *options) {
		o.tileSizes = append([]int(nil), sizes...)
	}
}

func validateTileSizes(sizes []int) error {
	if len(sizes) == 0 {
		return fmt.Errorf("%w: no sizes", ErrInvalidTileSizes)
	}
	for i, s := range sizes {
		if s <= 0 {
			return fmt.Errorf("%w: size %d is not positive", ErrInvalidTileSizes, s)
		}
		if i > 0 && (s >= sizes[i-1] || sizes[i-1]%s != 0) {
			return fmt.Errorf("%w: %d does not refine %d", ErrInvalidTileSizes, s, sizes[i-1])
		}
	}
	return nil
}

// DefaultSubtapeChunks returns the pool capacity Build uses for a tape of
// the given length: the full tape plus one subtape per region slot of every
// level. A level's slots follow its parent grid, so edge tiles count all of
// their children.
//
// In 2-D this is the worst case and a frame never exhausts the default pool.
// In 3-D each level is capped at sixteen times its grid face, about the size
// of the shell of regions a smooth surface crosses. Scenes with more
// ambiguous regions than that need WithSubtapeChunks.
func DefaultSubtapeChunks(clauses, sizePx, dim int, tileSizes []int) int {
	perTape := subtape.ChunksFor(clauses)
	regions := 1
	side := 0
	for i, s := range tileSizes {
		if i == 0 {
			side = (sizePx + s - 1) / s
		} else {
			side *= tileSizes[i-1] / s
		}
		face := side * side
		if dim == 3 {
			regions += min(face*side, 16*face)
		} else {
			regions += face
		}
	}
	return perTape * regions
}

// footprint estimates the bytes a Renderable allocates up front.
func footprint(clauses, sizePx, dim, chunks, workers int, tileSizes []int) int64 {
	const (
		pixelBytes  = 8  // depth + packed normal
		regionBytes = 24 // state, position and list entries
		clauseBytes = 48 // per-worker scratch per clause
	)
	n := int64(sizePx) * int64(sizePx) * pixelBytes
	n += subtape.Bytes(chunks)
	for _, s := range tileSizes {
		side := int64((sizePx + s - 1) / s)
		grid := side * side
		if dim == 3 {
			grid *= side
		}
		n += grid * regionBytes
	}
	n += int64(workers) * int64(clauses) * clauseBytes
	return n
}
