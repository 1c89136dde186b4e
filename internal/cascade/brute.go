package cascade

import (
	"github.com/gogpu/implicit/internal/parallel"
)

// BruteRenderer evaluates the full tape at every pixel (every voxel in 3-D,
// scanning each column from the top). It produces the same depth image as
// the cascade and serves as its reference.
type BruteRenderer struct {
	eval *Evaluator
}

// NewBruteRenderer creates the reference renderer.
func NewBruteRenderer(e *Evaluator) *BruteRenderer {
	return &BruteRenderer{eval: e}
}

// HeightAt returns the depth of pixel (x, y) under the full tape.
func (r *BruteRenderer) HeightAt(x, y int, v View, sc *Scratch) uint32 {
	e := r.eval
	if e.dim == 2 {
		if e.Value(e.full, v.Point(e.PixelPoint(x, y, 0)), sc) < 0 {
			return 1
		}
		return 0
	}
	for z := e.image.Size() - 1; z >= 0; z-- {
		if e.Value(e.full, v.Point(e.PixelPoint(x, y, z)), sc) < 0 {
			return uint32(z + 1) //nolint:gosec // z >= 0
		}
	}
	return 0
}

// Run fills the depth image one row per work item.
func (r *BruteRenderer) Run(pool *parallel.WorkerPool, v View) {
	im := r.eval.image
	n := im.Size()
	pool.ForEach(n, func(lo, hi int) {
		sc := r.eval.Acquire()
		defer r.eval.Release(sc)
		for y := lo; y < hi; y++ {
			for x := range n {
				if d := r.HeightAt(x, y, v, sc); d > 0 {
					im.Raise(x, y, d)
				}
			}
		}
	})
}
