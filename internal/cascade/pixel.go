package cascade

import (
	"github.com/gogpu/implicit/internal/parallel"
)

// PixelRenderer evaluates every pixel (voxel in 3-D) of the finest
// ambiguous regions under their subtapes.
type PixelRenderer struct {
	eval  *Evaluator
	Tiles *Tiles
}

// NewPixelRenderer creates the pixel stage over the finest region level.
func NewPixelRenderer(e *Evaluator, finest *Tiles) *PixelRenderer {
	return &PixelRenderer{eval: e, Tiles: finest}
}

// Draw evaluates the region in slot. In 3-D each column is scanned from the
// top down and stops at the first inside voxel or at the depth already
// written by another region, whichever comes first.
func (r *PixelRenderer) Draw(slot int, v View, sc *Scratch) {
	e := r.eval
	im := e.image
	n := im.Size()
	size := r.Tiles.regionSize
	entries := e.subtapes.Entries(r.Tiles.State(slot).Tape)
	c := r.Tiles.Corner(slot)
	x1, y1 := min(c[0]+size, n), min(c[1]+size, n)

	if e.dim == 2 {
		for y := c[1]; y < y1; y++ {
			for x := c[0]; x < x1; x++ {
				if e.Value(entries, v.Point(e.PixelPoint(x, y, 0)), sc) < 0 {
					im.Raise(x, y, 1)
				}
			}
		}
		return
	}

	top := min(c[2]+size, n)
	for y := c[1]; y < y1; y++ {
		for x := c[0]; x < x1; x++ {
			for z := top - 1; z >= c[2]; z-- {
				if im.Depth(x, y) > uint32(z) { //nolint:gosec // z >= 0
					break
				}
				if e.Value(entries, v.Point(e.PixelPoint(x, y, z)), sc) < 0 {
					im.Raise(x, y, uint32(z+1)) //nolint:gosec // z >= 0
					break
				}
			}
		}
	}
}

// Run draws every active region of the finest level.
func (r *PixelRenderer) Run(pool *parallel.WorkerPool, v View) {
	active := r.Tiles.Active()
	pool.ForEach(len(active), func(lo, hi int) {
		sc := r.eval.Acquire()
		defer r.eval.Release(sc)
		for _, slot := range active[lo:hi] {
			r.Draw(int(slot), v, sc)
		}
	})
}
