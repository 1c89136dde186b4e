package cascade

import (
	"github.com/gogpu/implicit/internal/parallel"
)

// NormalRenderer computes surface normals for covered pixels by
// differentiating the full tape at the surface point of each pixel.
type NormalRenderer struct {
	eval *Evaluator
}

// NewNormalRenderer creates the normal stage.
func NewNormalRenderer(e *Evaluator) *NormalRenderer {
	return &NormalRenderer{eval: e}
}

// Draw computes the normal of pixel (x, y). Background pixels, and pixels
// whose gradient has no direction, get the zero normal.
func (r *NormalRenderer) Draw(x, y int, v View, sc *Scratch) {
	e := r.eval
	d := e.image.Depth(x, y)
	if d == 0 {
		e.image.SetNormal(x, y, 0)
		return
	}
	p := v.Point(e.PixelPoint(x, y, int(d)-1))
	g, ok := Normalize(e.Derive(e.full, p, sc).D)
	if !ok {
		e.image.SetNormal(x, y, 0)
		return
	}
	e.image.SetNormal(x, y, PackNormal(g))
}

// Run draws every pixel, one row per work item.
func (r *NormalRenderer) Run(pool *parallel.WorkerPool, v View) {
	n := r.eval.image.Size()
	pool.ForEach(n, func(lo, hi int) {
		sc := r.eval.Acquire()
		defer r.eval.Release(sc)
		for y := lo; y < hi; y++ {
			for x := range n {
				r.Draw(x, y, v, sc)
			}
		}
	})
}
