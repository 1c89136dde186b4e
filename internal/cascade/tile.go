package cascade

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/implicit/internal/parallel"
	"github.com/gogpu/implicit/internal/subtape"
)

// stageError keeps the first error raised by any worker of a stage.
type stageError struct {
	once   sync.Once
	err    error
	failed atomic.Bool
}

func (s *stageError) set(err error) {
	s.once.Do(func() {
		s.err = err
		s.failed.Store(true)
	})
}

// TileRenderer classifies the first-level regions against the full tape.
type TileRenderer struct {
	eval  *Evaluator
	Tiles *Tiles
}

// NewTileRenderer creates the first stage over tiles of the given size.
func NewTileRenderer(e *Evaluator, size int) *TileRenderer {
	return &TileRenderer{
		eval:  e,
		Tiles: NewTiles(e.image.Size(), size, e.dim),
	}
}

// Check classifies the region in slot tile. For an Ambiguous result the
// interval pass is left in sc for BuildTape.
func (r *TileRenderer) Check(tile int, v View, sc *Scratch) Kind {
	return r.eval.classify(v, r.eval.root, r.Tiles.Corner(tile), r.Tiles.regionSize, sc)
}

// BuildTape stores the subtape of the tile last passed to Check with sc.
func (r *TileRenderer) BuildTape(sc *Scratch) (subtape.Handle, error) {
	return r.eval.BuildTape(sc)
}

// Run classifies every tile and fills the filled ones.
func (r *TileRenderer) Run(pool *parallel.WorkerPool, v View) error {
	r.Tiles.ResetGrid()
	var serr stageError
	pool.ForEach(r.Tiles.Len(), func(lo, hi int) {
		sc := r.eval.Acquire()
		defer r.eval.Release(sc)
		build := func() (subtape.Handle, error) { return r.BuildTape(sc) }
		for tile := lo; tile < hi; tile++ {
			if serr.failed.Load() {
				r.Tiles.Set(tile, State{Kind: Empty})
				continue
			}
			r.Tiles.Set(tile, settle(r.Check(tile, v, sc), build, &serr))
		}
	})
	r.Tiles.Finish()
	if serr.err != nil {
		return serr.err
	}
	fill(pool, r.eval.image, r.Tiles)
	return nil
}

// settle turns a classification into a slot state, storing the subtape of
// an ambiguous region.
func settle(kind Kind, build func() (subtape.Handle, error), serr *stageError) State {
	if kind != Ambiguous {
		return State{Kind: kind}
	}
	h, err := build()
	if err != nil {
		serr.set(err)
		return State{Kind: Empty}
	}
	return State{Kind: Ambiguous, Tape: h}
}

// fill writes the depth of every filled region of a level. In 2-D a filled
// pixel has depth 1; in 3-D a filled region covers its whole column span, so
// its top voxel sets the depth.
func fill(pool *parallel.WorkerPool, im *Image, t *Tiles) {
	filled := t.Filled()
	n := im.Size()
	pool.ForEach(len(filled), func(lo, hi int) {
		for _, slot := range filled[lo:hi] {
			c := t.Corner(int(slot))
			d := uint32(1)
			if t.dim == 3 {
				d = uint32(min(c[2]+t.regionSize, n)) //nolint:gosec // bounded by image size
			}
			for y := c[1]; y < min(c[1]+t.regionSize, n); y++ {
				for x := c[0]; x < min(c[0]+t.regionSize, n); x++ {
					im.Raise(x, y, d)
				}
			}
		}
	})
}
