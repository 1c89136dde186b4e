package cascade

import (
	"github.com/gogpu/implicit/internal/parallel"
	"github.com/gogpu/implicit/internal/subtape"
)

// SubtileRenderer refines the ambiguous regions of one level into regions of
// a smaller size, classifying each child under its parent's subtape. The same
// renderer serves every refinement step in 2-D and 3-D.
type SubtileRenderer struct {
	eval    *Evaluator
	Parent  *Tiles
	Tiles   *Tiles
	ratio   int
	perTile int
}

// NewSubtileRenderer creates the stage refining parent into regions of size
// pixels. The parent region size must be a multiple of size.
func NewSubtileRenderer(e *Evaluator, parent *Tiles, size int) *SubtileRenderer {
	ratio := parent.regionSize / size
	perTile := ratio * ratio
	if e.dim == 3 {
		perTile *= ratio
	}
	tiles := NewTiles(e.image.Size(), size, e.dim)
	// Children of edge tiles may extend past the image; the grid follows
	// the parent grid so that every child has a distinct position.
	tiles.perSide = parent.perSide * ratio
	return &SubtileRenderer{
		eval:    e,
		Parent:  parent,
		Tiles:   tiles,
		ratio:   ratio,
		perTile: perTile,
	}
}

// PerTile returns the number of children of one parent region.
func (r *SubtileRenderer) PerTile() int { return r.perTile }

func (r *SubtileRenderer) slot(subtile, tile int) int {
	return tile*r.perTile + subtile
}

// place records the absolute position of child subtile of the tile-th active
// parent.
func (r *SubtileRenderer) place(subtile, tile int) {
	parentSlot := int(r.Parent.Active()[tile])
	pc := r.Parent.Coords(r.Parent.Position(parentSlot))
	k := r.ratio
	local := [3]int{subtile % k, (subtile / k) % k, subtile / (k * k)}
	var c [3]int
	for i := range c {
		c[i] = pc[i]*k + local[i]
	}
	r.Tiles.SetPosition(r.slot(subtile, tile), r.Tiles.Index(c))
}

// Check classifies child subtile of the tile-th active parent.
func (r *SubtileRenderer) Check(subtile, tile int, v View, sc *Scratch) Kind {
	slot := r.slot(subtile, tile)
	parent := r.Parent.State(int(r.Parent.Active()[tile])).Tape
	return r.eval.classify(v, parent, r.Tiles.Corner(slot), r.Tiles.regionSize, sc)
}

// BuildTape stores the subtape of the child last passed to Check with sc.
// When pruning removes nothing the parent's handle is returned.
func (r *SubtileRenderer) BuildTape(sc *Scratch) (subtape.Handle, error) {
	return r.eval.BuildTape(sc)
}

// Run refines every active parent region and fills the filled children.
func (r *SubtileRenderer) Run(pool *parallel.WorkerPool, v View) error {
	parents := len(r.Parent.Active())
	r.Tiles.Reset(parents * r.perTile)
	var serr stageError
	pool.ForEach(r.Tiles.Len(), func(lo, hi int) {
		sc := r.eval.Acquire()
		defer r.eval.Release(sc)
		build := func() (subtape.Handle, error) { return r.BuildTape(sc) }
		for slot := lo; slot < hi; slot++ {
			tile, subtile := slot/r.perTile, slot%r.perTile
			r.place(subtile, tile)
			if serr.failed.Load() || !r.Tiles.InImage(slot) {
				r.Tiles.Set(slot, State{Kind: Empty})
				continue
			}
			r.Tiles.Set(slot, settle(r.Check(subtile, tile, v, sc), build, &serr))
		}
	})
	r.Tiles.Finish()
	if serr.err != nil {
		return serr.err
	}
	fill(pool, r.eval.image, r.Tiles)
	return nil
}
