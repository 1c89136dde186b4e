// Package cascade implements the stages of the adaptive renderer.
//
// A frame runs a tile stage over the whole image, one subtile stage per
// finer region size, a pixel stage over the finest ambiguous regions and a
// normal stage over every covered pixel. Each stage is data parallel over the
// regions of its level and ends at a barrier. Between stages the only shared
// state is the Tiles container of the previous level, the subtape arena and
// the output Image.
package cascade

import (
	"slices"
	"sync"

	"github.com/gogpu/implicit/internal/interval"
	"github.com/gogpu/implicit/internal/subtape"
	"github.com/gogpu/implicit/tape"
)

// Evaluator owns the tape, the subtape arena and the output image shared by
// all stages, and evaluates (sub)tapes over boxes and points.
//
// Thread safety: every evaluation method takes a Scratch; distinct
// goroutines must use distinct Scratch values.
type Evaluator struct {
	tape     *tape.Tape
	subtapes *subtape.Subtapes
	image    *Image
	dim      int
	step     float32

	full []subtape.Entry
	root subtape.Handle

	scratch sync.Pool
}

// NewEvaluator binds a validated tape to an arena and an image.
func NewEvaluator(t *tape.Tape, st *subtape.Subtapes, im *Image, dim int) *Evaluator {
	e := &Evaluator{
		tape:     t,
		subtapes: st,
		image:    im,
		dim:      dim,
		step:     2 / float32(im.Size()),
		full:     make([]subtape.Entry, t.Len()),
	}
	for i := range e.full {
		e.full[i] = subtape.Entry{Clause: uint32(i)} //nolint:gosec // bounded by tape length
	}
	n := t.Len()
	e.scratch.New = func() any {
		return &Scratch{
			bounds:  make([]interval.Interval, n),
			values:  make([]float32, n),
			duals:   make([]interval.Dual, n),
			choices: make([]interval.Choice, n),
			live:    make([]bool, n),
			out:     make([]subtape.Entry, 0, n),
		}
	}
	return e
}

// Tape returns the full tape.
func (e *Evaluator) Tape() *tape.Tape { return e.tape }

// Subtapes returns the arena.
func (e *Evaluator) Subtapes() *subtape.Subtapes { return e.subtapes }

// Image returns the output image.
func (e *Evaluator) Image() *Image { return e.image }

// Dim returns 2 or 3.
func (e *Evaluator) Dim() int { return e.dim }

// Full returns the whole tape as subtape entries.
func (e *Evaluator) Full() []subtape.Entry { return e.full }

// Root returns the handle of the full tape stored by Begin.
func (e *Evaluator) Root() subtape.Handle { return e.root }

// Begin resets the arena and stores the full tape as the parent of every
// first-level region.
func (e *Evaluator) Begin() error {
	e.subtapes.Reset()
	h, err := e.subtapes.Store(e.full)
	if err != nil {
		return err
	}
	e.root = h
	return nil
}

// Scratch holds the per-worker buffers of one evaluation.
type Scratch struct {
	bounds  []interval.Interval
	values  []float32
	duals   []interval.Dual
	choices []interval.Choice
	live    []bool
	out     []subtape.Entry

	// Source of the last Bound call, consumed by BuildTape.
	src       []subtape.Entry
	srcHandle subtape.Handle
}

// Acquire returns a Scratch sized for the tape.
func (e *Evaluator) Acquire() *Scratch {
	return e.scratch.Get().(*Scratch)
}

// Release returns sc for reuse.
func (e *Evaluator) Release(sc *Scratch) {
	sc.src = nil
	e.scratch.Put(sc)
}

// RegionBox returns the normalized box of the size-pixel region whose first
// pixel is corner. Its edges are pixel edges, so it contains the centers of
// every pixel in the region.
func (e *Evaluator) RegionBox(corner [3]int, size int) [3]interval.Interval {
	s := e.step
	lo := func(p int) float32 { return float32(float32(p)*s) - 1 }
	box := [3]interval.Interval{
		{Lo: lo(corner[0]), Hi: lo(corner[0] + size)},
		{Lo: 1 - float32(float32(corner[1]+size)*s), Hi: 1 - float32(float32(corner[1])*s)},
		interval.Point(0),
	}
	if e.dim == 3 {
		box[2] = interval.Interval{Lo: lo(corner[2]), Hi: lo(corner[2] + size)}
	}
	return box
}

// PixelPoint returns the normalized center of pixel (x, y) at depth index z.
// In 2-D z is ignored.
func (e *Evaluator) PixelPoint(x, y, z int) [3]float32 {
	s := e.step
	p := [3]float32{
		float32((float32(x)+0.5)*s) - 1,
		1 - float32((float32(y)+0.5)*s),
		0,
	}
	if e.dim == 3 {
		p[2] = float32((float32(z)+0.5)*s) - 1
	}
	return p
}

// Bound evaluates entries over an evaluation-space box and records the
// min/max decisions for a following BuildTape.
func (e *Evaluator) Bound(entries []subtape.Entry, box [3]interval.Interval, sc *Scratch) interval.Interval {
	clauses := e.tape.Clauses()
	iv := sc.bounds
	for k, en := range entries {
		c := clauses[en.Clause]
		ch := en.Choice
		var r interval.Interval
		switch c.Op {
		case tape.OpConst:
			r = interval.Point(c.Value)
		case tape.OpVarX:
			r = box[0]
		case tape.OpVarY:
			r = box[1]
		case tape.OpVarZ:
			r = box[2]
		default:
			switch ch {
			case interval.OnlyA:
				r = iv[c.A]
			case interval.OnlyB:
				r = iv[c.B]
			default:
				a, b := iv[c.A], iv[c.B]
				r = interval.Bound(c.Op, a, b)
				if c.Op.IsChoice() {
					ch = interval.Decide(c.Op, a, b)
				}
			}
		}
		iv[en.Clause] = r
		sc.choices[k] = ch
	}
	sc.src = entries
	return iv[entries[len(entries)-1].Clause]
}

// Value evaluates entries at one evaluation-space point.
func (e *Evaluator) Value(entries []subtape.Entry, p [3]float32, sc *Scratch) float32 {
	clauses := e.tape.Clauses()
	v := sc.values
	for _, en := range entries {
		c := clauses[en.Clause]
		var r float32
		switch c.Op {
		case tape.OpConst:
			r = c.Value
		case tape.OpVarX:
			r = p[0]
		case tape.OpVarY:
			r = p[1]
		case tape.OpVarZ:
			r = p[2]
		default:
			switch en.Choice {
			case interval.OnlyA:
				r = v[c.A]
			case interval.OnlyB:
				r = v[c.B]
			default:
				r = interval.Value(c.Op, v[c.A], v[c.B])
			}
		}
		v[en.Clause] = r
	}
	return v[entries[len(entries)-1].Clause]
}

// Derive evaluates entries at one point together with the gradient with
// respect to the evaluation-space coordinates.
func (e *Evaluator) Derive(entries []subtape.Entry, p [3]float32, sc *Scratch) interval.Dual {
	clauses := e.tape.Clauses()
	d := sc.duals
	for _, en := range entries {
		c := clauses[en.Clause]
		var r interval.Dual
		switch c.Op {
		case tape.OpConst:
			r = interval.Constant(c.Value)
		case tape.OpVarX:
			r = interval.Variable(p[0], 0)
		case tape.OpVarY:
			r = interval.Variable(p[1], 1)
		case tape.OpVarZ:
			r = interval.Variable(p[2], 2)
		default:
			switch en.Choice {
			case interval.OnlyA:
				r = d[c.A]
			case interval.OnlyB:
				r = d[c.B]
			default:
				r = interval.Derive(c.Op, d[c.A], d[c.B])
			}
		}
		d[en.Clause] = r
	}
	return d[entries[len(entries)-1].Clause]
}

// Prune derives the subtape of the entries passed to the last Bound call.
// Starting from the root it keeps only clauses that are still reachable once
// every decided min/max follows its chosen operand. It reports whether
// anything was removed or newly decided. The result aliases sc.
func (e *Evaluator) Prune(sc *Scratch) ([]subtape.Entry, bool) {
	entries := sc.src
	clauses := e.tape.Clauses()
	live := sc.live
	out := sc.out[:0]
	changed := false

	live[entries[len(entries)-1].Clause] = true
	for k := len(entries) - 1; k >= 0; k-- {
		en := entries[k]
		if !live[en.Clause] {
			changed = true
			continue
		}
		// All users of a clause come after it, so its mark is final here.
		live[en.Clause] = false

		ch := sc.choices[k]
		if ch != en.Choice {
			changed = true
		}
		c := clauses[en.Clause]
		switch c.Op.Arity() {
		case 1:
			live[c.A] = true
		case 2:
			switch ch {
			case interval.OnlyA:
				live[c.A] = true
			case interval.OnlyB:
				live[c.B] = true
			default:
				live[c.A] = true
				live[c.B] = true
			}
		}
		out = append(out, subtape.Entry{Clause: en.Clause, Choice: ch})
	}
	slices.Reverse(out)
	sc.out = out
	return out, changed
}

// BuildTape stores the pruned subtape of the last Bound call. When pruning
// changes nothing the parent handle is returned and no chunks are claimed.
func (e *Evaluator) BuildTape(sc *Scratch) (subtape.Handle, error) {
	out, changed := e.Prune(sc)
	if !changed {
		return sc.srcHandle, nil
	}
	return e.subtapes.Store(out)
}

// classify bounds the region under the parent subtape.
func (e *Evaluator) classify(v View, parent subtape.Handle, corner [3]int, size int, sc *Scratch) Kind {
	entries := e.subtapes.Entries(parent)
	sc.srcHandle = parent
	r := e.Bound(entries, v.Bounds(e.RegionBox(corner, size)), sc)
	switch {
	case r.Inside():
		return Filled
	case r.Outside():
		return Empty
	default:
		return Ambiguous
	}
}
