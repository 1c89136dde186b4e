package cascade

import (
	"slices"
	"sync/atomic"

	"github.com/gogpu/implicit/internal/subtape"
)

// Kind classifies a region against the surface.
type Kind uint8

const (
	// Empty regions are entirely outside the surface (or outside the image).
	Empty Kind = iota
	// Filled regions are entirely inside the surface.
	Filled
	// Ambiguous regions may contain the boundary and need refinement.
	Ambiguous
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Filled:
		return "filled"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// State is the classification of one region slot. Tape is only set for
// Ambiguous regions.
type State struct {
	Kind Kind
	Tape subtape.Handle
}

// Tiles holds every region slot of one refinement level.
//
// At the first level slot i is region i of the grid. At deeper levels the
// slots are grouped by parent: slot p*n+k is the k-th child of the p-th
// active parent, where n is the number of children per parent. Each slot
// records the absolute grid position of its region, so a region can be
// located without walking back up the levels.
//
// Thread safety: during a stage each slot is written by exactly one worker;
// the active and filled lists are appended through atomic counters.
type Tiles struct {
	imageSize  int
	regionSize int
	perSide    int
	dim        int

	pos    []uint32
	states []State

	active  []uint32
	activeN atomic.Int32
	filled  []uint32
	filledN atomic.Int32
}

// NewTiles creates the container for regions of regionSize pixels covering
// an imageSize image in dim dimensions.
func NewTiles(imageSize, regionSize, dim int) *Tiles {
	return &Tiles{
		imageSize:  imageSize,
		regionSize: regionSize,
		perSide:    (imageSize + regionSize - 1) / regionSize,
		dim:        dim,
	}
}

// RegionSize returns the region edge length in pixels.
func (t *Tiles) RegionSize() int { return t.regionSize }

// PerSide returns the number of regions along one image axis.
func (t *Tiles) PerSide() int { return t.perSide }

// Dim returns 2 or 3.
func (t *Tiles) Dim() int { return t.dim }

// GridRegions returns the number of regions covering the whole image.
func (t *Tiles) GridRegions() int {
	n := t.perSide * t.perSide
	if t.dim == 3 {
		n *= t.perSide
	}
	return n
}

// Len returns the number of slots of the current frame.
func (t *Tiles) Len() int { return len(t.states) }

// Reset prepares slots for a new frame and empties the active and filled
// lists. Slot contents are undefined until written.
func (t *Tiles) Reset(slots int) {
	t.pos = grow(t.pos, slots)
	t.states = grow(t.states, slots)
	t.active = grow(t.active, slots)
	t.filled = grow(t.filled, slots)
	t.activeN.Store(0)
	t.filledN.Store(0)
}

// ResetGrid prepares one slot per grid region in order.
func (t *Tiles) ResetGrid() {
	t.Reset(t.GridRegions())
	for i := range t.pos {
		t.pos[i] = uint32(i) //nolint:gosec // bounded by grid size
	}
}

func grow[T any](s []T, n int) []T {
	return slices.Grow(s[:0], n)[:n]
}

// SetPosition records the absolute grid index of the region in slot.
func (t *Tiles) SetPosition(slot int, pos uint32) {
	t.pos[slot] = pos
}

// Position returns the absolute grid index of the region in slot.
func (t *Tiles) Position(slot int) uint32 {
	return t.pos[slot]
}

// Coords returns the grid coordinates of an absolute region index.
func (t *Tiles) Coords(pos uint32) [3]int {
	p := int(pos)
	n := t.perSide
	return [3]int{p % n, (p / n) % n, p / (n * n)}
}

// Index returns the absolute region index of grid coordinates.
func (t *Tiles) Index(c [3]int) uint32 {
	n := t.perSide
	return uint32(c[0] + c[1]*n + c[2]*n*n) //nolint:gosec // bounded by grid size
}

// Corner returns the pixel (voxel) coordinates of the first pixel of slot.
func (t *Tiles) Corner(slot int) [3]int {
	c := t.Coords(t.pos[slot])
	return [3]int{c[0] * t.regionSize, c[1] * t.regionSize, c[2] * t.regionSize}
}

// InImage reports whether any pixel of the region in slot lies in the image.
func (t *Tiles) InImage(slot int) bool {
	c := t.Corner(slot)
	return c[0] < t.imageSize && c[1] < t.imageSize && c[2] < t.imageSize
}

// Set records the classification of slot and appends it to the active or
// filled list.
func (t *Tiles) Set(slot int, s State) {
	t.states[slot] = s
	switch s.Kind {
	case Filled:
		t.filled[t.filledN.Add(1)-1] = uint32(slot) //nolint:gosec // slot < len
	case Ambiguous:
		t.active[t.activeN.Add(1)-1] = uint32(slot) //nolint:gosec // slot < len
	}
}

// State returns the classification of slot.
func (t *Tiles) State(slot int) State {
	return t.states[slot]
}

// Finish orders the active and filled lists by slot. It must run after the
// stage barrier.
func (t *Tiles) Finish() {
	t.active = t.active[:t.activeN.Load()]
	t.filled = t.filled[:t.filledN.Load()]
	slices.Sort(t.active)
	slices.Sort(t.filled)
}

// Active returns the ambiguous slots of the finished stage.
func (t *Tiles) Active() []uint32 { return t.active }

// Filled returns the filled slots of the finished stage.
func (t *Tiles) Filled() []uint32 { return t.filled }
