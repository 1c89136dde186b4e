// Package subtape stores region-local pruned copies of a tape.
//
// Subtapes live in a fixed-capacity arena of chunks. A region claims the
// chunks it needs with a single atomic bump, so concurrent regions never
// contend beyond that add and never share chunks. Regions refer to their
// subtape by Handle; the whole arena is recycled with Reset between frames.
package subtape

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/implicit/internal/interval"
)

// ChunkSize is the number of entries held by one chunk.
const ChunkSize = 64

// ErrExhausted is returned when a region needs more chunks than remain.
var ErrExhausted = errors.New("subtape: pool exhausted")

// Entry is one surviving clause of a subtape.
type Entry struct {
	Clause uint32
	Choice interval.Choice
}

// Handle refers to a stored subtape. The zero Handle refers to nothing.
type Handle uint32

// None is the zero Handle.
const None Handle = 0

// ChunksFor returns the number of chunks needed to hold n entries.
func ChunksFor(n int) int {
	return (n + ChunkSize - 1) / ChunkSize
}

// Subtapes is the chunk arena.
//
// Thread safety: Store and Entries may be called concurrently. Reset must
// not overlap with either.
type Subtapes struct {
	entries []Entry
	// lengths holds the entry count of a subtape at its first chunk.
	lengths  []uint32
	capacity int
	used     atomic.Int64
	peak     atomic.Int64
}

// New allocates an arena with room for the given number of chunks.
func New(chunks int) *Subtapes {
	if chunks < 0 {
		chunks = 0
	}
	return &Subtapes{
		entries:  make([]Entry, chunks*ChunkSize),
		lengths:  make([]uint32, chunks),
		capacity: chunks,
	}
}

// Capacity returns the arena size in chunks.
func (s *Subtapes) Capacity() int {
	return s.capacity
}

// Used returns the number of chunks claimed since the last Reset. After an
// exhaustion it may exceed Capacity: it counts what was requested.
func (s *Subtapes) Used() int {
	return int(s.used.Load())
}

// Peak returns the largest Used value observed since the arena was created.
func (s *Subtapes) Peak() int {
	return int(s.peak.Load())
}

// Reset releases every subtape. Handles obtained before Reset are invalid.
func (s *Subtapes) Reset() {
	s.used.Store(0)
}

// Store copies entries into freshly claimed chunks and returns their handle.
// The capacity check happens before anything is written.
func (s *Subtapes) Store(entries []Entry) (Handle, error) {
	if len(entries) == 0 {
		return None, fmt.Errorf("subtape: store of empty entry list")
	}
	n := int64(ChunksFor(len(entries)))
	end := s.used.Add(n)
	for {
		p := s.peak.Load()
		if end <= p || s.peak.CompareAndSwap(p, end) {
			break
		}
	}
	if end > int64(s.capacity) {
		return None, fmt.Errorf("%w: need %d chunks, capacity %d", ErrExhausted, end, s.capacity)
	}
	first := int(end - n)
	copy(s.entries[first*ChunkSize:], entries)
	s.lengths[first] = uint32(len(entries)) //nolint:gosec // bounded by tape length
	return Handle(first + 1), nil
}

// Entries returns the subtape stored under h in forward (evaluation) order.
// The slice aliases arena memory and must not be modified.
func (s *Subtapes) Entries(h Handle) []Entry {
	if h == None {
		return nil
	}
	first := int(h) - 1
	start := first * ChunkSize
	return s.entries[start : start+int(s.lengths[first])]
}

// Len returns the number of entries stored under h.
func (s *Subtapes) Len(h Handle) int {
	if h == None {
		return 0
	}
	return int(s.lengths[int(h)-1])
}

// Bytes returns the memory footprint of an arena with the given chunk count.
func Bytes(chunks int) int64 {
	const entrySize = 8
	return int64(chunks) * (ChunkSize*entrySize + 4)
}
