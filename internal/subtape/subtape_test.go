package subtape

import (
	"errors"
	"sync"
	"testing"

	"github.com/gogpu/implicit/internal/interval"
)

func entries(n int) []Entry {
	e := make([]Entry, n)
	for i := range e {
		e[i] = Entry{Clause: uint32(i), Choice: interval.Choice(i % 3)} //nolint:gosec // test sizes are small
	}
	return e
}

func TestChunksFor(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{0, 0},
		{1, 1},
		{ChunkSize, 1},
		{ChunkSize + 1, 2},
		{3 * ChunkSize, 3},
	}
	for _, tt := range tests {
		if got := ChunksFor(tt.n); got != tt.want {
			t.Errorf("ChunksFor(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestSubtapes_StoreAndEntries(t *testing.T) {
	s := New(4)
	a, err := s.Store(entries(3))
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	b, err := s.Store(entries(ChunkSize + 5))
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if a == None || b == None || a == b {
		t.Fatalf("handles = %v, %v", a, b)
	}
	if s.Len(a) != 3 || s.Len(b) != ChunkSize+5 {
		t.Errorf("Len() = %d, %d, want 3, %d", s.Len(a), s.Len(b), ChunkSize+5)
	}
	got := s.Entries(b)
	for i, e := range got {
		if e.Clause != uint32(i) { //nolint:gosec // test sizes are small
			t.Fatalf("Entries(b)[%d].Clause = %d, want %d", i, e.Clause, i)
		}
	}
	if s.Used() != 3 {
		t.Errorf("Used() = %d, want 3", s.Used())
	}
	if s.Entries(None) != nil || s.Len(None) != 0 {
		t.Error("None handle refers to entries")
	}
}

func TestSubtapes_Exhausted(t *testing.T) {
	s := New(2)
	if _, err := s.Store(entries(2 * ChunkSize)); err != nil {
		t.Fatalf("Store() at exact capacity error = %v", err)
	}
	if _, err := s.Store(entries(1)); !errors.Is(err, ErrExhausted) {
		t.Errorf("Store() past capacity error = %v, want ErrExhausted", err)
	}
	if s.Peak() != 3 {
		t.Errorf("Peak() = %d, want 3", s.Peak())
	}

	s.Reset()
	if s.Used() != 0 {
		t.Errorf("Used() after Reset = %d, want 0", s.Used())
	}
	if _, err := s.Store(entries(1)); err != nil {
		t.Errorf("Store() after Reset error = %v", err)
	}
	if s.Peak() != 3 {
		t.Errorf("Peak() after Reset = %d, want 3", s.Peak())
	}
}

func TestSubtapes_StoreEmpty(t *testing.T) {
	if _, err := New(1).Store(nil); err == nil {
		t.Error("Store(nil) error = nil, want error")
	}
}

func TestSubtapes_ConcurrentStore(t *testing.T) {
	const workers, per = 8, 16
	s := New(2 * workers * per)

	handles := make([][]Handle, workers)
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range per {
				h, err := s.Store(entries(w*per + i + 1))
				if err != nil {
					t.Errorf("Store() error = %v", err)
					return
				}
				handles[w] = append(handles[w], h)
			}
		}()
	}
	wg.Wait()

	for w, hs := range handles {
		for i, h := range hs {
			if want := w*per + i + 1; s.Len(h) != want {
				t.Errorf("Len(worker %d, store %d) = %d, want %d", w, i, s.Len(h), want)
			}
		}
	}
	if s.Used() > s.Capacity() {
		t.Errorf("Used() = %d exceeds Capacity() = %d", s.Used(), s.Capacity())
	}
}

func TestBytes(t *testing.T) {
	if Bytes(0) != 0 {
		t.Errorf("Bytes(0) = %d, want 0", Bytes(0))
	}
	if Bytes(2) != 2*Bytes(1) {
		t.Errorf("Bytes(2) = %d, want %d", Bytes(2), 2*Bytes(1))
	}
}
