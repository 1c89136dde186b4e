package implicit

import (
	"errors"
	"slices"
	"testing"
)

func TestOptions(t *testing.T) {
	o := defaultOptions()
	if o.memoryLimit != DefaultMemoryLimit {
		t.Errorf("default memoryLimit = %d, want %d", o.memoryLimit, DefaultMemoryLimit)
	}

	sizes := []int{32, 8}
	for _, opt := range []Option{
		WithWorkers(3),
		WithSubtapeChunks(100),
		WithMemoryLimit(-1),
		WithTileSizes(sizes...),
	} {
		opt(&o)
	}
	sizes[0] = 16 // WithTileSizes copies its input

	if o.workers != 3 || o.subtapeChunks != 100 || o.memoryLimit != -1 {
		t.Errorf("options = %+v", o)
	}
	if !slices.Equal(o.tileSizes, []int{32, 8}) {
		t.Errorf("tileSizes = %v, want [32 8]", o.tileSizes)
	}
}

func TestDefaultTileSizes(t *testing.T) {
	if got := DefaultTileSizes(2); !slices.Equal(got, []int{64, 8}) {
		t.Errorf("DefaultTileSizes(2) = %v, want [64 8]", got)
	}
	if got := DefaultTileSizes(3); !slices.Equal(got, []int{64, 16, 4}) {
		t.Errorf("DefaultTileSizes(3) = %v, want [64 16 4]", got)
	}
}

func TestValidateTileSizes(t *testing.T) {
	tests := []struct {
		name  string
		sizes []int
		ok    bool
	}{
		{"default 2d", []int{64, 8}, true},
		{"default 3d", []int{64, 16, 4}, true},
		{"single level", []int{16}, true},
		{"down to pixels", []int{8, 1}, true},
		{"empty", nil, false},
		{"zero", []int{64, 0}, false},
		{"negative", []int{-8}, false},
		{"not dividing", []int{64, 24}, false},
		{"growing", []int{8, 64}, false},
		{"repeated", []int{8, 8}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTileSizes(tt.sizes)
			if tt.ok && err != nil {
				t.Errorf("validateTileSizes(%v) = %v, want nil", tt.sizes, err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidTileSizes) {
				t.Errorf("validateTileSizes(%v) = %v, want ErrInvalidTileSizes", tt.sizes, err)
			}
		})
	}
}

func TestDefaultSubtapeChunks(t *testing.T) {
	tests := []struct {
		name               string
		clauses, size, dim int
		sizes              []int
		want               int
	}{
		// 1 + 2·2 tiles + 16·16 subtiles
		{"2d small tape", 3, 128, 2, []int{64, 8}, 261},
		// two chunks per subtape
		{"2d long tape", 65, 128, 2, []int{64, 8}, 522},
		// subtiles follow the 2·2 tile grid, not the 13·13 image grid
		{"2d partial tiles", 3, 100, 2, []int{64, 8}, 261},
		// 1 + 128·128 tiles + 1024·1024 subtiles
		{"2d dense", 3, 1024, 2, []int{8, 1}, 1 + 16384 + 1048576},
		// 1 + min(8·8·8, 16·8·8)
		{"3d single level", 3, 64, 3, []int{8}, 513},
		// 1 + 4·4·4 + 16·16·16 + min(64·64·64, 16·64·64)
		{"3d capped", 3, 256, 3, []int{64, 16, 4}, 1 + 64 + 4096 + 65536},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultSubtapeChunks(tt.clauses, tt.size, tt.dim, tt.sizes); got != tt.want {
				t.Errorf("DefaultSubtapeChunks() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFootprint(t *testing.T) {
	small := footprint(10, 128, 2, 100, 4, []int{64, 8})
	if small <= 128*128 {
		t.Errorf("footprint() = %d, smaller than the image", small)
	}
	if big := footprint(10, 256, 2, 100, 4, []int{64, 8}); big <= small {
		t.Errorf("footprint(256 px) = %d, want more than %d", big, small)
	}
	if deep := footprint(10, 128, 3, 100, 4, []int{64, 8}); deep <= small {
		t.Errorf("footprint(3-D) = %d, want more than %d", deep, small)
	}
}
