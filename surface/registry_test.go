// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"errors"
	"testing"
)

func pixmapFactory(width, height int) (Target, error) {
	return NewPixmapTarget(width, height), nil
}

// TestRegistryList tests priority ordering.
func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.Register("low", 10, pixmapFactory, nil)
	r.Register("high", 100, pixmapFactory, nil)
	r.Register("mid", 50, pixmapFactory, nil)

	list := r.List()
	want := []string{"high", "mid", "low"}
	if len(list) != len(want) {
		t.Fatalf("List() = %v, want %v", list, want)
	}
	for i := range want {
		if list[i] != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, list[i], want[i])
		}
	}

	r.Unregister("mid")
	if got := len(r.List()); got != 2 {
		t.Errorf("len(List()) after Unregister = %d, want 2", got)
	}
}

// TestRegistryNewTarget tests that the best available kind is used.
func TestRegistryNewTarget(t *testing.T) {
	r := NewRegistry()
	r.Register("fallback", 10, pixmapFactory, nil)
	r.Register("broken", 100, func(int, int) (Target, error) {
		return nil, errors.New("broken")
	}, nil)
	r.Register("offline", 200, pixmapFactory, func() bool { return false })

	target, err := r.NewTarget(32, 16)
	if err != nil {
		t.Fatalf("NewTarget() error = %v", err)
	}
	if target.Width() != 32 || target.Height() != 16 {
		t.Errorf("size = %dx%d, want 32x16", target.Width(), target.Height())
	}
}

// TestRegistryErrors tests lookup failures.
func TestRegistryErrors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.NewTarget(8, 8); !errors.Is(err, ErrNoTargetAvailable) {
		t.Errorf("NewTarget() on empty registry = %v, want ErrNoTargetAvailable", err)
	}

	var notFound *TargetNotFoundError
	if _, err := r.NewTargetByName("missing", 8, 8); !errors.As(err, &notFound) || notFound.Name != "missing" {
		t.Errorf("NewTargetByName(missing) = %v, want TargetNotFoundError", err)
	}

	r.Register("offline", 1, pixmapFactory, func() bool { return false })
	var unavailable *TargetUnavailableError
	if _, err := r.NewTargetByName("offline", 8, 8); !errors.As(err, &unavailable) {
		t.Errorf("NewTargetByName(offline) = %v, want TargetUnavailableError", err)
	}
}

// TestBuiltinPixmap tests the target registered by the package.
func TestBuiltinPixmap(t *testing.T) {
	target, err := NewTargetByName("pixmap", 4, 4)
	if err != nil {
		t.Fatalf("NewTargetByName(pixmap) error = %v", err)
	}
	if _, ok := target.(*PixmapTarget); !ok {
		t.Errorf("NewTargetByName(pixmap) returned %T", target)
	}
	if _, err := NewTargetByName("pixmap", 0, 4); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("NewTargetByName(pixmap, 0, 4) = %v, want ErrInvalidDimensions", err)
	}
}
