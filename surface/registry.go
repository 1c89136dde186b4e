// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"errors"
	"sort"
	"sync"
)

// TargetFactory creates a Target of the given size.
type TargetFactory func(width, height int) (Target, error)

// RegistryEntry represents a registered target kind.
type RegistryEntry struct {
	// Name is the unique identifier for this kind.
	Name string

	// Priority determines selection order (higher = preferred).
	Priority int

	// Factory creates targets.
	Factory TargetFactory

	// Available reports if the kind can be created on this system.
	Available func() bool
}

// globalRegistry is the default registry.
var globalRegistry = &Registry{}

// Registry manages named target kinds, so that tools can pick a sink from
// configuration.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*RegistryEntry
}

// NewRegistry creates a new empty registry.
// Most code should use the global registry via Register and NewTarget.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*RegistryEntry),
	}
}

// Register adds a target kind to the global registry.
// If available is nil, the kind is assumed always available.
// Registering a name that already exists replaces the previous entry.
func Register(name string, priority int, factory TargetFactory, available func() bool) {
	globalRegistry.Register(name, priority, factory, available)
}

// Unregister removes a target kind from the global registry.
func Unregister(name string) {
	globalRegistry.Unregister(name)
}

// List returns all registered names sorted by priority (highest first).
func List() []string {
	return globalRegistry.List()
}

// NewTarget creates a target using the best available kind.
func NewTarget(width, height int) (Target, error) {
	return globalRegistry.NewTarget(width, height)
}

// NewTargetByName creates a target of a specific registered kind.
func NewTargetByName(name string, width, height int) (Target, error) {
	return globalRegistry.NewTargetByName(name, width, height)
}

// Register adds a target kind to this registry.
func (r *Registry) Register(name string, priority int, factory TargetFactory, available func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[string]*RegistryEntry)
	}
	if available == nil {
		available = func() bool { return true }
	}
	r.entries[name] = &RegistryEntry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// Unregister removes a target kind from this registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// List returns all registered names sorted by priority.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames(false)
}

// NewTarget creates a target with the highest-priority available kind
// whose factory succeeds.
func (r *Registry) NewTarget(width, height int) (Target, error) {
	r.mu.RLock()
	available := r.sortedNames(true)
	r.mu.RUnlock()

	var lastErr error
	for _, name := range available {
		t, err := r.NewTargetByName(name, width, height)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoTargetAvailable
}

// NewTargetByName creates a target of a specific kind.
func (r *Registry) NewTargetByName(name string, width, height int) (Target, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &TargetNotFoundError{Name: name}
	}
	if !entry.Available() {
		return nil, &TargetUnavailableError{Name: name}
	}
	return entry.Factory(width, height)
}

// sortedNames returns names sorted by priority (highest first), then by
// name. Must be called with lock held.
func (r *Registry) sortedNames(onlyAvailable bool) []string {
	entries := make([]*RegistryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if onlyAvailable && !e.Available() {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Name < entries[j].Name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// ErrNoTargetAvailable is returned when no target kind is registered or
// available.
var ErrNoTargetAvailable = errors.New("surface: no target available")

// TargetNotFoundError indicates a named target kind is not registered.
type TargetNotFoundError struct {
	Name string
}

func (e *TargetNotFoundError) Error() string {
	return "surface: target not found: " + e.Name
}

// TargetUnavailableError indicates a target kind exists but is not available.
type TargetUnavailableError struct {
	Name string
}

func (e *TargetUnavailableError) Error() string {
	return "surface: target unavailable: " + e.Name
}

// init registers the built-in pixmap target.
func init() {
	Register("pixmap", 10, func(width, height int) (Target, error) {
		if width <= 0 || height <= 0 {
			return nil, ErrInvalidDimensions
		}
		return NewPixmapTarget(width, height), nil
	}, nil)
}
