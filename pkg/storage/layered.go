package storage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/goliatone/go-ambient"
)

var (
	// ErrLayerNameRequired indicates a layer without a name.
	ErrLayerNameRequired = errors.New("storage: layer name must be provided")
	// ErrDuplicateLayerName indicates two layers share a name.
	ErrDuplicateLayerName = errors.New("storage: layer names must be unique")
	// ErrPriorityOrder indicates two layers share a priority.
	ErrPriorityOrder = errors.New("storage: layer priorities must be distinct")
	// ErrNoWritableLayer is returned by Set when every layer is read-only.
	ErrNoWritableLayer = errors.New("storage: no writable layer")
)

// Layer is one named backend in a Layered stack. Higher Priority values are
// consulted first.
type Layer struct {
	Name     string
	Priority int
	Backend  ambient.Backend
	ReadOnly bool
}

// Layered reads a key from the strongest layer that has it and writes to the
// strongest writable layer. A typical stack puts a user store over read-only
// defaults.
type Layered struct {
	layers []Layer
}

var _ ambient.Backend = (*Layered)(nil)

// NewLayered validates layers and orders them strongest first.
func NewLayered(layers ...Layer) (*Layered, error) {
	seen := make(map[string]struct{}, len(layers))
	copied := make([]Layer, 0, len(layers))
	for _, layer := range layers {
		if layer.Name == "" {
			return nil, ErrLayerNameRequired
		}
		if layer.Backend == nil {
			return nil, fmt.Errorf("storage: layer %q has no backend", layer.Name)
		}
		if _, ok := seen[layer.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLayerName, layer.Name)
		}
		seen[layer.Name] = struct{}{}
		copied = append(copied, layer)
	}

	sort.Slice(copied, func(i, j int) bool {
		return copied[i].Priority > copied[j].Priority
	})
	for i := 1; i < len(copied); i++ {
		if copied[i-1].Priority == copied[i].Priority {
			return nil, fmt.Errorf("%w: %d", ErrPriorityOrder, copied[i].Priority)
		}
	}
	return &Layered{layers: copied}, nil
}

func (l *Layered) Get(key string) (string, bool, error) {
	value, _, ok, err := l.Resolve(key)
	return value, ok, err
}

// Resolve is Get that also names the layer the value came from.
func (l *Layered) Resolve(key string) (value, layer string, ok bool, err error) {
	for _, candidate := range l.layers {
		found, present, getErr := candidate.Backend.Get(key)
		if getErr != nil {
			return "", candidate.Name, false, fmt.Errorf("layer %s: %w", candidate.Name, getErr)
		}
		if present {
			return found, candidate.Name, true, nil
		}
	}
	return "", "", false, nil
}

func (l *Layered) Set(key, value string) error {
	for _, candidate := range l.layers {
		if candidate.ReadOnly {
			continue
		}
		if err := candidate.Backend.Set(key, value); err != nil {
			return fmt.Errorf("layer %s: %w", candidate.Name, err)
		}
		return nil
	}
	return ErrNoWritableLayer
}

// Delete removes key from every writable layer that supports deletion.
// Read-only layers may still supply a value afterwards.
func (l *Layered) Delete(key string) error {
	var errs []error
	for _, candidate := range l.layers {
		if candidate.ReadOnly {
			continue
		}
		if d, ok := candidate.Backend.(Deleter); ok {
			if err := d.Delete(key); err != nil {
				errs = append(errs, fmt.Errorf("layer %s: %w", candidate.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Keys returns the union of keys across listable layers, sorted.
func (l *Layered) Keys() ([]string, error) {
	seen := map[string]struct{}{}
	for _, candidate := range l.layers {
		lister, ok := candidate.Backend.(Lister)
		if !ok {
			continue
		}
		keys, err := lister.Keys()
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", candidate.Name, err)
		}
		for _, key := range keys {
			seen[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Layers returns the layer names, strongest first.
func (l *Layered) Layers() []string {
	names := make([]string, len(l.layers))
	for i, layer := range l.layers {
		names[i] = layer.Name
	}
	return names
}
