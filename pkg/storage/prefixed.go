package storage

import (
	"strings"

	"github.com/goliatone/go-ambient"
)

// NamespaceSeparator joins a namespace and a key.
const NamespaceSeparator = "."

// Prefixed scopes every key of an underlying backend under a namespace so
// several applications can share one store.
type Prefixed struct {
	backend ambient.Backend
	prefix  string
}

// WithNamespace wraps backend so keys are stored as "<namespace>.<key>". An
// empty namespace returns the backend's keys unchanged.
func WithNamespace(backend ambient.Backend, namespace string) *Prefixed {
	namespace = strings.Trim(strings.TrimSpace(namespace), NamespaceSeparator)
	prefix := ""
	if namespace != "" {
		prefix = namespace + NamespaceSeparator
	}
	return &Prefixed{backend: backend, prefix: prefix}
}

func (p *Prefixed) Get(key string) (string, bool, error) {
	return p.backend.Get(p.prefix + key)
}

func (p *Prefixed) Set(key, value string) error {
	return p.backend.Set(p.prefix+key, value)
}

// Delete removes key when the wrapped backend supports deletion.
func (p *Prefixed) Delete(key string) error {
	if d, ok := p.backend.(Deleter); ok {
		return d.Delete(p.prefix + key)
	}
	return nil
}

// Keys lists the keys inside the namespace with the prefix stripped.
func (p *Prefixed) Keys() ([]string, error) {
	lister, ok := p.backend.(Lister)
	if !ok {
		return nil, nil
	}
	all, err := lister.Keys()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(all))
	for _, key := range all {
		if rest, ok := strings.CutPrefix(key, p.prefix); ok {
			keys = append(keys, rest)
		}
	}
	return keys, nil
}

// Unwrap returns the wrapped backend.
func (p *Prefixed) Unwrap() ambient.Backend {
	return p.backend
}
