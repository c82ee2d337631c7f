package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-ambient"
)

var _ ambient.Backend = (*Memory)(nil)

// MemoryOption configures a Memory backend.
type MemoryOption func(*Memory)

// WithQuota limits the total size of stored keys and values in bytes. A
// non-positive limit disables the quota.
func WithQuota(bytes int) MemoryOption {
	return func(m *Memory) {
		m.quota = bytes
	}
}

// Memory is an in-process Backend. It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
	size   int
	quota  int
}

// NewMemory constructs an empty Memory backend.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{values: map[string]string{}}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	value, ok := m.values[key]
	m.mu.RUnlock()
	return value, ok, nil
}

// Set stores value under key. When a quota is configured and the write would
// exceed it, the previous value is kept and ErrQuotaExceeded is returned.
func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.size + len(key) + len(value)
	if previous, ok := m.values[key]; ok {
		next -= len(key) + len(previous)
	}
	if m.quota > 0 && next > m.quota {
		return fmt.Errorf("set %q (%d of %d bytes): %w", key, next, m.quota, ErrQuotaExceeded)
	}
	m.values[key] = value
	m.size = next
	return nil
}

// Delete removes key. Missing keys are ignored.
func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if previous, ok := m.values[key]; ok {
		m.size -= len(key) + len(previous)
		delete(m.values, key)
	}
	return nil
}

// Keys returns the stored keys in lexical order.
func (m *Memory) Keys() ([]string, error) {
	m.mu.RLock()
	keys := make([]string, 0, len(m.values))
	for key := range m.values {
		keys = append(keys, key)
	}
	m.mu.RUnlock()
	sort.Strings(keys)
	return keys, nil
}

// Size reports the bytes counted against the quota.
func (m *Memory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}
