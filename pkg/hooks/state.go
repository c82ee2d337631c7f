package hooks

import (
	"sync"

	"github.com/goliatone/go-ambient"
)

// Option configures a State.
type Option[T any] func(*settings[T])

type settings[T any] struct {
	onChange  func(T)
	subscribe []ambient.SubscribeOption
}

// OnChange registers fn to receive every new value. It runs on the
// goroutine that delivered the event.
func OnChange[T any](fn func(T)) Option[T] {
	return func(s *settings[T]) {
		s.onChange = fn
	}
}

// WithSubscribeOptions forwards opts to every subscription the hook makes.
func WithSubscribeOptions[T any](opts ...ambient.SubscribeOption) Option[T] {
	return func(s *settings[T]) {
		s.subscribe = append(s.subscribe, opts...)
	}
}

// State holds the latest value derived from a source.
type State[T any] struct {
	mu       sync.RWMutex
	value    T
	onChange func(T)
	scope    *ambient.Scope
}

func newState[T any](initial T, opts []Option[T]) (*State[T], settings[T]) {
	var cfg settings[T]
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &State[T]{
		value:    initial,
		onChange: cfg.onChange,
		scope:    ambient.NewScope(),
	}, cfg
}

// Value returns the latest value.
func (s *State[T]) Value() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

func (s *State[T]) set(value T) {
	s.mu.Lock()
	s.value = value
	s.mu.Unlock()
	if s.onChange != nil {
		s.onChange(value)
	}
}

// Close detaches from every source. The last value stays readable.
func (s *State[T]) Close() {
	s.scope.Close()
}
