package ambient

import "sync"

// Scope ties a group of subscriptions to one owner lifetime, such as a
// component between mount and unmount. Close releases everything it holds.
type Scope struct {
	mu        sync.Mutex
	disposers []Disposer
	closed    bool
}

// NewScope returns an open Scope.
func NewScope() *Scope {
	return &Scope{}
}

// Add registers d for release on Close. Adding to a closed scope releases d
// immediately.
func (s *Scope) Add(d Disposer) {
	if d == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		d()
		return
	}
	s.disposers = append(s.disposers, d)
	s.mu.Unlock()
}

// Subscribe calls Subscribe and tracks the resulting Disposer.
func (s *Scope) Subscribe(source EventSource, event string, handler Handler, opts ...SubscribeOption) error {
	dispose, err := Subscribe(source, event, handler, opts...)
	if err != nil {
		return err
	}
	s.Add(dispose)
	return nil
}

// Len reports how many disposers are pending.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.disposers)
}

// Close releases all disposers in reverse registration order. It is safe to
// call more than once.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	disposers := s.disposers
	s.disposers = nil
	s.mu.Unlock()

	for i := len(disposers) - 1; i >= 0; i-- {
		disposers[i]()
	}
}
