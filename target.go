package ambient

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// TargetOption configures a Target.
type TargetOption func(*Target)

// WithEvents restricts a Target to the named events; registering any other
// name fails with ErrUnknownEvent.
func WithEvents(names ...string) TargetOption {
	return func(t *Target) {
		if len(names) == 0 {
			return
		}
		t.events = make(map[string]struct{}, len(names))
		for _, name := range names {
			t.events[name] = struct{}{}
		}
	}
}

// Target is an in-process EventSource. Listeners run synchronously on the
// dispatching goroutine in registration order. Registering the same listener
// twice for one event is a no-op.
type Target struct {
	mu        sync.RWMutex
	listeners map[string][]*Listener
	events    map[string]struct{}
	closed    bool
}

// NewTarget returns an open Target.
func NewTarget(opts ...TargetOption) *Target {
	t := &Target{listeners: map[string][]*Listener{}}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

func (t *Target) AddEventListener(event string, listener *Listener) error {
	if listener == nil {
		return fmt.Errorf("ambient: listener must not be nil")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTargetClosed
	}
	if t.events != nil {
		if _, ok := t.events[event]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownEvent, event)
		}
	}
	if slices.Contains(t.listeners[event], listener) {
		return nil
	}
	t.listeners[event] = append(t.listeners[event], listener)
	return nil
}

func (t *Target) RemoveEventListener(event string, listener *Listener) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	current := t.listeners[event]
	idx := slices.Index(current, listener)
	if idx < 0 {
		return nil
	}
	next := slices.Delete(slices.Clone(current), idx, idx+1)
	if len(next) == 0 {
		delete(t.listeners, event)
		return nil
	}
	t.listeners[event] = next
	return nil
}

// Dispatch delivers evt to the listeners registered for evt.Type and returns
// how many were called. A zero evt.Time is set to now.
func (t *Target) Dispatch(evt Event) int {
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}
	t.mu.RLock()
	listeners := t.listeners[evt.Type]
	t.mu.RUnlock()

	for _, listener := range listeners {
		listener.HandleEvent(evt)
	}
	return len(listeners)
}

// Emit is shorthand for Dispatch(Event{Type: event, Payload: payload}).
func (t *Target) Emit(event string, payload any) int {
	return t.Dispatch(Event{Type: event, Payload: payload})
}

// ListenerCount reports how many listeners are registered for event.
func (t *Target) ListenerCount(event string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.listeners[event])
}

// Available reports whether the target still accepts listeners.
func (t *Target) Available() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.closed
}

// Close drops all listeners and rejects new registrations.
func (t *Target) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.listeners = map[string][]*Listener{}
}
