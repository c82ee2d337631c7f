package ambient

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-ambient/pkg/activity"
)

// SubscriptionState tracks the lifecycle of one registration.
type SubscriptionState int32

const (
	Unattached SubscriptionState = iota
	Attached
	Detached
)

func (s SubscriptionState) String() string {
	switch s {
	case Attached:
		return "attached"
	case Detached:
		return "detached"
	default:
		return "unattached"
	}
}

// Subscribe registers handler for event on source and returns a Disposer that
// removes exactly that registration. Registration failures are returned as a
// *SubscriptionError. A nil or unavailable source yields a no-op Disposer.
//
// Callers own the returned Disposer and must invoke it when the owning scope
// ends; an undisposed subscription lives as long as the source.
func Subscribe(source EventSource, event string, handler Handler, opts ...SubscribeOption) (Disposer, error) {
	sub, err := newSubscription(source, event, handler, opts...)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return noopDisposer, nil
	}
	return sub.Dispose, nil
}

// Subscription is the handle behind a Disposer. Most callers only need the
// Disposer returned by Subscribe.
type Subscription struct {
	source   EventSource
	event    string
	handler  Handler
	listener *Listener
	cfg      subscribeConfig
	rule     *condition

	// gate is held for reading while the handler runs and for writing while
	// Dispose detaches.
	gate     sync.RWMutex
	state    atomic.Int32
	fired    atomic.Bool
	disposed sync.Once
}

// Attach is Subscribe returning the Subscription itself. It returns nil and
// no error when the source is unavailable.
func Attach(source EventSource, event string, handler Handler, opts ...SubscribeOption) (*Subscription, error) {
	return newSubscription(source, event, handler, opts...)
}

func newSubscription(source EventSource, event string, handler Handler, opts ...SubscribeOption) (*Subscription, error) {
	if !available(source) {
		return nil, nil
	}
	if strings.TrimSpace(event) == "" {
		return nil, &SubscriptionError{Event: event, Err: ErrInvalidEvent}
	}
	if handler == nil {
		return nil, &SubscriptionError{Event: event, Err: ErrNilHandler}
	}

	cfg := applySubscribeOptions(opts)
	sub := &Subscription{
		source:  source,
		event:   event,
		handler: handler,
		cfg:     cfg,
	}
	if cfg.condition != "" {
		rule, err := compileCondition(cfg, event)
		if err != nil {
			return nil, &SubscriptionError{Event: event, Err: err}
		}
		sub.rule = rule
	}
	sub.listener = NewListener(sub.deliver)

	// Mark attached before registering: a synchronous source may deliver
	// from inside AddEventListener.
	sub.state.Store(int32(Attached))
	if err := source.AddEventListener(event, sub.listener); err != nil {
		sub.state.Store(int32(Unattached))
		return nil, &SubscriptionError{Event: event, Err: err}
	}

	cfg.recorder.SubscriptionAttached(event)
	cfg.logger.Log(LogEvent{Op: "attach", Event: event, Expr: cfg.condition})
	emitActivity(cfg.activity, cfg.logger, activity.BuildSubscriptionAttachedEvent(sub.activityInput()))
	return sub, nil
}

// Event returns the subscribed event name.
func (s *Subscription) Event() string {
	return s.event
}

// State reports the current lifecycle state.
func (s *Subscription) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

// Dispose detaches the handler. It waits for a handler already running on
// another goroutine, so once it returns the handler is never running and never
// runs again. It must not be called from the subscription's own handler; use
// WithOnce for one-shot handlers. Subsequent calls are no-ops.
func (s *Subscription) Dispose() {
	s.disposed.Do(func() {
		s.gate.Lock()
		s.state.Store(int32(Detached))
		s.gate.Unlock()
		err := s.source.RemoveEventListener(s.event, s.listener)
		s.cfg.recorder.SubscriptionDetached(s.event)
		s.cfg.logger.Log(LogEvent{Op: "detach", Event: s.event, Err: err})
		emitActivity(s.cfg.activity, s.cfg.logger, activity.BuildSubscriptionDetachedEvent(s.activityInput()))
	})
}

func (s *Subscription) deliver(evt Event) {
	if s.State() != Attached {
		return
	}
	if s.rule != nil && !s.rule.matches(evt, s.cfg.logger) {
		return
	}
	if s.cfg.once && !s.fired.CompareAndSwap(false, true) {
		return
	}
	ran := s.run(evt)
	if ran && s.cfg.once {
		s.Dispose()
	}
}

func (s *Subscription) run(evt Event) bool {
	s.gate.RLock()
	defer s.gate.RUnlock()
	if s.State() != Attached {
		return false
	}
	s.handler(evt)
	return true
}

func (s *Subscription) activityInput() activity.SubscriptionEventInput {
	return activity.SubscriptionEventInput{
		Event:     s.event,
		Condition: s.cfg.condition,
		Once:      s.cfg.once,
	}
}

func available(source EventSource) bool {
	if isNilSource(source) {
		return false
	}
	if a, ok := source.(Availability); ok {
		return a.Available()
	}
	return true
}
