package ambient

import (
	"errors"
	"sync"
	"time"

	"github.com/goliatone/go-ambient/internal/codec"
	"github.com/goliatone/go-ambient/pkg/activity"
)

// Initial is the value a Binding starts with when the backend has no entry:
// either a literal or a producer evaluated once.
type Initial[V any] struct {
	value V
	lazy  func() V
}

// Literal uses value as the initial value.
func Literal[V any](value V) Initial[V] {
	return Initial[V]{value: value}
}

// Lazy defers computing the initial value until a backend miss. fn runs at
// most once per Binding.
func Lazy[V any](fn func() V) Initial[V] {
	return Initial[V]{lazy: fn}
}

func (i Initial[V]) resolve() V {
	if i.lazy != nil {
		return i.lazy()
	}
	return i.value
}

// Action is either a next value or an updater applied to the current value.
type Action[V any] struct {
	next   V
	update func(V) V
}

// Next replaces the current value with value.
func Next[V any](value V) Action[V] {
	return Action[V]{next: value}
}

// Updater computes the next value from the current one.
func Updater[V any](fn func(V) V) Action[V] {
	return Action[V]{update: fn}
}

func (a Action[V]) apply(current V) V {
	if a.update != nil {
		return a.update(current)
	}
	return a.next
}

// SetFunc applies an Action to a Binding and returns the new value.
type SetFunc[V any] func(Action[V]) V

// Binding keeps one key of a Backend in sync with an in-memory value. The
// in-memory value is authoritative: failed writes never roll it back.
type Binding[V any] struct {
	key     string
	backend Backend
	cfg     bindingConfig

	mu    sync.Mutex
	value V
}

// NewBinding loads key from backend, falling back to initial, and returns the
// binding. A nil backend keeps the value in memory only.
func NewBinding[V any](key string, initial Initial[V], backend Backend, opts ...BindingOption) *Binding[V] {
	cfg := applyBindingOptions(opts)
	b := &Binding[V]{
		key:     key,
		backend: backend,
		cfg:     cfg,
	}
	b.value = initialize(key, initial, backend, cfg)
	return b
}

// Use returns the current value of key and a function to update it.
func Use[V any](key string, initial Initial[V], backend Backend, opts ...BindingOption) (V, SetFunc[V]) {
	b := NewBinding(key, initial, backend, opts...)
	return b.Value(), b.Dispatch
}

// Initialize resolves the starting value for key without creating a Binding.
// It never fails: unreadable or malformed entries degrade to a fallback.
func Initialize[V any](key string, initial Initial[V], backend Backend, opts ...BindingOption) V {
	return initialize(key, initial, backend, applyBindingOptions(opts))
}

func initialize[V any](key string, initial Initial[V], backend Backend, cfg bindingConfig) V {
	start := time.Now()
	value, outcome, err := load(key, initial, backend, cfg)
	cfg.recorder.ObserveRead(key, outcome)
	cfg.logger.Log(LogEvent{
		Op:       "initialize",
		Key:      key,
		Outcome:  outcome,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil && cfg.onError != nil {
		cfg.onError(err)
	}
	return value
}

func load[V any](key string, initial Initial[V], backend Backend, cfg bindingConfig) (V, string, error) {
	if backend == nil {
		return initial.resolve(), ReadInitial, nil
	}

	raw, ok, err := backend.Get(key)
	if err != nil {
		return initial.resolve(), ReadError, err
	}
	if !ok {
		return initial.resolve(), ReadInitial, nil
	}

	value, err := newDecoder[V](cfg).Decode(key, raw)
	if err == nil {
		return value, ReadDecoded, nil
	}
	if errors.Is(err, codec.ErrMalformed) {
		if legacy, ok := codec.Legacy[V](raw); ok {
			return legacy, ReadLegacy, nil
		}
	}
	return initial.resolve(), ReadInitial, nil
}

func newDecoder[V any](cfg bindingConfig) *codec.Decoder[V] {
	var opts []codec.DecoderOption[V]
	if cfg.useNumber {
		opts = append(opts, codec.WithUseNumber[V]())
	}
	if cfg.validate {
		opts = append(opts, codec.WithPostHook(func(_ string, value *V) error {
			return validateValue(*value)
		}))
	}
	return codec.NewDecoder(opts...)
}

// Key returns the backend key the binding persists to.
func (b *Binding[V]) Key() string {
	return b.key
}

// Value returns the current in-memory value.
func (b *Binding[V]) Value() V {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// Set replaces the current value.
func (b *Binding[V]) Set(value V) V {
	return b.Dispatch(Next(value))
}

// Update applies fn to the current value. fn must not call back into b.
func (b *Binding[V]) Update(fn func(V) V) V {
	return b.Dispatch(Updater(fn))
}

// Dispatch applies action, persists the result and returns it. Updates on one
// binding are applied in call order.
func (b *Binding[V]) Dispatch(action Action[V]) V {
	b.mu.Lock()
	next := action.apply(b.value)
	b.value = next
	start := time.Now()
	err := b.persist(next)
	duration := time.Since(start)
	b.mu.Unlock()

	b.report(next, duration, err)
	return next
}

func (b *Binding[V]) persist(value V) error {
	if b.backend == nil {
		return nil
	}
	encoded, err := codec.Encode(value)
	if err != nil {
		return err
	}
	return b.backend.Set(b.key, encoded)
}

func (b *Binding[V]) report(value V, duration time.Duration, err error) {
	if b.backend == nil {
		return
	}
	b.cfg.recorder.ObserveWrite(b.key, duration, err)
	b.cfg.logger.Log(LogEvent{
		Op:       "write",
		Key:      b.key,
		Duration: duration,
		Err:      err,
	})
	input := activity.BindingEventInput{Key: b.key, Value: value}
	if err != nil {
		input.Err = err
		emitActivity(b.cfg.activity, b.cfg.logger, activity.BuildBindingWriteFailedEvent(input))
	} else {
		emitActivity(b.cfg.activity, b.cfg.logger, activity.BuildBindingWrittenEvent(input))
	}
	if err != nil && b.cfg.onError != nil {
		b.cfg.onError(err)
	}
}
