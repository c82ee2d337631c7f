package ambient

import (
	"slices"
	"time"
)

// Backend is the string-keyed store a Binding persists through. Get reports
// ok=false when no entry exists for key; a present empty string is a value.
// Set may fail, e.g. when a quota is exceeded.
type Backend interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Event is a single notification delivered by an EventSource. The Payload
// shape is owned by the source that emits it.
type Event struct {
	Type    string
	Payload any
	Time    time.Time
}

// Handler receives events for a subscription.
type Handler func(Event)

// Listener wraps a Handler with a stable identity so the same registration
// can be removed from a source later.
type Listener struct {
	handler Handler
}

// NewListener returns a listener that forwards events to handler.
func NewListener(handler Handler) *Listener {
	return &Listener{handler: handler}
}

// HandleEvent forwards evt to the wrapped handler.
func (l *Listener) HandleEvent(evt Event) {
	if l == nil || l.handler == nil {
		return
	}
	l.handler(evt)
}

// EventSource is an externally owned emitter of named events.
type EventSource interface {
	AddEventListener(event string, listener *Listener) error
	RemoveEventListener(event string, listener *Listener) error
}

// Availability is implemented by sources that can report they are not usable
// right now (closed, disconnected, headless). Subscribe treats an unavailable
// source like a missing one.
type Availability interface {
	Available() bool
}

// Disposer releases a subscription. Calling it more than once is a no-op.
type Disposer func()

func noopDisposer() {}

// RuleContext carries the inputs a condition is evaluated against.
type RuleContext struct {
	Event    string
	Payload  any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) eventLabel() string {
	if ctx.Event != "" {
		return ctx.Event
	}
	return "unknown"
}

// Evaluator executes condition expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable condition program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures how a condition is compiled.
type CompileOption func(*compileConfig)

type compileConfig struct {
	fields []string
}

// DeclareFields names the payload fields a condition may reference. CEL
// type-checks against them when compiling, so a reference to any other name
// fails up front; expr and js resolve names when the condition runs.
func DeclareFields(names ...string) CompileOption {
	return func(cfg *compileConfig) {
		for _, name := range names {
			if name != "" && !isReservedName(name) {
				cfg.fields = append(cfg.fields, name)
			}
		}
	}
}

func applyCompileOptions(opts []CompileOption) compileConfig {
	cfg := compileConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	slices.Sort(cfg.fields)
	cfg.fields = slices.Compact(cfg.fields)
	return cfg
}
