package activity

import (
	"context"
	"slices"
	"strings"
	"time"
)

// DefaultChannel is applied to events emitted without a channel.
const DefaultChannel = "ambient"

// Config controls which binding and subscription events reach the hooks.
type Config struct {
	Enabled bool
	// Channel is stamped on events that carry none.
	Channel string
	// ActorID is stamped on events that carry none, e.g. the process or
	// component that owns the bindings.
	ActorID string
	// Verbs limits emission to the listed verbs. Empty means all.
	Verbs []string
	// Timeout bounds each fan-out to the hooks. Zero means no deadline.
	Timeout time.Duration
}

// Emitter stamps defaults on events and fans them out to hooks. A nil
// *Emitter is valid and disabled.
type Emitter struct {
	hooks   Hooks
	cfg     Config
	enabled bool
}

// NewEmitter constructs an emitter from hooks and configuration.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	live := make(Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			live = append(live, hook)
		}
	}
	cfg.Channel = strings.TrimSpace(cfg.Channel)
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	cfg.ActorID = strings.TrimSpace(cfg.ActorID)
	cfg.Verbs = slices.Clone(cfg.Verbs)
	return &Emitter{
		hooks:   live,
		cfg:     cfg,
		enabled: cfg.Enabled && len(live) > 0,
	}
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Accepts reports whether events with verb would reach the hooks.
func (e *Emitter) Accepts(verb string) bool {
	if !e.Enabled() {
		return false
	}
	return len(e.cfg.Verbs) == 0 || slices.Contains(e.cfg.Verbs, strings.TrimSpace(verb))
}

// Emit forwards event to every hook after applying the configured channel,
// actor and timeout. Filtered or disabled emissions return nil.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Accepts(event.Verb) {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.cfg.Channel
	}
	if strings.TrimSpace(event.ActorID) == "" {
		event.ActorID = e.cfg.ActorID
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	return e.hooks.Notify(ctx, event)
}
