package ambient

import (
	"context"

	"github.com/goliatone/go-ambient/pkg/activity"
)

// WithActivity emits binding write events through emitter.
func WithActivity(emitter *activity.Emitter) BindingOption {
	return func(cfg *bindingConfig) {
		cfg.activity = emitter
	}
}

// WithSubscriptionActivity emits attach and detach events through emitter.
func WithSubscriptionActivity(emitter *activity.Emitter) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.activity = emitter
	}
}

func emitActivity(emitter *activity.Emitter, logger EventLogger, event activity.Event) {
	if !emitter.Accepts(event.Verb) {
		return
	}
	if err := emitter.Emit(context.Background(), event); err != nil {
		entry := LogEvent{Op: "activity", Err: err}
		if event.ObjectType == "subscription" {
			entry.Event = event.ObjectID
		} else {
			entry.Key = event.ObjectID
		}
		logger.Log(entry)
	}
}
