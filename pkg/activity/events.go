package activity

import "strings"

// Verbs emitted by bindings and subscriptions.
const (
	VerbBindingWritten       = "binding.written"
	VerbBindingWriteFailed   = "binding.write_failed"
	VerbSubscriptionAttached = "subscription.attached"
	VerbSubscriptionDetached = "subscription.detached"
)

// BindingEventInput describes a write to one persisted key.
type BindingEventInput struct {
	ActorID  string
	UserID   string
	TenantID string
	Channel  string
	Key      string
	Value    any
	Err      error
	Metadata map[string]any
}

// SubscriptionEventInput describes a subscription lifecycle change.
type SubscriptionEventInput struct {
	Channel   string
	Event     string
	Condition string
	Once      bool
	Metadata  map[string]any
}

// BuildBindingWrittenEvent constructs an event for a successful write.
func BuildBindingWrittenEvent(input BindingEventInput) Event {
	return buildBindingEvent(VerbBindingWritten, input)
}

// BuildBindingWriteFailedEvent constructs an event for a rejected write. The
// error text is stored under metadata["error"].
func BuildBindingWriteFailedEvent(input BindingEventInput) Event {
	return buildBindingEvent(VerbBindingWriteFailed, input)
}

// BuildSubscriptionAttachedEvent constructs an event for a new registration.
func BuildSubscriptionAttachedEvent(input SubscriptionEventInput) Event {
	return buildSubscriptionEvent(VerbSubscriptionAttached, input)
}

// BuildSubscriptionDetachedEvent constructs an event for a disposed registration.
func BuildSubscriptionDetachedEvent(input SubscriptionEventInput) Event {
	return buildSubscriptionEvent(VerbSubscriptionDetached, input)
}

func buildBindingEvent(verb string, input BindingEventInput) Event {
	metadata := cloneMap(input.Metadata)
	metadata = ensureMetadata(metadata)
	metadata["key"] = input.Key
	if input.Value != nil {
		metadata["value"] = input.Value
	}
	if input.Err != nil {
		metadata["error"] = input.Err.Error()
	}

	objectID := strings.TrimSpace(input.Key)
	if objectID == "" {
		objectID = "binding"
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: "binding",
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
	}
}

func buildSubscriptionEvent(verb string, input SubscriptionEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Condition != "" {
		metadata = ensureMetadata(metadata)
		metadata["condition"] = input.Condition
	}
	if input.Once {
		metadata = ensureMetadata(metadata)
		metadata["once"] = true
	}

	objectID := strings.TrimSpace(input.Event)
	if objectID == "" {
		objectID = "subscription"
	}

	return Event{
		Verb:       verb,
		ObjectType: "subscription",
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
