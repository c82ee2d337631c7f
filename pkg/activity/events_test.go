package activity

import (
	"context"
	"errors"
	"testing"
)

func TestBuildBindingWrittenEvent(t *testing.T) {
	meta := map[string]any{"custom": "value"}
	event := BuildBindingWrittenEvent(BindingEventInput{
		ActorID:  " actor ",
		Key:      "theme",
		Value:    "dark",
		Metadata: meta,
	})

	if event.Verb != VerbBindingWritten {
		t.Fatalf("expected verb %s got %s", VerbBindingWritten, event.Verb)
	}
	if event.ObjectType != "binding" || event.ObjectID != "theme" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.ActorID != "actor" {
		t.Fatalf("expected trimmed actor, got %q", event.ActorID)
	}
	if event.Metadata["key"] != "theme" || event.Metadata["value"] != "dark" || event.Metadata["custom"] != "value" {
		t.Fatalf("unexpected metadata: %+v", event.Metadata)
	}
	if _, ok := meta["key"]; ok {
		t.Fatalf("expected input metadata untouched")
	}
}

func TestBuildBindingWriteFailedEventRecordsError(t *testing.T) {
	event := BuildBindingWriteFailedEvent(BindingEventInput{Key: "", Err: errors.New("quota exceeded")})
	if event.Verb != VerbBindingWriteFailed {
		t.Fatalf("unexpected verb %s", event.Verb)
	}
	if event.ObjectID != "binding" {
		t.Fatalf("expected fallback object ID, got %q", event.ObjectID)
	}
	if event.Metadata["error"] != "quota exceeded" {
		t.Fatalf("expected error metadata, got %+v", event.Metadata)
	}
}

func TestBuildSubscriptionEvents(t *testing.T) {
	attached := BuildSubscriptionAttachedEvent(SubscriptionEventInput{Event: "scroll", Condition: "y > 10", Once: true})
	if attached.Verb != VerbSubscriptionAttached || attached.ObjectID != "scroll" {
		t.Fatalf("unexpected attached event: %+v", attached)
	}
	if attached.Metadata["condition"] != "y > 10" || attached.Metadata["once"] != true {
		t.Fatalf("unexpected metadata: %+v", attached.Metadata)
	}

	detached := BuildSubscriptionDetachedEvent(SubscriptionEventInput{})
	if detached.Verb != VerbSubscriptionDetached || detached.ObjectID != "subscription" {
		t.Fatalf("unexpected detached event: %+v", detached)
	}
	if detached.Metadata != nil {
		t.Fatalf("expected no metadata, got %+v", detached.Metadata)
	}
}

func TestBuildEventsWorkWithHooks(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}

	if err := hooks.Notify(context.Background(), BuildSubscriptionAttachedEvent(SubscriptionEventInput{Event: "focus"})); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got := capture.Verbs(); len(got) != 1 || got[0] != VerbSubscriptionAttached {
		t.Fatalf("unexpected captured verbs %v", got)
	}
}
