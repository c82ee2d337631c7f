package ambient

import (
	"errors"
	"reflect"
	"testing"

	"github.com/goliatone/go-ambient/pkg/activity"
)

func TestBindingEmitsWriteActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	emitter := activity.NewEmitter(activity.Hooks{capture}, activity.Config{Enabled: true})
	backend := newFakeBackend()

	b := NewBinding("theme", Literal("light"), backend, WithActivity(emitter))
	b.Set("dark")
	backend.setErr = errors.New("quota exceeded")
	b.Set("blue")

	want := []string{activity.VerbBindingWritten, activity.VerbBindingWriteFailed}
	if got := capture.Verbs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected verbs %v", got)
	}
	written := capture.Events[0]
	if written.ObjectType != "binding" || written.ObjectID != "theme" || written.Channel != activity.DefaultChannel {
		t.Fatalf("unexpected written event %+v", written)
	}
	if written.Metadata["value"] != "dark" {
		t.Fatalf("expected value metadata, got %+v", written.Metadata)
	}
	if failed := capture.Events[1]; failed.Metadata["error"] != "quota exceeded" {
		t.Fatalf("expected error metadata, got %+v", failed.Metadata)
	}
}

func TestSubscriptionEmitsLifecycleActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	emitter := activity.NewEmitter(activity.Hooks{capture}, activity.Config{Enabled: true, Channel: "devices"})
	target := NewTarget()

	dispose, err := Subscribe(target, "deviceorientation", func(Event) {},
		WithCondition("alpha > 0"), WithOnce(), WithSubscriptionActivity(emitter))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	dispose()
	dispose()

	want := []string{activity.VerbSubscriptionAttached, activity.VerbSubscriptionDetached}
	if got := capture.Verbs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected verbs %v", got)
	}
	attached := capture.Events[0]
	if attached.Channel != "devices" || attached.ObjectID != "deviceorientation" {
		t.Fatalf("unexpected attached event %+v", attached)
	}
	if attached.Metadata["condition"] != "alpha > 0" || attached.Metadata["once"] != true {
		t.Fatalf("unexpected metadata %+v", attached.Metadata)
	}
}

func TestActivityHookErrorsAreLoggedNotReturned(t *testing.T) {
	capture := &activity.CaptureHook{Err: errors.New("sink down")}
	emitter := activity.NewEmitter(activity.Hooks{capture}, activity.Config{Enabled: true})
	var logged []LogEvent
	logger := EventLoggerFunc(func(event LogEvent) {
		if event.Op == "activity" {
			logged = append(logged, event)
		}
	})

	b := NewBinding("k", Literal(0), newFakeBackend(), WithActivity(emitter), WithLogger(logger))
	if got := b.Set(4); got != 4 {
		t.Fatalf("expected 4, got %d", got)
	}
	if len(logged) != 1 || logged[0].Key != "k" || logged[0].Err == nil {
		t.Fatalf("expected one activity failure log, got %+v", logged)
	}
}

func TestDisabledEmitterSkipsHooks(t *testing.T) {
	capture := &activity.CaptureHook{}
	emitter := activity.NewEmitter(activity.Hooks{capture}, activity.Config{Enabled: false})

	b := NewBinding("k", Literal(0), newFakeBackend(), WithActivity(emitter))
	b.Set(1)
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events, got %d", len(capture.Events))
	}
}
