package ambient

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingSource struct {
	target  *Target
	adds    int
	removes int
	addErr  error
}

func newCountingSource() *countingSource {
	return &countingSource{target: NewTarget()}
}

func (s *countingSource) AddEventListener(event string, listener *Listener) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.adds++
	return s.target.AddEventListener(event, listener)
}

func (s *countingSource) RemoveEventListener(event string, listener *Listener) error {
	s.removes++
	return s.target.RemoveEventListener(event, listener)
}

type offlineSource struct {
	countingSource
}

func (offlineSource) Available() bool { return false }

func TestSubscribeAttachesImmediately(t *testing.T) {
	source := newCountingSource()
	var got []Event
	dispose, err := Subscribe(source, "scroll", func(evt Event) { got = append(got, evt) })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer dispose()

	if source.adds != 1 || source.target.ListenerCount("scroll") != 1 {
		t.Fatalf("expected one registration, adds=%d", source.adds)
	}
	source.target.Emit("scroll", map[string]any{"y": 10})
	source.target.Emit("resize", nil)
	if len(got) != 1 || got[0].Type != "scroll" {
		t.Fatalf("unexpected deliveries %+v", got)
	}
}

func TestDisposerIsIdempotent(t *testing.T) {
	source := newCountingSource()
	calls := 0
	dispose, err := Subscribe(source, "focus", func(Event) { calls++ })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	dispose()
	dispose()

	if source.removes != 1 {
		t.Fatalf("expected exactly one removal, got %d", source.removes)
	}
	source.target.Emit("focus", nil)
	if calls != 0 {
		t.Fatalf("expected no calls after dispose, got %d", calls)
	}
}

func TestNoHandlerAfterDisposeDuringDispatch(t *testing.T) {
	source := newCountingSource()
	var second int
	var disposeSecond Disposer

	first, err := Subscribe(source, "tick", func(Event) { disposeSecond() })
	if err != nil {
		t.Fatalf("subscribe first: %v", err)
	}
	defer first()
	disposeSecond, err = Subscribe(source, "tick", func(Event) { second++ })
	if err != nil {
		t.Fatalf("subscribe second: %v", err)
	}

	source.target.Emit("tick", nil)
	if second != 0 {
		t.Fatalf("expected disposed handler skipped within the same dispatch, got %d", second)
	}
}

func TestSubscribeUnavailableSourceIsNoop(t *testing.T) {
	var nilTarget *Target
	sources := []EventSource{nil, nilTarget, &offlineSource{countingSource: *newCountingSource()}}
	for _, source := range sources {
		dispose, err := Subscribe(source, "scroll", func(Event) {})
		if err != nil {
			t.Fatalf("expected no error for unavailable source, got %v", err)
		}
		if dispose == nil {
			t.Fatalf("expected a disposer")
		}
		dispose()
		dispose()
	}
}

func TestSubscribeClosedTargetIsNoop(t *testing.T) {
	target := NewTarget()
	target.Close()
	dispose, err := Subscribe(target, "scroll", func(Event) {})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	dispose()
}

func TestSubscribeRegistrationFailurePropagates(t *testing.T) {
	boom := errors.New("not event capable")
	source := newCountingSource()
	source.addErr = boom

	dispose, err := Subscribe(source, "scroll", func(Event) {})
	if !errors.Is(err, boom) {
		t.Fatalf("expected registration error, got %v", err)
	}
	if dispose != nil {
		t.Fatalf("expected nil disposer on failure")
	}

	var subErr *SubscriptionError
	if !errors.As(err, &subErr) || subErr.Event != "scroll" {
		t.Fatalf("expected SubscriptionError for scroll, got %v", err)
	}
}

func TestSubscribeRejectsInvalidArguments(t *testing.T) {
	source := newCountingSource()
	if _, err := Subscribe(source, " ", func(Event) {}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if _, err := Subscribe(source, "scroll", nil); !errors.Is(err, ErrNilHandler) {
		t.Fatalf("expected ErrNilHandler, got %v", err)
	}
	restricted := NewTarget(WithEvents("scroll"))
	if _, err := Subscribe(restricted, "keydown", func(Event) {}); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
	if source.adds != 0 {
		t.Fatalf("expected no registrations, got %d", source.adds)
	}
}

func TestSubscriptionStateMachine(t *testing.T) {
	source := newCountingSource()
	sub, err := Attach(source, "blur", func(Event) {})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if sub.State() != Attached || sub.Event() != "blur" {
		t.Fatalf("expected attached blur subscription, got %s %q", sub.State(), sub.Event())
	}
	sub.Dispose()
	if sub.State() != Detached {
		t.Fatalf("expected detached, got %s", sub.State())
	}
	if Unattached.String() != "unattached" {
		t.Fatalf("unexpected string %q", Unattached.String())
	}

	none, err := Attach(nil, "blur", func(Event) {})
	if err != nil || none != nil {
		t.Fatalf("expected nil subscription for nil source, got %v %v", none, err)
	}
}

func TestWithOnceDeliversSingleEvent(t *testing.T) {
	source := newCountingSource()
	calls := 0
	dispose, err := Subscribe(source, "load", func(Event) { calls++ }, WithOnce())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	source.target.Emit("load", nil)
	source.target.Emit("load", nil)
	dispose()

	if calls != 1 {
		t.Fatalf("expected one delivery, got %d", calls)
	}
	if source.removes != 1 {
		t.Fatalf("expected one removal, got %d", source.removes)
	}
}

func TestSubscriptionReportsLifecycle(t *testing.T) {
	source := newCountingSource()
	recorder := &recordingRecorder{}
	var ops []string
	logger := EventLoggerFunc(func(event LogEvent) { ops = append(ops, event.Op) })

	dispose, err := Subscribe(source, "scroll", func(Event) {},
		WithSubscriptionRecorder(recorder),
		WithSubscriptionLogger(logger),
	)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	dispose()
	dispose()

	if recorder.attached != 1 || recorder.detached != 1 {
		t.Fatalf("unexpected recorder counts %+v", recorder)
	}
	if len(ops) != 2 || ops[0] != "attach" || ops[1] != "detach" {
		t.Fatalf("unexpected log ops %v", ops)
	}
}

func TestDisposeWaitsForHandlerOnAnotherGoroutine(t *testing.T) {
	source := newCountingSource()
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	var running atomic.Bool
	var calls atomic.Int32

	dispose, err := Subscribe(source, "tick", func(Event) {
		calls.Add(1)
		running.Store(true)
		entered <- struct{}{}
		<-release
		running.Store(false)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	go source.target.Emit("tick", nil)
	<-entered

	disposed := make(chan struct{})
	go func() {
		dispose()
		close(disposed)
	}()
	select {
	case <-disposed:
		t.Fatalf("dispose returned while the handler was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-disposed
	if running.Load() {
		t.Fatalf("handler still running after dispose returned")
	}
	source.target.Emit("tick", nil)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected one invocation, got %d", got)
	}
}
