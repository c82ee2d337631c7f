package source

import (
	"errors"
	"sync"
	"testing"

	"github.com/goliatone/go-ambient"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	mu           sync.Mutex
	handlers     map[string][]nats.MsgHandler
	unsubscribed int
	subErr       error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{handlers: map[string][]nats.MsgHandler{}}
}

func (b *fakeBroker) subscribe(subject string, handler nats.MsgHandler) (func() error, error) {
	if b.subErr != nil {
		return nil, b.subErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[subject] = append(b.handlers[subject], handler)
	index := len(b.handlers[subject]) - 1
	return func() error {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.handlers[subject][index] = nil
		b.unsubscribed++
		return nil
	}, nil
}

func (b *fakeBroker) publish(subject string, data string) {
	b.mu.Lock()
	handlers := append([]nats.MsgHandler(nil), b.handlers[subject]...)
	b.mu.Unlock()
	for _, handler := range handlers {
		if handler != nil {
			handler(&nats.Msg{Subject: subject, Data: []byte(data)})
		}
	}
}

func TestNATSSubjectsDeliversDecodedMessages(t *testing.T) {
	broker := newFakeBroker()
	source := newNATSSubjects(broker.subscribe, func() bool { return true })

	var got []Message
	dispose, err := ambient.Subscribe(source, "devices.orientation", func(evt ambient.Event) {
		got = append(got, evt.Payload.(Message))
	})
	require.NoError(t, err)
	require.Equal(t, 1, source.Len())

	broker.publish("devices.orientation", `{"alpha":12.5}`)
	broker.publish("devices.orientation", `not json`)

	require.Len(t, got, 2)
	require.Equal(t, map[string]any{"alpha": 12.5}, got[0].Data)
	require.Equal(t, "not json", got[1].Data)

	dispose()
	dispose()
	require.Equal(t, 1, broker.unsubscribed)
	require.Equal(t, 0, source.Len())

	broker.publish("devices.orientation", `{}`)
	require.Len(t, got, 2)
}

func TestNATSSubjectsConditionOnData(t *testing.T) {
	broker := newFakeBroker()
	source := newNATSSubjects(broker.subscribe, func() bool { return true })

	calls := 0
	dispose, err := ambient.Subscribe(source, "scroll", func(ambient.Event) { calls++ },
		ambient.WithCondition("payload.Data.y > 100"))
	require.NoError(t, err)
	defer dispose()

	broker.publish("scroll", `{"y":50}`)
	broker.publish("scroll", `{"y":150}`)
	require.Equal(t, 1, calls)
}

func TestNATSSubjectsUnavailable(t *testing.T) {
	source := NewNATSSubjects(nil)
	require.False(t, source.Available())

	dispose, err := ambient.Subscribe(source, "anything", func(ambient.Event) {})
	require.NoError(t, err)
	dispose()

	closed := newNATSSubjects(newFakeBroker().subscribe, func() bool { return false })
	require.ErrorIs(t, closed.AddEventListener("x", ambient.NewListener(func(ambient.Event) {})), ErrDisconnected)
}

func TestNATSSubjectsRegistrationErrorPropagates(t *testing.T) {
	broker := newFakeBroker()
	broker.subErr = errors.New("nats: invalid subject")
	source := newNATSSubjects(broker.subscribe, func() bool { return true })

	_, err := ambient.Subscribe(source, "bad..subject", func(ambient.Event) {})
	require.ErrorIs(t, err, broker.subErr)

	var subErr *ambient.SubscriptionError
	require.ErrorAs(t, err, &subErr)
	require.Equal(t, 0, source.Len())
}
