package source

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-ambient"
	"github.com/goliatone/go-ambient/internal/codec"
	"github.com/nats-io/nats.go"
)

// ErrDisconnected is returned when registering on a closed connection.
var ErrDisconnected = errors.New("source: nats connection closed")

// Message is the payload of NATSSubjects events. Data holds the decoded JSON
// body, or the raw text when the body is not JSON. Every field is always
// encoded so conditions can rely on MessageFields being present.
type Message struct {
	Subject string            `json:"subject"`
	Reply   string            `json:"reply"`
	Header  map[string]string `json:"header"`
	Data    any               `json:"data"`
}

// MessageFields are the condition field names of a Message.
var MessageFields = []string{"subject", "reply", "header", "data"}

type subscribeFunc func(subject string, handler nats.MsgHandler) (unsubscribe func() error, err error)

type subscriptionKey struct {
	subject  string
	listener *ambient.Listener
}

// NATSSubjects maps event names to NATS subjects: each listener registered
// for an event gets its own core subscription on that subject.
type NATSSubjects struct {
	subscribe subscribeFunc
	connected func() bool

	mu   sync.Mutex
	subs map[subscriptionKey]func() error
}

var (
	_ ambient.EventSource  = (*NATSSubjects)(nil)
	_ ambient.Availability = (*NATSSubjects)(nil)
)

// NewNATSSubjects returns a source using conn. A nil conn yields a source
// that reports itself unavailable.
func NewNATSSubjects(conn *nats.Conn) *NATSSubjects {
	if conn == nil {
		return newNATSSubjects(nil, func() bool { return false })
	}
	return newNATSSubjects(func(subject string, handler nats.MsgHandler) (func() error, error) {
		sub, err := conn.Subscribe(subject, handler)
		if err != nil {
			return nil, err
		}
		return sub.Unsubscribe, nil
	}, func() bool { return !conn.IsClosed() })
}

func newNATSSubjects(subscribe subscribeFunc, connected func() bool) *NATSSubjects {
	return &NATSSubjects{
		subscribe: subscribe,
		connected: connected,
		subs:      map[subscriptionKey]func() error{},
	}
}

// Available reports whether the connection is open.
func (n *NATSSubjects) Available() bool {
	return n != nil && n.subscribe != nil && n.connected()
}

func (n *NATSSubjects) AddEventListener(subject string, listener *ambient.Listener) error {
	if listener == nil {
		return fmt.Errorf("source: listener is nil")
	}
	if strings.TrimSpace(subject) == "" {
		return ambient.ErrInvalidEvent
	}
	if !n.Available() {
		return ErrDisconnected
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	key := subscriptionKey{subject: subject, listener: listener}
	if _, exists := n.subs[key]; exists {
		return nil
	}
	unsubscribe, err := n.subscribe(subject, func(msg *nats.Msg) {
		listener.HandleEvent(ambient.Event{
			Type:    msg.Subject,
			Payload: decodeMessage(msg),
			Time:    time.Now(),
		})
	})
	if err != nil {
		return fmt.Errorf("subscribe %q: %w", subject, err)
	}
	n.subs[key] = unsubscribe
	return nil
}

func (n *NATSSubjects) RemoveEventListener(subject string, listener *ambient.Listener) error {
	n.mu.Lock()
	key := subscriptionKey{subject: subject, listener: listener}
	unsubscribe, ok := n.subs[key]
	delete(n.subs, key)
	n.mu.Unlock()
	if !ok {
		return nil
	}
	if err := unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("unsubscribe %q: %w", subject, err)
	}
	return nil
}

// Len reports the number of live subscriptions.
func (n *NATSSubjects) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

var messageDecoder = codec.NewDecoder[any]()

func decodeMessage(msg *nats.Msg) Message {
	out := Message{Subject: msg.Subject, Reply: msg.Reply}
	if len(msg.Header) > 0 {
		out.Header = make(map[string]string, len(msg.Header))
		for name := range msg.Header {
			out.Header[name] = msg.Header.Get(name)
		}
	}
	raw := string(msg.Data)
	if data, err := messageDecoder.Decode(msg.Subject, raw); err == nil {
		out.Data = data
	} else {
		out.Data = raw
	}
	return out
}
