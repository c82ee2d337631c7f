package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/goliatone/go-ambient"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

var _ ambient.Backend = (*NATSKV)(nil)

var natsKeyPattern = regexp.MustCompile(`^[-/_=.a-zA-Z0-9]+$`)

// NATSKVOption configures a NATSKV backend.
type NATSKVOption func(*NATSKV)

// WithNATSTimeout bounds each KV request.
func WithNATSTimeout(timeout time.Duration) NATSKVOption {
	return func(n *NATSKV) {
		if timeout > 0 {
			n.timeout = timeout
		}
	}
}

// NATSKV stores entries in a JetStream key/value bucket.
type NATSKV struct {
	kv      jetstream.KeyValue
	conn    *nats.Conn
	timeout time.Duration
}

// NewNATSKV wraps an existing bucket handle. The caller owns the connection.
func NewNATSKV(kv jetstream.KeyValue, opts ...NATSKVOption) *NATSKV {
	n := &NATSKV{kv: kv, timeout: DefaultTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

// ConnectNATSKV dials url and opens bucket, creating it when missing. Close
// releases the connection.
func ConnectNATSKV(ctx context.Context, url, bucket string, opts ...NATSKVOption) (*NATSKV, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage: nats bucket is required")
	}
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := js.KeyValue(ctx, bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "ambient persisted bindings",
			History:     1,
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create KV bucket %q: %w", bucket, err)
		}
	}

	n := NewNATSKV(kv, opts...)
	n.conn = conn
	return n, nil
}

func (n *NATSKV) Get(key string) (string, bool, error) {
	if err := validateNATSKey(key); err != nil {
		return "", false, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	entry, err := n.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get key %q: %w", key, err)
	}
	return string(entry.Value()), true, nil
}

func (n *NATSKV) Set(key, value string) error {
	if err := validateNATSKey(key); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	if _, err := n.kv.Put(ctx, key, []byte(value)); err != nil {
		return fmt.Errorf("put key %q: %w", key, err)
	}
	return nil
}

// Delete removes key from the bucket.
func (n *NATSKV) Delete(key string) error {
	if err := validateNATSKey(key); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	if err := n.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete key %q: %w", key, err)
	}
	return nil
}

// Keys lists the live keys of the bucket.
func (n *NATSKV) Keys() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	lister, err := n.kv.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	var keys []string
	for key := range lister.Keys() {
		keys = append(keys, key)
	}
	return keys, nil
}

// Close releases the connection when it was opened by ConnectNATSKV.
func (n *NATSKV) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}

func validateNATSKey(key string) error {
	if !natsKeyPattern.MatchString(key) || key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
