// Package codec converts persisted values to and from their JSON text form.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrMalformed marks stored text that is not valid JSON.
	ErrMalformed = errors.New("codec: malformed payload")
	// ErrMismatch marks valid JSON that does not fit the target type.
	ErrMismatch = errors.New("codec: type mismatch")
)

// PostHook lets callers adjust or validate a value after decoding.
type PostHook[T any] func(key string, value *T) error

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts stored JSON text into typed values.
type Decoder[T any] struct {
	postHooks    []PostHook[T]
	configureDec []func(*json.Decoder)
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.postHooks = append(d.postHooks, hook)
		}
	}
}

// WithUseNumber enables json.Decoder.UseNumber during decoding.
func WithUseNumber[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.UseNumber()
		})
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode parses raw into T. Errors wrap ErrMalformed when raw is not JSON
// and ErrMismatch when it is JSON of a shape T cannot hold.
func (d *Decoder[T]) Decode(key, raw string) (T, error) {
	var zero T

	if !json.Valid([]byte(raw)) {
		return zero, fmt.Errorf("%w: key %q", ErrMalformed, key)
	}

	var result T
	decoder := json.NewDecoder(strings.NewReader(raw))
	for _, configure := range d.configureDec {
		configure(decoder)
	}
	if err := decoder.Decode(&result); err != nil {
		return zero, fmt.Errorf("%w: key %q: %v", ErrMismatch, key, err)
	}

	for _, hook := range d.postHooks {
		if err := hook(key, &result); err != nil {
			return zero, fmt.Errorf("codec: post-hook for key %q failed: %w", key, err)
		}
	}

	return result, nil
}

// Encode renders value as JSON text.
func Encode(value any) (string, error) {
	buffer, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("codec: encode: %w", err)
	}
	return string(buffer), nil
}

// Legacy reinterprets raw stored text as T when T can hold a string. It
// covers values persisted before structured encoding was used.
func Legacy[T any](raw string) (T, bool) {
	if value, ok := any(raw).(T); ok {
		return value, true
	}
	var zero T
	target := reflect.TypeOf(&zero).Elem()
	if target.Kind() == reflect.String {
		return reflect.ValueOf(raw).Convert(target).Interface().(T), true
	}
	return zero, false
}
