package ambient

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEvent is returned when Subscribe receives an empty event name.
	ErrInvalidEvent = errors.New("ambient: event name must not be empty")
	// ErrNilHandler is returned when Subscribe receives a nil handler.
	ErrNilHandler = errors.New("ambient: handler must not be nil")
	// ErrUnknownEvent is returned by a Target restricted with WithEvents.
	ErrUnknownEvent = errors.New("ambient: unknown event")
	// ErrTargetClosed is returned when listeners are added to a closed Target.
	ErrTargetClosed = errors.New("ambient: target closed")
	// ErrEmptyExpression is returned for a blank condition.
	ErrEmptyExpression = errors.New("ambient: condition must not be empty")
)

// SubscriptionError reports a failed registration. It unwraps to the cause.
type SubscriptionError struct {
	Event string
	Err   error
}

func (e *SubscriptionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("ambient: subscribe event=%q: %v", e.Event, e.Err)
}

func (e *SubscriptionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
