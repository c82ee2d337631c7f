package ambient

import "time"

// Read outcomes reported to Recorder.ObserveRead.
const (
	ReadDecoded = "decoded"
	ReadLegacy  = "legacy"
	ReadInitial = "initial"
	ReadError   = "error"
)

// Recorder receives metrics about bindings and subscriptions.
type Recorder interface {
	ObserveRead(key, outcome string)
	ObserveWrite(key string, duration time.Duration, err error)
	SubscriptionAttached(event string)
	SubscriptionDetached(event string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveRead(string, string)                 {}
func (noopRecorder) ObserveWrite(string, time.Duration, error) {}
func (noopRecorder) SubscriptionAttached(string)               {}
func (noopRecorder) SubscriptionDetached(string)               {}
