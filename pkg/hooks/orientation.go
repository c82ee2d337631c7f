package hooks

import (
	"encoding/json"

	"github.com/goliatone/go-ambient"
)

// EventDeviceOrientation is the event Orientation listens for.
const EventDeviceOrientation = "deviceorientation"

// OrientationState mirrors a device orientation reading. Angles are nil
// until the device reports them.
type OrientationState struct {
	Alpha    *float64 `json:"alpha"`
	Beta     *float64 `json:"beta"`
	Gamma    *float64 `json:"gamma"`
	Absolute bool     `json:"absolute"`
}

// Orientation tracks the physical orientation reported by source. Payloads
// may be an OrientationState (or pointer) or a map with alpha, beta, gamma
// and absolute keys; anything else is ignored.
func Orientation(source ambient.EventSource, opts ...Option[OrientationState]) (*State[OrientationState], error) {
	state, cfg := newState(OrientationState{}, opts)
	err := state.scope.Subscribe(source, EventDeviceOrientation, func(evt ambient.Event) {
		if reading, ok := orientationFrom(evt.Payload); ok {
			state.set(reading)
		}
	}, cfg.subscribe...)
	if err != nil {
		return nil, err
	}
	return state, nil
}

func orientationFrom(payload any) (OrientationState, bool) {
	switch p := payload.(type) {
	case OrientationState:
		return p, true
	case *OrientationState:
		if p == nil {
			return OrientationState{}, false
		}
		return *p, true
	case map[string]any:
		absolute, _ := p["absolute"].(bool)
		return OrientationState{
			Alpha:    floatPtr(p["alpha"]),
			Beta:     floatPtr(p["beta"]),
			Gamma:    floatPtr(p["gamma"]),
			Absolute: absolute,
		}, true
	default:
		return OrientationState{}, false
	}
}

func floatPtr(value any) *float64 {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}
