package hooks

import (
	"sync"

	"github.com/goliatone/go-ambient"
)

// EventScroll is the event ScrollCoords listens for.
const EventScroll = "scroll"

// Coords is an [x, y] scroll offset.
type Coords [2]float64

// Scroller is implemented by sources that can report their scroll offset.
type Scroller interface {
	ScrollPosition() (x, y float64)
}

// ScrollCoords tracks the scroll offset of window. The initial value comes
// from ScrollPosition when window implements Scroller, otherwise [0, 0]. On
// each scroll event the offset is re-read from the window, or taken from the
// payload when window is not a Scroller.
func ScrollCoords(window ambient.EventSource, opts ...Option[Coords]) (*State[Coords], error) {
	scroller, _ := window.(Scroller)
	state, cfg := newState(Coords{}, opts)

	sub, err := ambient.Attach(window, EventScroll, func(evt ambient.Event) {
		if scroller != nil {
			x, y := scroller.ScrollPosition()
			state.set(Coords{x, y})
			return
		}
		if coords, ok := coordsFrom(evt.Payload); ok {
			state.set(coords)
		}
	}, cfg.subscribe...)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return state, nil
	}
	if scroller != nil {
		x, y := scroller.ScrollPosition()
		state.mu.Lock()
		state.value = Coords{x, y}
		state.mu.Unlock()
	}
	state.scope.Add(sub.Dispose)
	return state, nil
}

func coordsFrom(payload any) (Coords, bool) {
	switch p := payload.(type) {
	case Coords:
		return p, true
	case [2]float64:
		return Coords(p), true
	case map[string]any:
		x, y := floatPtr(p["x"]), floatPtr(p["y"])
		if x == nil || y == nil {
			return Coords{}, false
		}
		return Coords{*x, *y}, true
	default:
		return Coords{}, false
	}
}

// Viewport is an in-process window: an event target that also tracks its
// scroll offset.
type Viewport struct {
	*ambient.Target

	mu   sync.RWMutex
	x, y float64
}

// NewViewport returns a Viewport scrolled to the origin.
func NewViewport() *Viewport {
	return &Viewport{Target: ambient.NewTarget()}
}

// ScrollPosition returns the current offset.
func (v *Viewport) ScrollPosition() (float64, float64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.x, v.y
}

// ScrollTo moves the viewport and dispatches a scroll event.
func (v *Viewport) ScrollTo(x, y float64) {
	v.mu.Lock()
	v.x, v.y = x, y
	v.mu.Unlock()
	v.Emit(EventScroll, Coords{x, y})
}
