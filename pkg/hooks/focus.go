package hooks

import "github.com/goliatone/go-ambient"

// Focus events understood by FocusState.Bind.
const (
	EventFocus = "focus"
	EventBlur  = "blur"
)

// FocusBindings are the callbacks to attach to the observed element.
type FocusBindings struct {
	OnFocus func()
	OnBlur  func()
}

// FocusState tracks whether an element has focus.
type FocusState struct {
	*State[bool]
	subscribe []ambient.SubscribeOption
}

// Focus returns an unfocused FocusState.
func Focus(opts ...Option[bool]) *FocusState {
	state, cfg := newState(false, opts)
	return &FocusState{State: state, subscribe: cfg.subscribe}
}

// Focused reports the current focus state.
func (f *FocusState) Focused() bool {
	return f.Value()
}

// Bindings returns callbacks that set and clear the focus state.
func (f *FocusState) Bindings() FocusBindings {
	return FocusBindings{
		OnFocus: func() { f.set(true) },
		OnBlur:  func() { f.set(false) },
	}
}

// Bind drives the state from focus and blur events on source until Close.
func (f *FocusState) Bind(source ambient.EventSource) error {
	bindings := f.Bindings()
	if err := f.scope.Subscribe(source, EventFocus, func(ambient.Event) { bindings.OnFocus() }, f.subscribe...); err != nil {
		return err
	}
	return f.scope.Subscribe(source, EventBlur, func(ambient.Event) { bindings.OnBlur() }, f.subscribe...)
}
