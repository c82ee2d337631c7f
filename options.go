package ambient

import (
	"reflect"

	"github.com/goliatone/go-ambient/pkg/activity"
)

// BindingOption configures a Binding.
type BindingOption func(*bindingConfig)

type bindingConfig struct {
	onError   func(error)
	logger    EventLogger
	recorder  Recorder
	activity  *activity.Emitter
	useNumber bool
	validate  bool
}

func applyBindingOptions(opts []BindingOption) bindingConfig {
	cfg := bindingConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopEventLogger{}
	}
	if cfg.recorder == nil {
		cfg.recorder = noopRecorder{}
	}
	return cfg
}

// WithErrorCallback registers fn to receive backend failures, e.g. when the
// storage quota has been exceeded. Without it failures are absorbed.
func WithErrorCallback(fn func(error)) BindingOption {
	return func(cfg *bindingConfig) {
		cfg.onError = fn
	}
}

// WithLogger attaches a logger to a Binding.
func WithLogger(logger EventLogger) BindingOption {
	return func(cfg *bindingConfig) {
		cfg.logger = logger
	}
}

// WithRecorder attaches a metrics recorder to a Binding.
func WithRecorder(recorder Recorder) BindingOption {
	return func(cfg *bindingConfig) {
		cfg.recorder = recorder
	}
}

// WithUseNumber decodes stored numbers as json.Number instead of float64.
func WithUseNumber() BindingOption {
	return func(cfg *bindingConfig) {
		cfg.useNumber = true
	}
}

// WithValidation rejects stored values whose Validate method fails; the
// initial value is used instead.
func WithValidation() BindingOption {
	return func(cfg *bindingConfig) {
		cfg.validate = true
	}
}

// SubscribeOption configures a single Subscribe call.
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	once      bool
	condition string
	fields    []string
	evaluator Evaluator
	cache     ProgramCache
	functions *FunctionRegistry
	logger    EventLogger
	recorder  Recorder
	activity  *activity.Emitter
}

func applySubscribeOptions(opts []SubscribeOption) subscribeConfig {
	cfg := subscribeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopEventLogger{}
	}
	if cfg.recorder == nil {
		cfg.recorder = noopRecorder{}
	}
	return cfg
}

// WithOnce disposes the subscription after the first delivered event.
func WithOnce() SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.once = true
	}
}

// WithCondition only delivers events for which expr evaluates to true.
func WithCondition(expr string) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.condition = expr
	}
}

// WithPayloadFields declares the payload fields a condition may reference.
// Engines that type-check (CEL) then reject other names when subscribing.
func WithPayloadFields(names ...string) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.fields = append(cfg.fields, names...)
	}
}

// WithEvaluator selects the engine used for WithCondition. Defaults to expr.
func WithEvaluator(e Evaluator) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.evaluator = e
	}
}

// WithProgramCache shares compiled condition programs across subscriptions
// using the default engine. Pass EngineProgramCache to other engines.
func WithProgramCache(cache ProgramCache) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.cache = cache
	}
}

// WithConditionFunctions exposes registry functions to conditions run by the
// default engine.
func WithConditionFunctions(registry *FunctionRegistry) SubscribeOption {
	return func(cfg *subscribeConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithSubscriptionLogger attaches a logger to a subscription.
func WithSubscriptionLogger(logger EventLogger) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.logger = logger
	}
}

// WithSubscriptionRecorder attaches a metrics recorder to a subscription.
func WithSubscriptionRecorder(recorder Recorder) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.recorder = recorder
	}
}

func validateValue[T any](value T) error {
	if v, ok := any(value).(interface{ Validate() error }); ok {
		return v.Validate()
	}
	if v, ok := any(&value).(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}

func isNilSource(source EventSource) bool {
	if source == nil {
		return true
	}
	rv := reflect.ValueOf(source)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
