package ambient

import (
	"encoding/json"
	"reflect"
	"sort"
)

// EngineOption configures any of the built-in condition engines.
type EngineOption func(*engineConfig)

type engineConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// EngineProgramCache stores compiled programs in cache. Keys are prefixed
// with the engine name so one cache can serve several engines.
func EngineProgramCache(cache ProgramCache) EngineOption {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// EngineFunctions exposes the functions in registry to conditions, both by
// name and through call(name, args...).
func EngineFunctions(registry *FunctionRegistry) EngineOption {
	return func(cfg *engineConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

func applyEngineOptions(opts []EngineOption) engineConfig {
	cfg := engineConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func cachedProgram[P any](cache ProgramCache, key string) (P, bool) {
	var zero P
	if cache == nil {
		return zero, false
	}
	value, ok := cache.Get(key)
	if !ok {
		return zero, false
	}
	program, ok := value.(P)
	return program, ok
}

func storeProgram(cache ProgramCache, key string, program any) {
	if cache != nil {
		cache.Set(key, program)
	}
}

// Names every engine binds before payload fields. A payload field with one
// of these names is only reachable through payload.
var reservedNames = map[string]struct{}{
	"event":    {},
	"payload":  {},
	"now":      {},
	"args":     {},
	"metadata": {},
	"call":     {},
}

func isReservedName(name string) bool {
	_, ok := reservedNames[name]
	return ok
}

// conditionVars returns the variables a condition sees: event, payload, now,
// args, metadata and each top-level payload field.
func conditionVars(ctx RuleContext, payload any) map[string]any {
	vars := map[string]any{
		"event":    ctx.Event,
		"payload":  payload,
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
	for key, value := range payloadFields(ctx.Payload) {
		if isReservedName(key) {
			continue
		}
		vars[key] = value
	}
	return vars
}

// fieldNames lists the payload field variables in vars, sorted.
func fieldNames(vars map[string]any) []string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		if !isReservedName(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// bindFunctions adds call(name, args...) and every registry function to vars.
func bindFunctions(vars map[string]any, registry *FunctionRegistry) {
	if registry == nil {
		return
	}
	vars["call"] = func(name string, arguments ...any) (any, error) {
		return registry.Call(name, arguments...)
	}
	for _, name := range registry.Names() {
		fn := name
		vars[fn] = func(arguments ...any) (any, error) {
			return registry.Call(fn, arguments...)
		}
	}
}

// payloadFields exposes a payload as named fields. Maps are used as-is and
// structs go through their JSON form; anything else has no fields.
func payloadFields(payload any) map[string]any {
	if fields, ok := payload.(map[string]any); ok {
		return fields
	}
	if isPlainValue(payload) {
		return map[string]any{}
	}
	fields, ok := jsonForm(payload).(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return fields
}

// plainPayload returns payload unchanged when it is already built from JSON
// values, otherwise its JSON form (a struct becomes a map, an array a list).
func plainPayload(payload any) any {
	if isPlainValue(payload) {
		return payload
	}
	if _, ok := payload.(map[string]any); ok {
		return payload
	}
	if form := jsonForm(payload); form != nil {
		return form
	}
	return payload
}

func isPlainValue(value any) bool {
	switch value.(type) {
	case nil, bool, string,
		float32, float64, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, []any:
		return true
	}
	return false
}

func jsonForm(value any) any {
	buffer, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil
	}
	return out
}

// payloadKind names the shape of a payload for error reports.
func payloadKind(payload any) string {
	if payload == nil {
		return "nil"
	}
	rv := reflect.ValueOf(payload)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "nil"
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		return "map"
	case reflect.Struct:
		return "struct"
	case reflect.Slice, reflect.Array:
		return "list"
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	default:
		return rv.Kind().String()
	}
}
