//go:build !js_eval

package ambient

// NewJSEvaluator returns nil: the JavaScript engine is only compiled in with
// the js_eval build tag.
func NewJSEvaluator(...EngineOption) Evaluator {
	return nil
}
