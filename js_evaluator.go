//go:build js_eval

package ambient

import (
	"strings"

	"github.com/dop251/goja"
)

// jsEvaluator runs conditions on github.com/dop251/goja. The expression is
// wrapped in a function so statements such as `return` are not needed, and
// each evaluation gets a fresh runtime.
type jsEvaluator struct {
	engineConfig
}

// NewJSEvaluator returns a JavaScript condition engine.
func NewJSEvaluator(opts ...EngineOption) Evaluator {
	return &jsEvaluator{engineConfig: applyEngineOptions(opts)}
}

func (e *jsEvaluator) engineName() string { return "js" }

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *jsEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, emptyExpressionError("js")
	}
	key := "js:" + expression
	program, ok := cachedProgram[*goja.Program](e.cache, key)
	if !ok {
		compiled, err := goja.Compile("condition", "(function(){ return ("+expression+"); })()", true)
		if err != nil {
			return nil, compileError("js", expression, err)
		}
		program = compiled
		storeProgram(e.cache, key, program)
	}
	return &jsRule{evaluator: e, program: program, expression: expression}, nil
}

type jsRule struct {
	evaluator  *jsEvaluator
	program    *goja.Program
	expression string
}

func (r *jsRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	vars := conditionVars(ctx, ctx.Payload)
	bindFunctions(vars, r.evaluator.registry)

	vm := goja.New()
	for name, value := range vars {
		if err := vm.Set(name, value); err != nil {
			return nil, evaluateError("js", r.expression, ctx, err)
		}
	}
	value, err := vm.RunProgram(r.program)
	if err != nil {
		return nil, evaluateError("js", r.expression, ctx, err)
	}
	return value.Export(), nil
}
