package ambient

import (
	"strings"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// exprEvaluator runs conditions on github.com/expr-lang/expr. Undefined
// names evaluate to nil so a condition can test fields some payloads lack.
type exprEvaluator struct {
	engineConfig
}

// NewExprEvaluator returns the default condition engine.
func NewExprEvaluator(opts ...EngineOption) Evaluator {
	return &exprEvaluator{engineConfig: applyEngineOptions(opts)}
}

func (e *exprEvaluator) engineName() string { return "expr" }

func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *exprEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, emptyExpressionError("expr")
	}
	key := "expr:" + expression
	program, ok := cachedProgram[*exprvm.Program](e.cache, key)
	if !ok {
		options := []exprlang.Option{exprlang.AllowUndefinedVariables()}
		for _, name := range e.registry.Names() {
			fn := name
			options = append(options, exprlang.Function(fn, func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			}))
		}
		compiled, err := exprlang.Compile(expression, options...)
		if err != nil {
			return nil, compileError("expr", expression, err)
		}
		program = compiled
		storeProgram(e.cache, key, program)
	}
	return &exprRule{evaluator: e, program: program, expression: expression}, nil
}

type exprRule struct {
	evaluator  *exprEvaluator
	program    *exprvm.Program
	expression string
}

func (r *exprRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	vars := conditionVars(ctx, ctx.Payload)
	bindFunctions(vars, r.evaluator.registry)
	result, err := exprlang.Run(r.program, vars)
	if err != nil {
		return nil, evaluateError("expr", r.expression, ctx, err)
	}
	return result, nil
}
