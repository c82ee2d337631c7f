package ambient

import (
	"reflect"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// celEvaluator runs conditions on github.com/google/cel-go. CEL checks
// names against declared variables, so payload fields are declared as dyn
// either up front (DeclareFields) or per payload shape on first use.
type celEvaluator struct {
	engineConfig
}

// NewCELEvaluator returns a CEL condition engine.
func NewCELEvaluator(opts ...EngineOption) Evaluator {
	return &celEvaluator{engineConfig: applyEngineOptions(opts)}
}

func (e *celEvaluator) engineName() string { return "cel" }

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

// Compile parses expression and, when fields are declared, type-checks it.
// Without declared fields the checked program is built per payload shape.
func (e *celEvaluator) Compile(expression string, opts ...CompileOption) (CompiledRule, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, emptyExpressionError("cel")
	}
	cfg := applyCompileOptions(opts)
	rule := &celRule{evaluator: e, expression: expression}
	if len(cfg.fields) > 0 {
		program, err := e.program(expression, cfg.fields)
		if err != nil {
			return nil, err
		}
		rule.declared = program
		return rule, nil
	}
	env, err := e.env(nil)
	if err != nil {
		return nil, compileError("cel", expression, err)
	}
	if _, issues := env.Parse(expression); issues != nil && issues.Err() != nil {
		return nil, compileError("cel", expression, issues.Err())
	}
	return rule, nil
}

func (e *celEvaluator) program(expression string, fields []string) (celgo.Program, error) {
	key := "cel:" + strings.Join(fields, ",") + ":" + expression
	if program, ok := cachedProgram[celgo.Program](e.cache, key); ok {
		return program, nil
	}
	env, err := e.env(fields)
	if err != nil {
		return nil, compileError("cel", expression, err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, compileError("cel", expression, issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, compileError("cel", expression, err)
	}
	storeProgram(e.cache, key, program)
	return program, nil
}

func (e *celEvaluator) env(fields []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("event", celgo.StringType),
		celgo.Variable("payload", celgo.DynType),
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call", celgo.Overload(
			"call_dyn",
			[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
			celgo.DynType,
			celgo.BinaryBinding(e.callBinding()),
		)))
	}
	for _, field := range fields {
		opts = append(opts, celgo.Variable(field, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

type celRule struct {
	evaluator  *celEvaluator
	expression string
	declared   celgo.Program
}

func (r *celRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	vars := conditionVars(ctx, plainPayload(ctx.Payload))
	program := r.declared
	if program == nil {
		compiled, err := r.evaluator.program(r.expression, fieldNames(vars))
		if err != nil {
			return nil, evaluateError("cel", r.expression, ctx, err)
		}
		program = compiled
	}
	out, _, err := program.Eval(vars)
	if err != nil {
		return nil, evaluateError("cel", r.expression, ctx, err)
	}
	return out.Value(), nil
}

// callBinding backs call(name, [args...]) for registry functions.
func (e *celEvaluator) callBinding() func(ref.Val, ref.Val) ref.Val {
	return func(nameVal, argsVal ref.Val) ref.Val {
		name, ok := nameVal.Value().(string)
		if !ok {
			return types.NewErr("ambient: call name must be string")
		}
		native, err := argsVal.ConvertToNative(reflect.TypeOf([]any{}))
		if err != nil {
			return types.NewErr("ambient: call arguments must be a list: %v", err)
		}
		result, err := e.registry.Call(name, native.([]any)...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
