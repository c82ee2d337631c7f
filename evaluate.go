package ambient

import (
	"fmt"
	"time"
)

type condition struct {
	engine string
	expr   string
	event  string
	rule   CompiledRule
}

func compileCondition(cfg subscribeConfig, event string) (*condition, error) {
	evaluator := cfg.evaluator
	if evaluator == nil {
		evaluator = NewExprEvaluator(EngineProgramCache(cfg.cache), EngineFunctions(cfg.functions))
	}
	engine := evaluatorEngineName(evaluator)
	rule, err := evaluator.Compile(cfg.condition, DeclareFields(cfg.fields...))
	if err != nil {
		return nil, annotateEvaluationError(err, EvaluationError{
			Engine: engine,
			Expr:   cfg.condition,
			Phase:  PhaseCompile,
			Event:  event,
		})
	}
	return &condition{
		engine: engine,
		expr:   cfg.condition,
		event:  event,
		rule:   rule,
	}, nil
}

// matches reports whether evt satisfies the condition. Evaluation failures
// and non-boolean results are logged and treated as false.
func (c *condition) matches(evt Event, logger EventLogger) bool {
	ctx := RuleContext{Event: evt.Type, Payload: evt.Payload}
	if ctx.Event == "" {
		ctx.Event = c.event
	}
	if !evt.Time.IsZero() {
		at := evt.Time
		ctx.Now = &at
	}
	ctx = ctx.withDefaults()

	start := time.Now()
	value, err := c.rule.Evaluate(ctx)
	matched := false
	if err == nil {
		b, ok := value.(bool)
		if !ok {
			err = evaluateError(c.engine, c.expr, ctx, fmt.Errorf("condition returned %T, want bool", value))
		}
		matched = b
	}
	logger.Log(LogEvent{
		Op:       "evaluate",
		Event:    ctx.eventLabel(),
		Engine:   c.engine,
		Expr:     c.expr,
		Duration: time.Since(start),
		Err:      err,
	})
	return err == nil && matched
}

// EvaluateCondition runs expr once against evt using evaluator, or the expr
// engine when evaluator is nil.
func EvaluateCondition(evaluator Evaluator, expr string, evt Event) (bool, error) {
	if expr == "" {
		return false, ErrEmptyExpression
	}
	cond, err := compileCondition(subscribeConfig{condition: expr, evaluator: evaluator}, evt.Type)
	if err != nil {
		return false, err
	}
	var failure error
	matched := cond.matches(evt, EventLoggerFunc(func(event LogEvent) {
		failure = event.Err
	}))
	return matched, failure
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(interface{ engineName() string }); ok {
		return named.engineName()
	}
	return "custom"
}
