package ambient

import (
	"errors"
	"fmt"
	"strings"
)

// Phases of a condition's life in which it can fail.
const (
	PhaseCompile  = "compile"
	PhaseEvaluate = "evaluate"
)

// EvaluationError reports a condition that failed to compile when a
// subscription was created, or failed while filtering an event.
type EvaluationError struct {
	Engine string
	Expr   string
	Phase  string
	// Event is the subscribed event name.
	Event string
	// Payload is the kind of payload being filtered ("map", "struct",
	// "number", ...). Empty for compile failures.
	Payload string
	Err     error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "ambient: %s condition %q", e.Engine, e.Expr)
	if e.Phase == PhaseCompile {
		b.WriteString(" does not compile")
	} else {
		b.WriteString(" failed")
	}
	if e.Event != "" {
		fmt.Fprintf(&b, " on %s", e.Event)
	}
	if e.Payload != "" {
		fmt.Fprintf(&b, " with %s payload", e.Payload)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func emptyExpressionError(engine string) error {
	return &EvaluationError{Engine: engine, Phase: PhaseCompile, Err: ErrEmptyExpression}
}

func compileError(engine, expr string, err error) error {
	return annotateEvaluationError(err, EvaluationError{Engine: engine, Expr: expr, Phase: PhaseCompile})
}

// evaluateError reports a runtime failure against the event in ctx. A compile
// failure surfacing at run time (CEL compiles per payload shape) keeps its
// phase.
func evaluateError(engine, expr string, ctx RuleContext, err error) error {
	return annotateEvaluationError(err, EvaluationError{
		Engine:  engine,
		Expr:    expr,
		Phase:   PhaseEvaluate,
		Event:   ctx.eventLabel(),
		Payload: payloadKind(ctx.Payload),
	})
}

// annotateEvaluationError wraps err, or fills the blank fields of an
// EvaluationError already in its chain from meta.
func annotateEvaluationError(err error, meta EvaluationError) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		meta.Err = err
		return &meta
	}
	if evalErr.Engine == "" {
		evalErr.Engine = meta.Engine
	}
	if evalErr.Expr == "" {
		evalErr.Expr = meta.Expr
	}
	if evalErr.Phase == "" {
		evalErr.Phase = meta.Phase
	}
	if evalErr.Event == "" {
		evalErr.Event = meta.Event
	}
	if evalErr.Payload == "" {
		evalErr.Payload = meta.Payload
	}
	return evalErr
}
