// Package expr provides the expression evaluators used for `when`, `expr`
// and `onbeforesaving` fields. Expressions are evaluated against a scope of
// named variables; names missing from the scope evaluate to nil.
package expr

import (
	"fmt"
	"strings"
)

// Evaluator evaluates an expression against scope.
type Evaluator interface {
	Eval(expression string, scope map[string]any) (any, error)
}

// Func adapts a plain function to Evaluator.
type Func func(expression string, scope map[string]any) (any, error)

// Eval calls f.
func (f Func) Eval(expression string, scope map[string]any) (any, error) {
	return f(expression, scope)
}

// Engine names an evaluator backend.
type Engine string

const (
	EngineExpr     Engine = "expr"
	EngineStarlark Engine = "starlark"
)

// New returns the evaluator for engine. An empty engine selects expr.
func New(engine Engine) (Evaluator, error) {
	switch engine {
	case "", EngineExpr:
		return NewExprEvaluator(), nil
	case EngineStarlark:
		return NewStarlarkEvaluator(0), nil
	default:
		return nil, fmt.Errorf("unknown expression engine %q", engine)
	}
}

// EvaluationError wraps a failure to compile or run an expression.
type EvaluationError struct {
	Engine     Engine
	Expression string
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s: failed to evaluate %q: %v", e.Engine, e.Expression, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Test evaluates a condition. An empty expression is true.
func Test(ev Evaluator, expression string, scope map[string]any) (bool, error) {
	if strings.TrimSpace(expression) == "" {
		return true, nil
	}
	value, err := ev.Eval(expression, scope)
	if err != nil {
		return false, err
	}
	return Truthy(value), nil
}

// Truthy applies the usual falsiness rules: nil, false, zero numbers and
// empty strings or containers are false.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case map[string]any:
		return len(v) > 0
	case []any:
		return len(v) > 0
	}
	return true
}
