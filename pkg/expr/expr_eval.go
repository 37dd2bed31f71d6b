package expr

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEvaluator evaluates expressions with github.com/expr-lang/expr.
// Compiled programs are cached by expression text.
type ExprEvaluator struct {
	programs sync.Map
}

// NewExprEvaluator returns an ExprEvaluator.
func NewExprEvaluator() *ExprEvaluator {
	return &ExprEvaluator{}
}

// Eval compiles (once) and runs expression against scope.
func (e *ExprEvaluator) Eval(expression string, scope map[string]any) (any, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, &EvaluationError{Engine: EngineExpr, Expression: expression, Err: fmt.Errorf("expression must not be empty")}
	}

	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}

	env := make(map[string]any, len(scope))
	for key, value := range scope {
		env[key] = value
	}

	result, err := exprlang.Run(program, env)
	if err != nil {
		return nil, &EvaluationError{Engine: EngineExpr, Expression: expression, Err: err}
	}
	return result, nil
}

func (e *ExprEvaluator) loadOrCompile(expression string) (*exprvm.Program, error) {
	if cached, ok := e.programs.Load(expression); ok {
		return cached.(*exprvm.Program), nil
	}

	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range helperNames() {
		options = append(options, exprlang.Function(name, helpers[name]))
	}

	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, &EvaluationError{Engine: EngineExpr, Expression: expression, Err: err}
	}

	e.programs.Store(expression, program)
	return program, nil
}

// helpers are extra functions available to every expression.
var helpers = map[string]func(params ...any) (any, error){
	"default": func(params ...any) (any, error) {
		if len(params) != 2 {
			return nil, fmt.Errorf("default expects 2 arguments, got %d", len(params))
		}
		if params[0] == nil {
			return params[1], nil
		}
		return params[0], nil
	},
	"defined": func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("defined expects 1 argument, got %d", len(params))
		}
		return params[0] != nil, nil
	},
	"str": func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("str expects 1 argument, got %d", len(params))
		}
		if params[0] == nil {
			return "", nil
		}
		return fmt.Sprint(params[0]), nil
	},
}

func helperNames() []string {
	names := make([]string, 0, len(helpers))
	for name := range helpers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
