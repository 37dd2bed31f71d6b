package expr

import (
	"errors"
	"testing"
)

func evaluators() map[string]Evaluator {
	return map[string]Evaluator{
		"expr":     NewExprEvaluator(),
		"starlark": NewStarlarkEvaluator(0),
	}
}

func TestEvaluators(t *testing.T) {
	scope := map[string]any{
		"name": "web",
		"size": 3,
		"tags": []any{"a", "b"},
		"_":    map[string]any{"zone": "eu"},
	}

	tests := []struct {
		name       string
		expression string
		want       any
	}{
		{"comparison", `name == "web"`, true},
		{"arithmetic", `size * 2`, 6},
		{"membership", `"a" in tags`, true},
		{"undefined is nil", `missing == nil`, true},
		{"root scope", `_["zone"] == "eu"`, true},
	}

	for engine, ev := range evaluators() {
		for _, tt := range tests {
			t.Run(engine+"/"+tt.name, func(t *testing.T) {
				expression := tt.expression
				if engine == "starlark" {
					expression = starlarkSyntax(expression)
				}
				got, err := ev.Eval(expression, scope)
				if err != nil {
					t.Fatalf("Expected no error, got: %v", err)
				}
				if got != tt.want {
					t.Errorf("Expected %v (%T), got %v (%T)", tt.want, tt.want, got, got)
				}
			})
		}
	}
}

func starlarkSyntax(expression string) string {
	if expression == `missing == nil` {
		return `missing == None`
	}
	return expression
}

func TestEvalError(t *testing.T) {
	for engine, ev := range evaluators() {
		_, err := ev.Eval(`1 +`, nil)
		var evalErr *EvaluationError
		if !errors.As(err, &evalErr) {
			t.Errorf("%s: expected EvaluationError, got %v", engine, err)
		}
	}
}

func TestTest(t *testing.T) {
	ev := NewExprEvaluator()

	ok, err := Test(ev, "", nil)
	if err != nil || !ok {
		t.Errorf("Expected empty condition to pass, got %v, %v", ok, err)
	}

	ok, err = Test(ev, `size > 5`, map[string]any{"size": 3})
	if err != nil || ok {
		t.Errorf("Expected false, got %v, %v", ok, err)
	}

	ok, err = Test(ev, `name`, map[string]any{"name": "x"})
	if err != nil || !ok {
		t.Errorf("Expected non-empty string to be truthy, got %v, %v", ok, err)
	}
}

func TestTruthy(t *testing.T) {
	for _, v := range []any{nil, false, "", 0, 0.0, map[string]any{}, []any{}} {
		if Truthy(v) {
			t.Errorf("Expected %#v to be falsy", v)
		}
	}
	for _, v := range []any{true, "x", 1, 0.5, map[string]any{"a": 1}, []any{0}} {
		if !Truthy(v) {
			t.Errorf("Expected %#v to be truthy", v)
		}
	}
}

func TestExprHelpers(t *testing.T) {
	ev := NewExprEvaluator()

	got, err := ev.Eval(`default(missing, "fallback")`, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got != "fallback" {
		t.Errorf("Expected fallback, got %v", got)
	}

	got, _ = ev.Eval(`defined(name)`, map[string]any{"name": "x"})
	if got != true {
		t.Errorf("Expected true, got %v", got)
	}
}

func TestNew(t *testing.T) {
	if _, err := New(""); err != nil {
		t.Errorf("Expected default engine, got %v", err)
	}
	if _, err := New(EngineStarlark); err != nil {
		t.Errorf("Expected starlark engine, got %v", err)
	}
	if _, err := New("lua"); err == nil {
		t.Error("Expected error for unknown engine")
	}
}
