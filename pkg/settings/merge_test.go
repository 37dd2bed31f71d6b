package settings

import "testing"

func TestMergeMappings(t *testing.T) {
	dst := map[string]any{"a": map[string]any{"x": 1, "y": 2}, "keep": "k"}
	src := map[string]any{"a": map[string]any{"y": 3, "z": 4}, "keep": nil}

	got := Merge(dst, Replace, src)
	want := map[string]any{"a": map[string]any{"x": 1, "y": 3, "z": 4}, "keep": nil}
	if !Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestMergeSequences(t *testing.T) {
	tests := []struct {
		name string
		dst  any
		src  any
		mode Mode
		want any
	}{
		{"replace", []any{1, 2}, []any{3}, Replace, []any{3}},
		{"extend dedups", []any{1, 2}, []any{2, 3, 3}, Extend, []any{1, 2, 3}},
		{"extend mixed numbers", []any{1}, []any{1.0, 2}, Extend, []any{1, 2}},
		{"mapping indexes sequence", []any{map[string]any{"a": 1}, 2}, map[string]any{"0": map[string]any{"b": 2}}, Replace, []any{map[string]any{"a": 1, "b": 2}, 2}},
		{"mapping replaces sequence", []any{1}, map[string]any{"k": 1}, Replace, map[string]any{"k": 1}},
		{"mapping appended to sequence", []any{1}, map[string]any{"k": 1}, Extend, []any{1, map[string]any{"k": 1}}},
		{"scalar replaces", map[string]any{"a": 1}, "x", Replace, "x"},
		{"nil source skipped", []any{1}, nil, Replace, []any{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.dst, tt.mode, tt.src)
			if !Equal(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMergeCloneDoesNotMutateSources(t *testing.T) {
	a := map[string]any{"list": []any{1, 2}, "m": map[string]any{"k": "v"}}
	b := map[string]any{"list": []any{3}, "m": map[string]any{"k2": "v2"}}

	result := Merge(map[string]any{}, Extend, a, b).(map[string]any)
	result["m"].(map[string]any)["k"] = "changed"
	result["list"] = append(result["list"].([]any), 4)

	if !Equal(a, map[string]any{"list": []any{1, 2}, "m": map[string]any{"k": "v"}}) {
		t.Errorf("Expected first source untouched, got %v", a)
	}
	if !Equal(b, map[string]any{"list": []any{3}, "m": map[string]any{"k2": "v2"}}) {
		t.Errorf("Expected second source untouched, got %v", b)
	}
}

func TestMergeGetDistributes(t *testing.T) {
	a := map[string]any{"x": map[string]any{"p": 1, "q": []any{"a"}}}
	b := map[string]any{"x": map[string]any{"q": []any{"b"}, "r": 2}}

	merged := Merge(map[string]any{}, Replace, a, b)
	manual := Merge(Clone(Get(a, "x", nil, true)), Replace, Get(b, "x", nil, true))

	if !Equal(Get(merged, "x", nil, true), manual) {
		t.Errorf("Expected %v, got %v", manual, Get(merged, "x", nil, true))
	}
}

func TestMergeInPlaceShares(t *testing.T) {
	inner := map[string]any{"k": "v"}
	result := Merge(nil, InPlace, map[string]any{"inner": inner}).(map[string]any)
	if result["inner"].(map[string]any)["k"] != "v" {
		t.Fatalf("Expected merged value, got %v", result)
	}
}

func TestMergeMapsNilDestination(t *testing.T) {
	got := MergeMaps(nil, Replace, map[string]any{"a": 1}, nil, map[string]any{"b": 2})
	if !Equal(got, map[string]any{"a": 1, "b": 2}) {
		t.Errorf("Expected merged mapping, got %v", got)
	}
}
