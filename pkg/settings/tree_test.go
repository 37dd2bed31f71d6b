package settings

import (
	"testing"
)

func sampleTree() map[string]any {
	return map[string]any{
		"a": map[string]any{
			"b": 1,
			"c": []any{
				map[string]any{"id": "x", "tags": []any{"t1", "t2"}},
				map[string]any{"id": "y", "tags": []any{"t3"}},
				map[string]any{"other": true},
			},
		},
		"with/slash": map[string]any{"k": "v"},
	}
}

func TestGet(t *testing.T) {
	tree := sampleTree()

	tests := []struct {
		name    string
		path    string
		def     any
		flatten bool
		want    any
	}{
		{"nested key", "a/b", nil, true, 1},
		{"missing key returns default", "a/missing", "def", true, "def"},
		{"sequence index", "a/c/0/id", nil, true, "x"},
		{"negative index", "a/c/-2/id", nil, true, "y"},
		{"index out of range", "a/c/7", "def", true, "def"},
		{"broadcast", "a/c/id", nil, true, []any{"x", "y"}},
		{"broadcast flatten", "a/c/tags", nil, true, []any{"t1", "t2", "t3"}},
		{"broadcast no flatten", "a/c/tags", nil, false, []any{[]any{"t1", "t2"}, []any{"t3"}}},
		{"broadcast nothing", "a/c/nope", "def", true, "def"},
		{"key containing slash", "with/slash/k", nil, true, "v"},
		{"scalar", "a/b/c", "def", true, "def"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Get(tree, tt.path, tt.def, tt.flatten)
			if !Equal(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPop(t *testing.T) {
	tree := map[string]any{
		"a": map[string]any{"b": map[string]any{"c": 1}},
		"d": 2,
	}

	value, rest := Pop(tree, "a/b/c", nil, true)
	if !Equal(value, 1) {
		t.Errorf("Expected 1, got %v", value)
	}
	if !Equal(rest, map[string]any{"d": 2}) {
		t.Errorf("Expected emptied parents to be pruned, got %v", rest)
	}

	value, _ = Pop(rest, "missing/x", "def", true)
	if value != "def" {
		t.Errorf("Expected default, got %v", value)
	}
}

func TestPopSequence(t *testing.T) {
	tree := []any{
		map[string]any{"id": "x", "keep": 1},
		map[string]any{"id": "y"},
	}

	value, rest := Pop(tree, "id", nil, true)
	if !Equal(value, []any{"x", "y"}) {
		t.Errorf("Expected [x y], got %v", value)
	}
	if !Equal(rest, []any{map[string]any{"keep": 1}}) {
		t.Errorf("Expected empty elements to be dropped, got %v", rest)
	}
}

func TestUpdate(t *testing.T) {
	tree := Update(nil, map[string]any{
		"a/b": 1,
		"c":   "x",
	})
	want := map[string]any{"a": map[string]any{"b": 1}, "c": "x"}
	if !Equal(tree, want) {
		t.Fatalf("Expected %v, got %v", want, tree)
	}

	list := []any{map[string]any{"n": 1}, map[string]any{"n": 2}}
	Update(list, map[string]any{"0/n": 10})
	if !Equal(list, []any{map[string]any{"n": 10}, map[string]any{"n": 2}}) {
		t.Errorf("Expected indexed update, got %v", list)
	}

	Update(list, map[string]any{"flag": true})
	for i, item := range list {
		if Get(item, "flag", nil, true) != true {
			t.Errorf("Expected broadcast update on element %d, got %v", i, item)
		}
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	tree := sampleTree()
	c := Clone(tree).(map[string]any)
	c["a"].(map[string]any)["b"] = 99

	if Get(tree, "a/b", nil, true) != 1 {
		t.Error("Expected clone to leave the original untouched")
	}
}

func TestIsEmpty(t *testing.T) {
	for _, v := range []any{nil, "", false, map[string]any{}, []any{}} {
		if !IsEmpty(v) {
			t.Errorf("Expected %#v to be empty", v)
		}
	}
	for _, v := range []any{0, "x", true, map[string]any{"a": nil}, []any{nil}} {
		if IsEmpty(v) {
			t.Errorf("Expected %#v to be non-empty", v)
		}
	}
}

func TestMapping(t *testing.T) {
	got := Mapping(sampleTree(), "a/b", "missing", "a/c/0/id")
	want := map[string]any{"a/b": 1, "a/c/0/id": "x"}
	if !Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
