package settings

import "testing"

func TestMatch(t *testing.T) {
	object := map[string]any{
		"name": "web-01",
		"zone": "eu",
		"tags": []any{"a", "b"},
		"size": 2,
	}

	tests := []struct {
		name      string
		value     any
		pattern   any
		literally bool
		def       bool
		want      bool
	}{
		{"equal scalars", "x", "x", true, false, true},
		{"equal numbers across types", 2, 2.0, true, false, true},
		{"nil value returns default true", nil, "anything", false, true, true},
		{"nil value returns default false", nil, "anything", false, false, false},
		{"mapping all keys", object, map[string]any{"name": "web-01", "zone": "eu"}, true, false, true},
		{"mapping one key differs", object, map[string]any{"name": "web-01", "zone": "us"}, true, false, false},
		{"mapping against scalar", "x", map[string]any{"name": "x"}, true, false, false},
		{"sequence is OR", "eu", []any{"us", "eu"}, true, false, true},
		{"sequence none", "ap", []any{"us", "eu"}, true, false, false},
		{"glob", object, map[string]any{"name": "web-*"}, false, false, true},
		{"glob disabled literally", object, map[string]any{"name": "web-*"}, true, false, false},
		{"glob on number", object, map[string]any{"size": "[12]"}, false, false, true},
		{"not inverts", object, map[string]any{"$not": map[string]any{"zone": "eu"}}, true, false, false},
		{"not passes", object, map[string]any{"$not": map[string]any{"zone": "us"}}, true, false, true},
		{"missing key uses default", object, map[string]any{"absent": "x"}, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.value, tt.pattern, tt.literally, tt.def); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMatchSelfLiterally(t *testing.T) {
	for _, v := range []any{"s", 1, 2.5, true, false} {
		if !Match(v, v, true, false) {
			t.Errorf("Expected %v to match itself", v)
		}
	}
}

func TestString(t *testing.T) {
	tests := map[any]string{
		nil:  "",
		"x":  "x",
		true: "true",
		3:    "3",
		3.0:  "3",
		2.5:  "2.5",
	}
	for in, want := range tests {
		if got := String(in); got != want {
			t.Errorf("String(%v): expected %q, got %q", in, want, got)
		}
	}
}
