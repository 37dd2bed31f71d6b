package settings

import (
	"errors"
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	args := map[string]any{
		"name": "web",
		"n":    7,
		"obj":  map[string]any{"zone": "eu", "list": []any{"a", "b"}},
		"_":    map[string]any{"root": "r"},
	}

	tests := []struct {
		spec       string
		positional []any
		want       string
	}{
		{"plain", nil, "plain"},
		{"{name}-{n}", nil, "web-7"},
		{"{{literal}}", nil, "{literal}"},
		{"{obj[zone]}/{obj.list[1]}", nil, "eu/b"},
		{"{_[root]}", nil, "r"},
		{"{0}.{name}", []any{"v"}, "v.web"},
		{"{}-{}", []any{"a", "b"}, "a-b"},
		{"{n:03d}", nil, "007"},
		{"{n:x}", nil, "7"},
		{"{name:>5}", nil, "  web"},
		{"{name:*^7}", nil, "**web**"},
		{"{n:.2f}", nil, "7.00"},
		{"{name!r}", nil, `"web"`},
		{"{obj[list]}", nil, `["a","b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := Format(tt.spec, args, tt.positional...)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFormatMissingKey(t *testing.T) {
	_, err := Format("{a}/{missing}", map[string]any{"a": 1})

	var ke *KeyError
	if !errors.As(err, &ke) {
		t.Fatalf("Expected KeyError, got %v", err)
	}
	if ke.Field() != "missing" {
		t.Errorf("Expected field 'missing', got %q", ke.Field())
	}
}

func TestFormatSyntaxErrors(t *testing.T) {
	for _, spec := range []string{"{unclosed", "stray}"} {
		_, err := Format(spec, nil)
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Errorf("Expected FormatError for %q, got %v", spec, err)
		}
	}
}

func TestFormatMapAnnotatesPath(t *testing.T) {
	spec := map[string]any{
		"ok":   "{a}",
		"deep": map[string]any{"list": []any{"fine", "{nope}"}},
	}

	_, err := FormatMap(spec, map[string]any{"a": 1})

	var ke *KeyError
	if !errors.As(err, &ke) {
		t.Fatalf("Expected KeyError, got %v", err)
	}
	want := []string{"deep", "list", "1", "nope"}
	if len(ke.Path) != len(want) {
		t.Fatalf("Expected path %v, got %v", want, ke.Path)
	}
	for i := range want {
		if ke.Path[i] != want[i] {
			t.Errorf("Expected path %v, got %v", want, ke.Path)
		}
	}
}

func TestFormatMapKeepsNonStrings(t *testing.T) {
	got, err := FormatMap(map[string]any{"n": 1, "b": true, "s": "{x}"}, map[string]any{"x": "y"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !Equal(got, map[string]any{"n": 1, "b": true, "s": "y"}) {
		t.Errorf("Unexpected result %v", got)
	}
}

func TestFields(t *testing.T) {
	tests := []struct {
		spec string
		want []string
	}{
		{"locals.tf.json", nil},
		{"{project}/{network[name]}/main.tf.json", []string{"project", "network/name"}},
		{"{{literal}}/{zone:>8}/{0}/{}", []string{"zone"}},
		{"{a.b!r}", []string{"a/b"}},
	}

	for _, tt := range tests {
		got := Fields(tt.spec)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("Fields(%q): expected %v, got %v", tt.spec, tt.want, got)
		}
	}
}
