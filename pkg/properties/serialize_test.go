package properties

import (
	"errors"
	"testing"

	"github.com/openfroyo/tfsync/pkg/settings"
)

func TestSerializeLists(t *testing.T) {
	s := mustSchema(t, "tags:\n  type: list\n", Options{})

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"json string decoded", `["a","b"]`, []any{"a", "b"}},
		{"scalar boxed", "x", []any{"x"}},
		{"list kept", []any{1, 2}, []any{1, 2}},
		{"empty dropped", []any{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := s.Serialize(map[string]any{"tags": tt.value}, false)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			got := settings.Get(out, "tags", nil, true)
			if !settings.Equal(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSerializeComputedReference(t *testing.T) {
	s := mustSchema(t, `
instance:
  computed: "aws_instance.{0}.id"
`, Options{})

	out, err := s.Serialize(map[string]any{"instance": "web"}, false)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got := settings.Get(out, "instance", nil, true); got != "${aws_instance.web.id}" {
		t.Errorf("Expected reference, got %v", got)
	}
}

func TestSerializeRequired(t *testing.T) {
	s := mustSchema(t, `
name:
  required: true
optional: {}
`, Options{})

	_, err := s.Serialize(map[string]any{}, true)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if ve.Alias != "name" {
		t.Errorf("Expected alias name, got %s", ve.Alias)
	}

	if _, err := s.Serialize(map[string]any{}, false); err != nil {
		t.Errorf("Expected no error without defaults, got: %v", err)
	}
}

func TestSerializeKeys(t *testing.T) {
	s := mustSchema(t, `
name:
  alias: n
zone:
  use: placement/zone
secret:
  ignore: true
network:
  properties:
    cidr: {}
`, Options{})

	out, err := s.Serialize(map[string]any{
		"n":       "web",
		"zone":    "eu",
		"secret":  "s3cr3t",
		"network": map[string]any{"cidr": "10.0.0.0/8"},
	}, false)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := map[string]any{
		"name":      "web",
		"placement": map[string]any{"zone": "eu"},
		"network":   map[string]any{"cidr": "10.0.0.0/8"},
	}
	if !settings.Equal(out, want) {
		t.Errorf("Expected %v, got %v", want, out)
	}
}

func TestSerializeRootKey(t *testing.T) {
	s := mustSchema(t, `
body:
  use: "."
`, Options{})

	out, err := s.Serialize(map[string]any{"body": map[string]any{"k": "v"}}, false)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !settings.Equal(out, map[string]any{"k": "v"}) {
		t.Errorf("Expected root replacement, got %v", out)
	}
}

func TestSerializeDefaults(t *testing.T) {
	s := mustSchema(t, widgetSchema, Options{})

	out, err := s.Serialize(map[string]any{}, true)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if settings.Get(out, "name", nil, true) != "widget" {
		t.Errorf("Expected default name, got %v", out)
	}
	if settings.Get(out, "network/zone", nil, true) != "eu" {
		t.Errorf("Expected default zone, got %v", out)
	}
}

func TestSerializeVariables(t *testing.T) {
	s := mustSchema(t, `
region:
  type: string
  description: Deployment region
  default: eu
empty: {}
nullable:
  nullable: true
`, Options{Variables: true})

	out, err := s.Serialize(map[string]any{}, true)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := map[string]any{
		"region": map[string]any{
			"default":     "eu",
			"description": "Deployment region",
			"type":        "string",
		},
		"nullable": map[string]any{"default": nil},
	}
	if !settings.Equal(out, want) {
		t.Errorf("Expected %v, got %v", want, out)
	}
}

func TestSerializeDoesNotModifyArgs(t *testing.T) {
	s := mustSchema(t, widgetSchema, Options{})
	args := map[string]any{"tags": "x"}

	if _, err := s.Serialize(args, true); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !settings.Equal(args, map[string]any{"tags": "x"}) {
		t.Errorf("Expected args untouched, got %v", args)
	}
}
