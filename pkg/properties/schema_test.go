package properties

import (
	"errors"
	"testing"

	"github.com/openfroyo/tfsync/pkg/expr"
	"github.com/openfroyo/tfsync/pkg/settings"
)

func mustSchema(t *testing.T, yaml string, opts Options) *Schema {
	t.Helper()
	doc, err := settings.DecodeDocument([]byte(yaml))
	if err != nil {
		t.Fatalf("Expected valid YAML, got: %v", err)
	}
	s, err := Parse(doc, opts)
	if err != nil {
		t.Fatalf("Expected valid schema, got: %v", err)
	}
	return s
}

const widgetSchema = `
name:
  primary_key: true
  default: widget
  sync: remote_name
size:
  type: number
  sync: [remote_size, size]
label:
  value: "{name}-label"
  sync: false
tags:
  type: list
network:
  properties:
    zone:
      default: eu
    cidr: {}
`

func TestParseOrderAndKinds(t *testing.T) {
	s := mustSchema(t, widgetSchema, Options{})

	var keys []string
	for _, p := range s.Properties() {
		keys = append(keys, p.Key)
	}
	want := []string{"name", "size", "label", "tags", "network"}
	if len(keys) != len(want) {
		t.Fatalf("Expected %v, got %v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, keys)
		}
	}

	if !s.Lookup("network").IsGroup() {
		t.Error("Expected network to be a group")
	}
	if s.Lookup("network/zone") == nil {
		t.Error("Expected nested leaf network/zone")
	}
	if !s.Lookup("label").Sync.Disabled {
		t.Error("Expected label sync to be disabled")
	}
	if got := s.Lookup("size").Sync.Keys; len(got) != 2 || got[0] != "remote_size" {
		t.Errorf("Expected sync candidates, got %v", got)
	}
	if !s.Lookup("name").Inherited() {
		t.Error("Expected primary keys to be inherited by default")
	}
}

func TestParseRejectsLeafAndGroup(t *testing.T) {
	doc, _ := settings.DecodeDocument([]byte("bad:\n  format: x\n  properties:\n    a: {}\n"))
	_, err := Parse(doc, Options{})

	var pe *PathError
	if !errors.As(err, &pe) || pe.Path[0] != "bad" {
		t.Errorf("Expected PathError for bad, got %v", err)
	}
}

func TestParseRejectsBadFieldType(t *testing.T) {
	doc, _ := settings.DecodeDocument([]byte("a:\n  primary_key: yes-please\n"))
	if _, err := Parse(doc, Options{}); err == nil {
		t.Error("Expected error for non-boolean primary_key")
	}
}

func TestWalkUsesAliasPaths(t *testing.T) {
	s := mustSchema(t, `
outer:
  alias: o
  properties:
    inner:
      alias: i
`, Options{})

	var paths []string
	s.Walk(func(alias string, _ *Property) { paths = append(paths, alias) })
	if len(paths) != 1 || paths[0] != "o/i" {
		t.Errorf("Expected [o/i], got %v", paths)
	}
}

func TestStarlarkEvaluatorOption(t *testing.T) {
	s := mustSchema(t, `
name: {}
upper:
  when: name != None
  expr: name.upper()
`, Options{Evaluator: expr.NewStarlarkEvaluator(0)})

	got, err := s.Materialize(map[string]any{"name": "web", "upper": "x"}, MaterializeOptions{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got["upper"] != "WEB" {
		t.Errorf("Expected WEB, got %v", got["upper"])
	}
}

func TestLookup(t *testing.T) {
	s := mustSchema(t, `
network:
  properties:
    zone: {}
    subnet:
      alias: sub
      properties:
        cidr: {}
name: {}
`, Options{})

	tests := []struct {
		alias string
		group bool
		found bool
	}{
		{"network", true, true},
		{"network/zone", false, true},
		{"network/sub", true, true},
		{"network/sub/cidr", false, true},
		{"network/subnet", false, false},
		{"name", false, true},
		{"name/zone", false, false},
		{"missing", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			p := s.Lookup(tt.alias)
			if (p != nil) != tt.found {
				t.Fatalf("Expected found=%v, got %v", tt.found, p)
			}
			if p != nil && p.IsGroup() != tt.group {
				t.Errorf("Expected group=%v, got %v", tt.group, p.IsGroup())
			}
		})
	}
}
