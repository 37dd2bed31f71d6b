package properties

import (
	"strings"
	"testing"

	"github.com/openfroyo/tfsync/pkg/settings"
)

func mustDocument(t *testing.T, yaml string) *settings.Document {
	t.Helper()
	doc, err := settings.DecodeDocument([]byte(yaml))
	if err != nil {
		t.Fatalf("Expected valid YAML, got: %v", err)
	}
	return doc
}

func TestInheritable(t *testing.T) {
	doc := mustDocument(t, `
project:
  alias: proj
  use: project_id
  inherit: true
  sync: remote_project
size: {}
network:
  inherit: true
  properties:
    zone:
      inherit: true
    cidr: {}
unmarked:
  properties:
    id:
      inherit: true
empty:
  inherit: true
  properties:
    nothing: {}
`)

	got := Inheritable(doc)

	if keys := strings.Join(got.Keys(""), ","); keys != "proj,network" {
		t.Fatalf("Expected proj,network, got %s", keys)
	}

	project := got.Data["proj"].(map[string]any)
	if _, ok := project["alias"]; ok {
		t.Error("Expected alias to be dropped")
	}
	if _, ok := project["use"]; ok {
		t.Error("Expected use to be dropped")
	}
	if project["ignore"] != true || project["sync"] != false {
		t.Errorf("Expected inherited declaration to be ignored and not synced, got %v", project)
	}

	if keys := strings.Join(got.Keys("network/properties"), ","); keys != "zone" {
		t.Errorf("Expected only zone to be inherited, got %s", keys)
	}

	if _, ok := doc.Data["project"].(map[string]any)["ignore"]; ok {
		t.Error("Expected source declarations to be left untouched")
	}
}

func TestInheritableMergesUnderChild(t *testing.T) {
	parent := mustDocument(t, "project:\n  inherit: true\n  description: Project id\n")
	child := mustDocument(t, "name:\n  primary_key: true\nproject:\n  description: null\n")

	merged := Inheritable(parent).Merge(settings.Replace, child)
	DropNulls(merged)

	s, err := Parse(merged, Options{})
	if err != nil {
		t.Fatalf("Expected valid schema, got: %v", err)
	}
	p := s.Lookup("project")
	if p == nil || !p.Ignore || !p.Sync.Disabled {
		t.Fatalf("Expected inherited project, got %+v", p)
	}
	if p.Description != "" {
		t.Errorf("Expected null to cancel the inherited description, got %q", p.Description)
	}
	if keys := strings.Join(merged.Keys(""), ","); keys != "project,name" {
		t.Errorf("Expected inherited properties first, got %s", keys)
	}
}

func TestMarkInherited(t *testing.T) {
	doc := mustDocument(t, `
name: {}
zone:
  inherit: false
network:
  properties:
    id: {}
`)

	MarkInherited(doc, []string{"name", "zone", "network/id"}, true)

	if settings.Get(doc.Data, "name/inherit", nil, true) != true {
		t.Error("Expected name to be inherited")
	}
	if settings.Get(doc.Data, "name/primary_key", nil, true) != true {
		t.Error("Expected name to become a primary key")
	}
	if settings.Get(doc.Data, "zone/inherit", nil, true) != false {
		t.Error("Expected explicit inherit: false to be kept")
	}
	if settings.Get(doc.Data, "network/properties/id/inherit", nil, true) != true {
		t.Error("Expected nested leaf to be inherited")
	}
}

func TestAsVariables(t *testing.T) {
	doc := Inheritable(mustDocument(t, `
project:
  inherit: true
  computed: "google_project.{0}.id"
  description: Project id
zone:
  inherit: true
  type: list
`))

	AsVariables(doc)

	project := doc.Data["project"].(map[string]any)
	if _, ok := project["computed"]; ok {
		t.Error("Expected computed to be dropped")
	}
	if project["type"] != "string" {
		t.Errorf("Expected default string type, got %v", project["type"])
	}
	if _, ok := project["ignore"]; ok {
		t.Error("Expected described variables to be persisted")
	}

	zone := doc.Data["zone"].(map[string]any)
	if zone["type"] != "list" || zone["ignore"] != true {
		t.Errorf("Expected zone to keep its type and stay ignored, got %v", zone)
	}
}
