package properties

import (
	"testing"

	"github.com/openfroyo/tfsync/pkg/settings"
)

func TestExtractSyncKeys(t *testing.T) {
	s := mustSchema(t, widgetSchema, Options{})

	remote := map[string]any{
		"remote_name": "widget",
		"size":        3,
		"label":       "ignored",
		"network":     map[string]any{"zone": "us", "cidr": "10.0.0.0/8", "extra": true},
	}

	got, err := s.Extract(remote)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := map[string]any{
		"name":    "widget",
		"size":    3,
		"network": map[string]any{"zone": "us", "cidr": "10.0.0.0/8"},
	}
	if !settings.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	got["network"].(map[string]any)["zone"] = "changed"
	if settings.Get(remote, "network/zone", nil, true) != "us" {
		t.Error("Expected remote settings to be left untouched")
	}
}

func TestExtractFirstCandidate(t *testing.T) {
	s := mustSchema(t, widgetSchema, Options{})

	got, _ := s.Extract(map[string]any{"remote_size": 1, "size": 2})
	if got["size"] != 1 {
		t.Errorf("Expected first sync candidate, got %v", got["size"])
	}
}

func TestExtractRoundTrip(t *testing.T) {
	s := mustSchema(t, `
name:
  primary_key: true
size:
  type: number
tags:
  type: list
label:
  value: "{name}-label"
  sync: false
network:
  properties:
    zone:
      default: eu
    cidr: {}
`, Options{})

	args := map[string]any{
		"name":    "web",
		"size":    3,
		"tags":    []any{"a", "b"},
		"network": map[string]any{"cidr": "10.0.0.0/8"},
	}

	materialized, err := s.Materialize(args, MaterializeOptions{Defaults: true})
	if err != nil {
		t.Fatalf("Expected no error materializing, got: %v", err)
	}
	serialized, err := s.Serialize(materialized, false)
	if err != nil {
		t.Fatalf("Expected no error serializing, got: %v", err)
	}
	extracted, err := s.Extract(serialized)
	if err != nil {
		t.Fatalf("Expected no error extracting, got: %v", err)
	}

	s.Walk(func(alias string, p *Property) {
		if p.Sync.Disabled {
			return
		}
		want := settings.Get(materialized, alias, nil, true)
		got := settings.Get(extracted, alias, nil, true)
		if !settings.Equal(got, want) {
			t.Errorf("%s: expected %v, got %v", alias, want, got)
		}
	})
	if _, ok := extracted["label"]; ok {
		t.Error("Expected label to be skipped")
	}
}

const keySchema = `
project:
  primary_key: true
name:
  primary_key: true
zone:
  primary_key: true
  required: false
region:
  primary_key: true
  when: kind == "regional"
kind: {}
size: {}
network:
  properties:
    id:
      primary_key: true
      inherit: false
    zone:
      inherit: true
`

func TestPrimaryKey(t *testing.T) {
	s := mustSchema(t, keySchema, Options{})

	key, err := s.PrimaryKey(map[string]any{"name": "web 1", "name_": "web-1", "kind": "zonal"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if key.Complete() {
		t.Error("Expected incomplete key")
	}
	want := []string{"project", "network/id"}
	if len(key.Missing) != len(want) || key.Missing[0] != want[0] || key.Missing[1] != want[1] {
		t.Errorf("Expected missing %v, got %v", want, key.Missing)
	}
	if !settings.Equal(key.Values, map[string]any{"name": "web 1"}) {
		t.Errorf("Unexpected values %v", key.Values)
	}
	if !settings.Equal(key.Merged(), map[string]any{"name": "web 1", "name_": "web-1"}) {
		t.Errorf("Unexpected merged key %v", key.Merged())
	}
}

func TestPrimaryKeyWhen(t *testing.T) {
	s := mustSchema(t, keySchema, Options{})

	key, err := s.PrimaryKey(map[string]any{
		"project": "p", "name": "n", "kind": "regional",
		"network": map[string]any{"id": "net"},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(key.Missing) != 1 || key.Missing[0] != "region" {
		t.Errorf("Expected region to be required for regional objects, got %v", key.Missing)
	}
	if settings.Get(key.Values, "network/id", nil, true) != "net" {
		t.Errorf("Expected nested key component, got %v", key.Values)
	}
}

func TestHeritageAndRemote(t *testing.T) {
	s := mustSchema(t, keySchema+`
secret:
  sync: false
`, Options{})

	args := map[string]any{
		"project": "p",
		"name":    "n",
		"size":    2,
		"secret":  "s",
		"network": map[string]any{"id": "net", "zone": "eu"},
	}

	heritage := s.Heritage(args)
	want := map[string]any{"project": "p", "name": "n", "network": map[string]any{"zone": "eu"}}
	if !settings.Equal(heritage, want) {
		t.Errorf("Expected heritage %v, got %v", want, heritage)
	}

	remote := s.Remote(args)
	if _, ok := remote["secret"]; ok {
		t.Errorf("Expected secret to be excluded, got %v", remote)
	}
	if remote["size"] != 2 || settings.Get(remote, "network/id", nil, true) != "net" {
		t.Errorf("Expected synced values, got %v", remote)
	}
}
