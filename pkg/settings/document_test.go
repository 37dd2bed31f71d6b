package settings

import (
	"os"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
)

const orderedYAML = `
properties:
  zeta:
    primary_key: true
  alpha:
    properties:
      second: {}
      first: {}
  middle: {}
numbers:
  1: one
  2: two
`

func TestDecodeDocumentKeepsOrder(t *testing.T) {
	doc, err := DecodeDocument([]byte(orderedYAML))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := []string{"zeta", "alpha", "middle"}
	if got := doc.Keys("properties"); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, got)
	}

	sub := doc.Sub("properties/alpha/properties")
	if got := sub.Keys(""); strings.Join(got, ",") != "second,first" {
		t.Errorf("Expected [second first], got %v", got)
	}

	if Get(doc.Data, "numbers/1", nil, true) != "one" {
		t.Errorf("Expected integer keys to be normalized to strings, got %v", doc.Data["numbers"])
	}
}

func TestDocumentMergeOrder(t *testing.T) {
	parent, _ := DecodeDocument([]byte("properties:\n  a: {}\n  b: {}\n"))
	child, _ := DecodeDocument([]byte("properties:\n  c: {}\n  a: {type: list}\n"))

	parent.Merge(Extend, child)

	if got := strings.Join(parent.Keys("properties"), ","); got != "a,b,c" {
		t.Errorf("Expected a,b,c, got %s", got)
	}
	if Get(parent.Data, "properties/a/type", nil, true) != "list" {
		t.Errorf("Expected child value to override, got %v", parent.Data)
	}
}

func TestLoadAndDump(t *testing.T) {
	fs := memfs.New()

	data, err := Load(fs, "missing.yaml")
	if err != nil || len(data) != 0 {
		t.Fatalf("Expected empty mapping for missing file, got %v, %v", data, err)
	}

	if _, err := LoadDocument(fs, "missing.yaml"); !os.IsNotExist(err) {
		t.Errorf("Expected not-exist error, got %v", err)
	}

	tree := map[string]any{"locals": map[string]any{"b": 2, "a": []any{"x"}}}
	for _, name := range []string{"dir/out.tf.json", "dir/out.yaml"} {
		if err := Dump(fs, name, tree); err != nil {
			t.Fatalf("Expected no error dumping %s, got: %v", name, err)
		}
		loaded, err := Load(fs, name)
		if err != nil {
			t.Fatalf("Expected no error loading %s, got: %v", name, err)
		}
		if !Equal(loaded, tree) {
			t.Errorf("Expected %v, got %v", tree, loaded)
		}
	}

	out, _ := Marshal("x.json", tree)
	if !strings.Contains(string(out), "\n  \"locals\"") {
		t.Errorf("Expected two-space indented JSON, got %s", out)
	}
}

func TestUnmarshalAll(t *testing.T) {
	docs, err := UnmarshalAll(strings.NewReader("a: 1\n---\n- x\n- y\n"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Expected 2 documents, got %d", len(docs))
	}
	if !Equal(docs[1], []any{"x", "y"}) {
		t.Errorf("Unexpected second document %v", docs[1])
	}
}
