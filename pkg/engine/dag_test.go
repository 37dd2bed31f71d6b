package engine

import (
	"strings"
	"testing"
)

func TestDependencyGraphLevels(t *testing.T) {
	g, err := NewDependencyGraph([]Unit{
		{Name: "network"},
		{Name: "subnet", DependsOn: []string{"network"}},
		{Name: "firewall", DependsOn: []string{"network", "firewall"}},
		{Name: "instance", DependsOn: []string{"subnet", "firewall"}},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	levels := g.Levels()
	want := [][]string{{"network"}, {"subnet", "firewall"}, {"instance"}}
	if len(levels) != len(want) {
		t.Fatalf("Expected %v, got %v", want, levels)
	}
	for i := range want {
		if strings.Join(levels[i], ",") != strings.Join(want[i], ",") {
			t.Errorf("Level %d: expected %v, got %v", i, want[i], levels[i])
		}
	}
}

func TestDependencyGraphCycle(t *testing.T) {
	g, err := NewDependencyGraph([]Unit{
		{Name: "a", DependsOn: []string{"b"}},
		{Name: "b", DependsOn: []string{"c"}},
		{Name: "c", DependsOn: []string{"a"}},
		{Name: "d"},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if got := formatCycle(g.Cycle("a")); got != "a -> b -> c -> a" {
		t.Errorf("Expected a -> b -> c -> a, got %s", got)
	}
	if g.Cycle("d") != nil {
		t.Error("Expected no cycle through d")
	}
	if levels := g.Levels(); len(levels) != 1 || levels[0][0] != "d" {
		t.Errorf("Expected only d to be placed, got %v", levels)
	}
}

func TestDependencyGraphDuplicate(t *testing.T) {
	_, err := NewDependencyGraph([]Unit{{Name: "a"}, {Name: "a"}})
	if !IsConfiguration(err) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

func TestDependencyGraphToDOT(t *testing.T) {
	g, _ := NewDependencyGraph([]Unit{
		{Name: ".group"},
		{Name: "vm", DependsOn: []string{".group"}},
	})

	dot := g.ToDOT()
	for _, want := range []string{
		"digraph Resources {",
		`".group" [style="dashed,rounded"]`,
		`".group" -> "vm"`,
		"cluster_level_1",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("Expected DOT output to contain %s, got:\n%s", want, dot)
		}
	}
}
