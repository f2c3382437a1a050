package petri

import (
	"errors"
	"strings"
	"testing"
)

func sampleGraph() Graph {
	return Graph{
		Nodes: []Node{
			{ID: "source", Type: TypePlace, Label: "source"},
			{ID: "t1", Type: TypeTransition, Label: "Register"},
			{ID: "sink", Type: TypePlace, Label: "sink"},
		},
		Links: []Link{
			{Source: "source", Target: "t1"},
			{Source: "t1", Target: "sink"},
		},
	}
}

func TestValidate(t *testing.T) {
	if err := sampleGraph().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		mut  func(g *Graph)
	}{
		{"duplicate id", func(g *Graph) { g.Nodes = append(g.Nodes, Node{ID: "t1", Type: TypeTransition}) }},
		{"unknown type", func(g *Graph) { g.Nodes[0].Type = "arc" }},
		{"empty id", func(g *Graph) { g.Nodes[1].ID = "" }},
		{"dangling source", func(g *Graph) { g.Links = append(g.Links, Link{Source: "nope", Target: "t1"}) }},
		{"dangling target", func(g *Graph) { g.Links = append(g.Links, Link{Source: "t1", Target: "nope"}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := sampleGraph()
			tt.mut(&g)
			if err := g.Validate(); !errors.Is(err, ErrInvalidGraph) {
				t.Errorf("expected ErrInvalidGraph, got %v", err)
			}
		})
	}
}

func TestDOT(t *testing.T) {
	dot := DOT(sampleGraph())

	want := `digraph PetriNet {
  rankdir=LR;
  node [shape=circle, style=filled, fillcolor=lightblue];
  "source" [label="source"];
  "sink" [label="sink"];
  node [shape=box, style=filled, fillcolor=lightgray];
  "t1" [label="Register"];
  "source" -> "t1";
  "t1" -> "sink";
}`
	if dot != want {
		t.Errorf("unexpected DOT output:\n%s\nwant:\n%s", dot, want)
	}
}

func TestDOTEscapesQuotes(t *testing.T) {
	g := Graph{Nodes: []Node{{ID: `p"1`, Type: TypePlace, Label: "say \"hi\"\nthere"}}}
	dot := DOT(g)

	if !strings.Contains(dot, `"p\"1" [label="say \"hi\"\nthere"];`) {
		t.Errorf("quotes not escaped:\n%s", dot)
	}
}
