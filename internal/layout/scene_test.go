package layout

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AaronLay10/SemanticZoom/internal/petri"
	"github.com/AaronLay10/SemanticZoom/internal/surface"
)

const graphvizOutput = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<!DOCTYPE svg PUBLIC "-//W3C//DTD SVG 1.1//EN"
 "http://www.w3.org/Graphics/SVG/1.1/DTD/svg11.dtd">
<!-- Generated by graphviz version 2.43.0 -->
<svg width="170pt" height="44pt"
 viewBox="0.00 0.00 170.00 44.00" xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink">
<g id="graph0" class="graph" transform="scale(1 1) rotate(0) translate(4 40)">
<title>PetriNet</title>
<!-- p1 -->
<g id="node1" class="node">
<title>p1</title>
<ellipse fill="lightblue" stroke="black" cx="18" cy="-18" rx="18" ry="18"/>
<text text-anchor="middle" x="18" y="-14.3" font-family="Times,serif" font-size="14.00">start &amp; go</text>
</g>
<!-- t1 -->
<g id="node2" class="node">
<title>t1</title>
<a xlink:href="#t1">
<polygon fill="lightgray" stroke="black" points="162,-36 108,-36 108,0 162,0 162,-36"/>
</a>
</g>
</g>
</svg>
`

func TestParseScene(t *testing.T) {
	scene, err := ParseScene(strings.NewReader(graphvizOutput))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := surface.Rect{Width: 170, Height: 44}
	if scene.Bounds != want {
		t.Errorf("bounds: got %+v, want %+v", scene.Bounds, want)
	}
	if scene.Defs != nil {
		t.Error("expected no defs")
	}
	if scene.Graph == nil || !scene.Graph.HasClass("graph") {
		t.Fatal("expected graph group")
	}
	if n := scene.Graph.Count(surface.ByClass("node")); n != 2 {
		t.Errorf("expected 2 nodes, got %d", n)
	}

	text := scene.Graph.Find(surface.ByTag("text"))
	if text == nil || text.Text != "start & go" {
		t.Errorf("unexpected text %+v", text)
	}

	link := scene.Graph.Find(surface.ByTag("a"))
	if href, _ := link.Get("xlink:href"); href != "#t1" {
		t.Errorf("expected xlink:href to survive, got %q", href)
	}
	if !strings.Contains(scene.Graph.Markup(), `xlink:href="#t1"`) {
		t.Error("expected namespaced attribute in markup")
	}
}

func TestParseSceneWithDefsAndNoViewBox(t *testing.T) {
	doc := `<svg xmlns="http://www.w3.org/2000/svg" width="120pt" height="80pt">
<defs><marker id="arrow"/></defs>
<g class="graph"><rect width="1" height="1"/></g>
</svg>`
	scene, err := ParseScene(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if scene.Defs == nil || scene.Defs.Find(surface.ByTag("marker")) == nil {
		t.Error("expected defs with marker")
	}
	if scene.Bounds != (surface.Rect{Width: 120, Height: 80}) {
		t.Errorf("unexpected bounds %+v", scene.Bounds)
	}
}

func TestParseSceneErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not svg", `<html><g class="graph"/></html>`},
		{"no graph", `<svg viewBox="0 0 1 1"><g class="other"/></svg>`},
		{"bad viewBox", `<svg viewBox="0 0 1"><g class="graph"/></svg>`},
		{"no size", `<svg><g class="graph"/></svg>`},
		{"truncated", `<svg viewBox="0 0 1 1"><g class="graph">`},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseScene(strings.NewReader(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}

	_, err := ParseScene(strings.NewReader(`<svg viewBox="0 0 1 1"><g/></svg>`))
	if !errors.Is(err, ErrNoGraph) {
		t.Errorf("expected ErrNoGraph, got %v", err)
	}
}

func TestGraphvizMissingBinary(t *testing.T) {
	g := NewGraphviz(filepath.Join(t.TempDir(), "no-such-dot"), 0)
	if g.Available() {
		t.Fatal("binary should not be available")
	}
	if _, err := g.Render(context.Background(), "digraph G {}"); err == nil {
		t.Error("expected error for missing binary")
	}
}

func TestGraphvizRender(t *testing.T) {
	g := NewGraphviz("", 0)
	if !g.Available() {
		t.Skip("graphviz dot not installed")
	}

	net := petri.Graph{
		Nodes: []petri.Node{
			{ID: "p1", Type: petri.TypePlace, Label: "start"},
			{ID: "t1", Type: petri.TypeTransition, Label: "A"},
		},
		Links: []petri.Link{{Source: "p1", Target: "t1"}},
	}
	scene, err := g.Render(context.Background(), petri.DOT(net))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if scene.Bounds.Empty() {
		t.Error("expected non-empty bounds")
	}
	if n := scene.Graph.Count(surface.ByClass("node")); n != 2 {
		t.Errorf("expected 2 nodes, got %d", n)
	}
	if n := scene.Graph.Count(surface.ByClass("edge")); n != 1 {
		t.Errorf("expected 1 edge, got %d", n)
	}
}
