package annotation

import (
	"strings"
	"testing"

	"github.com/AaronLay10/SemanticZoom/internal/surface"
)

const sampleTree = `{
	"operator": "sequence",
	"children": [
		{"label": "A"},
		{"label": "B", "aggregated_from": {"label": "B1"}}
	]
}`

func TestParseShapes(t *testing.T) {
	tests := []struct {
		json string
		want Shape
	}{
		{`{"operator":"xor","children":[]}`, ShapeOperator},
		{`{"label":"Register"}`, ShapeLeaf},
		{`{"label":"agg","aggregated_from":{"label":"x"}}`, ShapeLeaf},
		{`{"aggregated_from":{"label":"x"}}`, ShapeAggregated},
		{`{"aggregated_from":null}`, ShapeEmpty},
		{`{}`, ShapeEmpty},
		{`{"operator":"loop","label":"ignored"}`, ShapeOperator},
	}
	for _, tt := range tests {
		n, err := Parse([]byte(tt.json))
		if err != nil {
			t.Fatalf("parse %s: %v", tt.json, err)
		}
		if got := n.Shape(); got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.json, got, tt.want)
		}
	}
}

func TestParseNull(t *testing.T) {
	n, err := Parse([]byte("null"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != nil {
		t.Errorf("expected nil tree, got %+v", n)
	}
	if Build(n).Kind != KindEmpty {
		t.Error("nil tree should build to an empty box")
	}
}

func TestBuildSequenceExample(t *testing.T) {
	root, err := Parse([]byte(sampleTree))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	box := Build(root)

	if box.Kind != KindOperator || box.Title != "SEQUENCE" || box.Layout != Horizontal {
		t.Fatalf("unexpected root %+v", box)
	}
	if len(box.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(box.Children))
	}

	a := box.Children[0]
	if a.Kind != KindLeaf || a.Label != "A" || a.Nested != nil {
		t.Errorf("expected plain leaf A, got %+v", a)
	}

	b := box.Children[1]
	if b.Kind != KindLeaf || b.Label != "B" {
		t.Fatalf("expected leaf B, got %+v", b)
	}
	if b.Nested == nil || b.Nested.Kind != KindDashed {
		t.Fatalf("expected dashed wrapper under B, got %+v", b.Nested)
	}
	inner := b.Nested.Children
	if len(inner) != 1 || inner[0].Kind != KindLeaf || inner[0].Label != "B1" {
		t.Errorf("expected leaf B1 inside dashed wrapper, got %+v", inner)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	root, _ := Parse([]byte(sampleTree))
	first := Build(root)
	second := Build(root)

	if !Equal(first, second) {
		t.Error("building the same tree twice produced different structures")
	}
	if first == second {
		t.Error("expected fresh boxes on each build")
	}
}

func TestBuildOperatorOrientation(t *testing.T) {
	for op, want := range map[string]Orientation{
		"sequence": Horizontal,
		"Sequence": Horizontal,
		"xor":      Vertical,
		"parallel": Vertical,
		"and":      Vertical,
		"or":       Vertical,
		"loop":     Vertical,
	} {
		box := Build(&Node{Operator: op})
		if box.Layout != want {
			t.Errorf("%s: got %s, want %s", op, box.Layout, want)
		}
		if box.Title != strings.ToUpper(op) {
			t.Errorf("%s: unexpected title %s", op, box.Title)
		}
	}
}

func TestBuildDegenerateWrapper(t *testing.T) {
	box := Build(&Node{AggregatedFrom: &Node{Operator: "xor", Children: []*Node{{Label: "x"}, {}}}})

	if box.Kind != KindDashed || len(box.Children) != 1 {
		t.Fatalf("expected dashed wrapper, got %+v", box)
	}
	op := box.Children[0]
	if op.Kind != KindOperator || len(op.Children) != 2 {
		t.Fatalf("expected xor operator inside wrapper, got %+v", op)
	}
	if op.Children[1].Kind != KindEmpty {
		t.Errorf("expected empty placeholder, got %s", op.Children[1].Kind)
	}
}

func TestBuildGuardsCycles(t *testing.T) {
	loop := &Node{Label: "L"}
	loop.AggregatedFrom = &Node{Operator: "loop", Children: []*Node{loop}}

	box := Build(loop)
	if Count(box, KindAnomaly) != 1 {
		t.Errorf("expected one anomaly placeholder, got %d", Count(box, KindAnomaly))
	}
}

func TestBuildGuardsDepth(t *testing.T) {
	root := &Node{Label: "leaf"}
	for i := 0; i < MaxDepth+50; i++ {
		root = &Node{Operator: "sequence", Children: []*Node{root}}
	}

	box := Build(root)
	if Count(box, KindAnomaly) != 1 {
		t.Errorf("expected depth bound to yield one anomaly, got %d", Count(box, KindAnomaly))
	}
	if Count(box, KindLeaf) != 0 {
		t.Error("leaf beyond depth bound should not be rendered")
	}
}

func TestSharedSubtreeIsNotACycle(t *testing.T) {
	shared := &Node{Label: "S"}
	root := &Node{Operator: "and", Children: []*Node{shared, shared}}

	box := Build(root)
	if Count(box, KindLeaf) != 2 || Count(box, KindAnomaly) != 0 {
		t.Errorf("shared subtree rendered wrongly: leaves=%d anomalies=%d",
			Count(box, KindLeaf), Count(box, KindAnomaly))
	}
}

func TestLayoutHorizontalAndVertical(t *testing.T) {
	m := Metrics{CharWidth: 10, LineHeight: 10, Padding: 5, Gap: 5, EmptyWidth: 10}

	seq := Build(&Node{Operator: "sequence", Children: []*Node{{Label: "abcdefghij"}, {Label: "klmnopqrst"}}})
	Layout(seq, m)
	// leaf: 10 chars * 10 + 2*5 = 110 wide, 10 + 2*5 = 20 high
	if seq.W != 110+5+110+10 || seq.H != 5+10+5+20+5 {
		t.Errorf("sequence size: got %vx%v", seq.W, seq.H)
	}
	if seq.Children[1].X != seq.Children[0].X+110+5 {
		t.Errorf("second child should sit right of the first: %v vs %v", seq.Children[1].X, seq.Children[0].X)
	}

	xor := Build(&Node{Operator: "xor", Children: []*Node{{Label: "ab"}, {Label: "cd"}}})
	Layout(xor, m)
	if xor.W != 30+10 || xor.H != 5+10+5+20+5+20+5 {
		t.Errorf("xor size: got %vx%v", xor.W, xor.H)
	}
	if xor.Children[1].Y != xor.Children[0].Y+20+5 {
		t.Errorf("second child should sit below the first")
	}
}

func TestLayoutNestedLeaf(t *testing.T) {
	m := Metrics{CharWidth: 10, LineHeight: 10, Padding: 5, Gap: 5, EmptyWidth: 10}
	box := Build(&Node{Label: "B", AggregatedFrom: &Node{Label: "B1234"}})
	Layout(box, m)

	// inner leaf 60x20, dashed 70x30, outer leaf 80 x (20+5+30)
	if box.Nested.W != 70 || box.Nested.H != 30 {
		t.Errorf("dashed size: got %vx%v", box.Nested.W, box.Nested.H)
	}
	if box.W != 80 || box.H != 55 {
		t.Errorf("leaf size: got %vx%v", box.W, box.H)
	}
}

func TestRender(t *testing.T) {
	root, _ := Parse([]byte(sampleTree))
	box := Build(root)
	Layout(box, DefaultMetrics)
	tree := Render(box, DefaultMetrics)

	if !tree.HasClass(TreeClass) {
		t.Fatal("missing tree class")
	}
	if n := tree.Count(surface.ByClass("leaf")); n != 3 {
		t.Errorf("expected 3 leaves, got %d", n)
	}
	if n := tree.Count(surface.ByClass("dashed")); n != 1 {
		t.Errorf("expected 1 dashed box, got %d", n)
	}
	if tree.Find(surface.ByClass("horizontal")) == nil {
		t.Error("expected horizontal children group")
	}
	title := tree.Find(surface.ByClass("operator-title"))
	if title == nil || title.Text != "SEQUENCE" {
		t.Errorf("unexpected operator title %+v", title)
	}
	dashedRect := tree.Find(surface.ByClass("dashed")).Children[0]
	if v, _ := dashedRect.Get("stroke-dasharray"); v == "" {
		t.Error("dashed box should have a dash pattern")
	}

	again := Build(root)
	Layout(again, DefaultMetrics)
	if Render(again, DefaultMetrics).Markup() != tree.Markup() {
		t.Error("rendering the same tree twice produced different markup")
	}
}
