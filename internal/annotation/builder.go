package annotation

import "strings"

// MaxDepth bounds recursion over untrusted trees. Deeper subtrees are replaced
// by an anomaly placeholder.
const MaxDepth = 256

// Kind is the visual kind of a box.
type Kind string

const (
	KindOperator Kind = "operator"
	KindLeaf     Kind = "leaf"
	KindDashed   Kind = "dashed"
	KindEmpty    Kind = "empty"
	KindAnomaly  Kind = "anomaly"
)

// Orientation arranges an operator's children.
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// Box is a visual node. Geometry fields are zero until Layout runs.
type Box struct {
	Kind     Kind
	Title    string
	Label    string
	Layout   Orientation
	Children []*Box
	// Nested is the dashed box under an aggregated leaf's label.
	Nested *Box

	X, Y, W, H float64
}

// OrientationFor returns the child arrangement for an operator name.
func OrientationFor(operator string) Orientation {
	if strings.ToLower(operator) == "sequence" {
		return Horizontal
	}
	return Vertical
}

// Build maps an annotation tree to boxes. It has no side effects and the same
// input always yields a structurally equal result.
func Build(root *Node) *Box {
	b := builder{onPath: make(map[*Node]bool)}
	return b.build(root, 0)
}

type builder struct {
	onPath map[*Node]bool
}

func (b *builder) build(n *Node, depth int) *Box {
	if n == nil {
		return &Box{Kind: KindEmpty}
	}
	if depth > MaxDepth || b.onPath[n] {
		return &Box{Kind: KindAnomaly, Label: "…"}
	}
	b.onPath[n] = true
	defer delete(b.onPath, n)

	switch n.Shape() {
	case ShapeOperator:
		op := strings.ToLower(n.Operator)
		box := &Box{
			Kind:   KindOperator,
			Title:  strings.ToUpper(op),
			Layout: OrientationFor(op),
		}
		for _, c := range n.Children {
			box.Children = append(box.Children, b.build(c, depth+1))
		}
		return box

	case ShapeLeaf:
		box := &Box{Kind: KindLeaf, Label: n.Label}
		if n.AggregatedFrom != nil {
			box.Nested = b.dashed(n.AggregatedFrom, depth+1)
		}
		return box

	case ShapeAggregated:
		return b.dashed(n.AggregatedFrom, depth+1)

	default:
		return &Box{Kind: KindEmpty}
	}
}

func (b *builder) dashed(inner *Node, depth int) *Box {
	return &Box{Kind: KindDashed, Children: []*Box{b.build(inner, depth)}}
}

// Equal reports whether a and b have the same structure and text, ignoring
// geometry.
func Equal(a, b *Box) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Title != b.Title || a.Label != b.Label || a.Layout != b.Layout {
		return false
	}
	if !Equal(a.Nested, b.Nested) || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// Count returns the number of boxes of kind k in the tree.
func Count(root *Box, k Kind) int {
	if root == nil {
		return 0
	}
	n := 0
	if root.Kind == k {
		n++
	}
	n += Count(root.Nested, k)
	for _, c := range root.Children {
		n += Count(c, k)
	}
	return n
}
