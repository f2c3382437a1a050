package annotation

import (
	"strconv"

	"github.com/AaronLay10/SemanticZoom/internal/surface"
)

// TreeClass marks the root group of a rendered annotation tree.
const TreeClass = "annotation-tree"

// Render converts a laid-out box tree into surface elements.
func Render(root *Box, m Metrics) *surface.Element {
	tree := surface.New("g", surface.Attr{Name: "class", Value: TreeClass})
	if root != nil {
		tree.Append(renderBox(root, m))
	}
	return tree
}

// Bounds returns the area covered by a laid-out tree.
func Bounds(root *Box) surface.Rect {
	if root == nil {
		return surface.Rect{}
	}
	return surface.Rect{X: root.X, Y: root.Y, Width: root.W, Height: root.H}
}

func classFor(b *Box) string {
	switch b.Kind {
	case KindLeaf:
		return "annotation-box leaf"
	case KindDashed:
		return "annotation-box dashed"
	case KindAnomaly:
		return "annotation-box anomaly"
	default:
		return "annotation-box"
	}
}

func renderBox(b *Box, m Metrics) *surface.Element {
	g := surface.New("g", surface.Attr{Name: "class", Value: classFor(b)})

	rect := surface.New("rect",
		surface.Attr{Name: "x", Value: num(b.X)},
		surface.Attr{Name: "y", Value: num(b.Y)},
		surface.Attr{Name: "width", Value: num(b.W)},
		surface.Attr{Name: "height", Value: num(b.H)},
		surface.Attr{Name: "rx", Value: "4"},
	)
	if b.Kind == KindDashed {
		rect.Set("stroke-dasharray", "4 3")
	}
	g.Append(rect)

	textY := num(b.Y + m.Padding + m.LineHeight*0.8)
	textX := num(b.X + m.Padding)

	switch b.Kind {
	case KindOperator:
		g.Append(surface.New("text",
			surface.Attr{Name: "class", Value: "operator-title"},
			surface.Attr{Name: "x", Value: textX},
			surface.Attr{Name: "y", Value: textY},
		).SetText(b.Title))
		kids := surface.New("g", surface.Attr{Name: "class", Value: "children " + string(b.Layout)})
		for _, c := range b.Children {
			kids.Append(renderBox(c, m))
		}
		g.Append(kids)

	case KindLeaf, KindAnomaly:
		g.Append(surface.New("text",
			surface.Attr{Name: "x", Value: textX},
			surface.Attr{Name: "y", Value: textY},
		).SetText(b.Label))
		if b.Nested != nil {
			g.Append(renderBox(b.Nested, m))
		}

	case KindDashed:
		for _, c := range b.Children {
			g.Append(renderBox(c, m))
		}
	}
	return g
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
