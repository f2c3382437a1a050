package annotation

import "unicode/utf8"

// Metrics are the text and spacing constants used to size boxes.
type Metrics struct {
	CharWidth  float64
	LineHeight float64
	Padding    float64
	Gap        float64
	EmptyWidth float64
}

// DefaultMetrics approximate a 12px monospace font.
var DefaultMetrics = Metrics{
	CharWidth:  7.2,
	LineHeight: 16,
	Padding:    6,
	Gap:        6,
	EmptyWidth: 12,
}

// Layout sizes every box and positions the tree with its top-left corner at
// the origin.
func Layout(root *Box, m Metrics) {
	if root == nil {
		return
	}
	measure(root, m)
	place(root, 0, 0, m)
}

func textWidth(s string, m Metrics) float64 {
	return float64(utf8.RuneCountInString(s)) * m.CharWidth
}

func measure(b *Box, m Metrics) {
	switch b.Kind {
	case KindOperator:
		var cw, ch float64
		for i, c := range b.Children {
			measure(c, m)
			if b.Layout == Horizontal {
				cw += c.W
				ch = max(ch, c.H)
				if i > 0 {
					cw += m.Gap
				}
			} else {
				cw = max(cw, c.W)
				ch += c.H
				if i > 0 {
					ch += m.Gap
				}
			}
		}
		b.W = max(textWidth(b.Title, m), cw) + 2*m.Padding
		b.H = 2*m.Padding + m.LineHeight
		if len(b.Children) > 0 {
			b.H += m.Gap + ch
		}

	case KindLeaf:
		w := textWidth(b.Label, m)
		b.H = 2*m.Padding + m.LineHeight
		if b.Nested != nil {
			measure(b.Nested, m)
			w = max(w, b.Nested.W)
			b.H += m.Gap + b.Nested.H
		}
		b.W = w + 2*m.Padding

	case KindDashed:
		var cw, ch float64
		for i, c := range b.Children {
			measure(c, m)
			cw = max(cw, c.W)
			ch += c.H
			if i > 0 {
				ch += m.Gap
			}
		}
		b.W = cw + 2*m.Padding
		b.H = ch + 2*m.Padding

	case KindAnomaly:
		b.W = textWidth(b.Label, m) + 2*m.Padding
		b.H = m.LineHeight + 2*m.Padding

	default:
		b.W = m.EmptyWidth + 2*m.Padding
		b.H = m.LineHeight + 2*m.Padding
	}
}

func place(b *Box, x, y float64, m Metrics) {
	b.X, b.Y = x, y
	switch b.Kind {
	case KindOperator:
		cx := x + m.Padding
		cy := y + m.Padding + m.LineHeight + m.Gap
		for _, c := range b.Children {
			place(c, cx, cy, m)
			if b.Layout == Horizontal {
				cx += c.W + m.Gap
			} else {
				cy += c.H + m.Gap
			}
		}
	case KindLeaf:
		if b.Nested != nil {
			place(b.Nested, x+m.Padding, y+m.Padding+m.LineHeight+m.Gap, m)
		}
	case KindDashed:
		cy := y + m.Padding
		for _, c := range b.Children {
			place(c, x+m.Padding, cy, m)
			cy += c.H + m.Gap
		}
	}
}
