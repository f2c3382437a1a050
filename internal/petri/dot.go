package petri

import (
	"fmt"
	"strings"
)

const (
	placeStyle      = "shape=circle, style=filled, fillcolor=lightblue"
	transitionStyle = "shape=box, style=filled, fillcolor=lightgray"
)

// DOT returns the left-to-right digraph description of g: places and
// transitions as two node classes, then the links as directed edges.
func DOT(g Graph) string {
	var sb strings.Builder

	sb.WriteString("digraph PetriNet {\n  rankdir=LR;\n")

	sb.WriteString(fmt.Sprintf("  node [%s];\n", placeStyle))
	for _, p := range g.Places() {
		sb.WriteString(fmt.Sprintf("  %s [label=%s];\n", quoteID(p.ID), quoteLabel(p.Label)))
	}

	sb.WriteString(fmt.Sprintf("  node [%s];\n", transitionStyle))
	for _, t := range g.Transitions() {
		sb.WriteString(fmt.Sprintf("  %s [label=%s];\n", quoteID(t.ID), quoteLabel(t.Label)))
	}

	for _, l := range g.Links {
		sb.WriteString(fmt.Sprintf("  %s -> %s;\n", quoteID(l.Source), quoteID(l.Target)))
	}

	sb.WriteString("}")
	return sb.String()
}

func quoteID(s string) string {
	return `"` + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`) + `"`
}

func quoteLabel(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
	)
	return `"` + replacer.Replace(s) + `"`
}
