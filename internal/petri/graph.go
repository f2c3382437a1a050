// Package petri holds the Petri net graph returned by the mining service and
// its textual graph description for the layout engine.
package petri

import (
	"errors"
	"fmt"
)

// Node types.
const (
	TypePlace      = "place"
	TypeTransition = "transition"
)

// ErrInvalidGraph is returned when a graph violates its structural invariants.
var ErrInvalidGraph = errors.New("invalid petri net graph")

// Node is a place or a transition.
type Node struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

// Link is a directed flow arc.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is a Petri net as nodes and links, in service order.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Places returns the place nodes in order.
func (g Graph) Places() []Node {
	return g.ofType(TypePlace)
}

// Transitions returns the transition nodes in order.
func (g Graph) Transitions() []Node {
	return g.ofType(TypeTransition)
}

func (g Graph) ofType(typ string) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

// Validate checks that ids are unique, node types are known and every link
// references existing nodes.
func (g Graph) Validate() error {
	seen := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node with empty id", ErrInvalidGraph)
		}
		if n.Type != TypePlace && n.Type != TypeTransition {
			return fmt.Errorf("%w: node %s has unknown type %q", ErrInvalidGraph, n.ID, n.Type)
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %s", ErrInvalidGraph, n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	for i, l := range g.Links {
		if _, ok := seen[l.Source]; !ok {
			return fmt.Errorf("%w: link %d source %s not found", ErrInvalidGraph, i, l.Source)
		}
		if _, ok := seen[l.Target]; !ok {
			return fmt.Errorf("%w: link %d target %s not found", ErrInvalidGraph, i, l.Target)
		}
	}
	return nil
}
