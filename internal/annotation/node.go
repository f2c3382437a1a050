// Package annotation turns the annotation tree returned by the mining service
// into nested visual boxes: operators arrange their children, leaves show a
// task label, and aggregated nodes nest the subtree they were folded from
// inside a dashed box.
package annotation

import (
	"encoding/json"
	"fmt"
)

// Shape is the structural kind of an annotation node.
type Shape int

const (
	ShapeEmpty Shape = iota
	ShapeOperator
	ShapeLeaf
	ShapeAggregated
)

func (s Shape) String() string {
	switch s {
	case ShapeOperator:
		return "operator"
	case ShapeLeaf:
		return "leaf"
	case ShapeAggregated:
		return "aggregated"
	default:
		return "empty"
	}
}

// Node is one node of the annotation tree as sent by the mining service.
type Node struct {
	Operator       string  `json:"operator,omitempty"`
	Label          string  `json:"label,omitempty"`
	Children       []*Node `json:"children,omitempty"`
	AggregatedFrom *Node   `json:"aggregated_from,omitempty"`
}

// Shape classifies n. The operator wins over the label, the label over a bare
// aggregated_from; a node with none of them is empty.
func (n *Node) Shape() Shape {
	switch {
	case n == nil:
		return ShapeEmpty
	case n.Operator != "":
		return ShapeOperator
	case n.Label != "":
		return ShapeLeaf
	case n.AggregatedFrom != nil:
		return ShapeAggregated
	default:
		return ShapeEmpty
	}
}

// Parse decodes a JSON annotation tree. A JSON null yields a nil tree.
func Parse(data []byte) (*Node, error) {
	var n *Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to parse annotation tree: %w", err)
	}
	return n, nil
}
