// Package tree implements the genetic-programming expression tree: typed
// node representation, ramped half-and-half construction, structural
// crossover/mutation under a hard size limit, and compilation to an
// evaluator.
package tree

import (
	"fmt"
	"strings"

	"github.com/evotree/symreg/primitive"
)

// Node is one element of an expression tree. An internal node carries a
// primitive reference and exactly Prim.Arity children; a leaf carries a
// terminal and no children.
type Node struct {
	Prim     *primitive.Primitive
	Term     primitive.Terminal
	Children []*Node
}

// IsLeaf reports whether n is a terminal node.
func (n *Node) IsLeaf() bool { return n.Prim == nil }

// Clone deep-copies the subtree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	clone := &Node{Prim: n.Prim, Term: n.Term}
	if len(n.Children) > 0 {
		clone.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			clone.Children[i] = c.Clone()
		}
	}
	return clone
}

// Size returns the number of nodes in the subtree rooted at n.
func (n *Node) Size() int {
	if n == nil {
		return 0
	}
	size := 1
	for _, c := range n.Children {
		size += c.Size()
	}
	return size
}

// Depth returns the longest root-to-leaf path length; a single leaf has
// depth 1.
func (n *Node) Depth() int {
	if n == nil {
		return 0
	}
	if len(n.Children) == 0 {
		return 1
	}
	max := 0
	for _, c := range n.Children {
		if d := c.Depth(); d > max {
			max = d
		}
	}
	return max + 1
}

// String renders the subtree in prefix notation, e.g. "add(x0, 2.50)".
// This is a canonical internal form used for hall-of-fame deduplication,
// not the user-facing equation renderer (out of scope, see SPEC_FULL.md §1).
func (n *Node) String() string {
	if n.IsLeaf() {
		if n.Term.Kind == primitive.ConstantTerminal {
			return fmt.Sprintf("%.2f", n.Term.Value)
		}
		return n.Term.Name
	}
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%s(%s)", n.Prim.Name, strings.Join(parts, ", "))
}
