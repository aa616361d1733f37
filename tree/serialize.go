package tree

import (
	"fmt"

	"github.com/evotree/symreg/primitive"
)

// NodeRecord is one entry in a tree's pre-order serialization stream, per
// the explicit schema spec.md §9 calls for: a node-kind tag plus either a
// primitive name or a terminal payload. Exported fields only, so it encodes
// cleanly with both encoding/gob (checkpoint blobs, see package checkpoint)
// and encoding/json (metadata/debug dumps).
type NodeRecord struct {
	IsLeaf bool

	PrimName string
	Arity    int

	TermKind   primitive.TerminalKind
	TermName   string
	TermVarIdx int
	TermValue  float64
}

// Flatten encodes the tree rooted at root as a pre-order stream of
// NodeRecords.
func Flatten(root *Node) []NodeRecord {
	var out []NodeRecord
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.IsLeaf() {
			out = append(out, NodeRecord{
				IsLeaf:     true,
				TermKind:   n.Term.Kind,
				TermName:   n.Term.Name,
				TermVarIdx: n.Term.VarIndex,
				TermValue:  n.Term.Value,
			})
			return
		}
		out = append(out, NodeRecord{IsLeaf: false, PrimName: n.Prim.Name, Arity: n.Prim.Arity})
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return out
}

// Unflatten decodes a pre-order NodeRecord stream back into a tree,
// resolving primitive names against set's primitive table.
func Unflatten(records []NodeRecord, set *primitive.Set) (*Node, error) {
	pos := 0
	var build func() (*Node, error)
	build = func() (*Node, error) {
		if pos >= len(records) {
			return nil, fmt.Errorf("tree: truncated node stream at position %d", pos)
		}
		rec := records[pos]
		pos++
		if rec.IsLeaf {
			term := primitive.Terminal{
				Kind:     rec.TermKind,
				Name:     rec.TermName,
				VarIndex: rec.TermVarIdx,
				Value:    rec.TermValue,
			}
			return &Node{Term: term}, nil
		}
		prim := findPrimitiveByName(set, rec.PrimName)
		if prim == nil {
			return nil, fmt.Errorf("tree: unknown primitive %q in stream", rec.PrimName)
		}
		children := make([]*Node, prim.Arity)
		for i := range children {
			c, err := build()
			if err != nil {
				return nil, err
			}
			children[i] = c
		}
		return &Node{Prim: prim, Children: children}, nil
	}
	return build()
}

func findPrimitiveByName(set *primitive.Set, name string) *primitive.Primitive {
	for _, p := range set.Primitives() {
		if p.Name == name {
			return p
		}
	}
	return nil
}
