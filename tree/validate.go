package tree

import "fmt"

// Validate checks the structural invariants from spec.md §3: every internal
// node's child count matches its primitive's arity, and (when maxSize >= 0)
// the tree's total size does not exceed maxSize.
func Validate(root *Node, maxSize int) error {
	if root == nil {
		return fmt.Errorf("tree: nil root")
	}
	if err := validateArity(root); err != nil {
		return err
	}
	if maxSize >= 0 {
		if size := root.Size(); size > maxSize {
			return fmt.Errorf("tree: size %d exceeds max %d", size, maxSize)
		}
	}
	return nil
}

func validateArity(n *Node) error {
	if n.IsLeaf() {
		if len(n.Children) != 0 {
			return fmt.Errorf("tree: leaf node carries %d children, want 0", len(n.Children))
		}
		return nil
	}
	if len(n.Children) != n.Prim.Arity {
		return fmt.Errorf("tree: primitive %q expects %d children, got %d", n.Prim.Name, n.Prim.Arity, len(n.Children))
	}
	for _, c := range n.Children {
		if err := validateArity(c); err != nil {
			return err
		}
	}
	return nil
}
