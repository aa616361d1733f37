package tree

// Eval computes f(row) by a post-order walk of the tree, applying each
// primitive's protected scalar function. Implementations may cache a
// compiled closure per tree (spec.md §4.2); this one evaluates directly off
// the node structure instead, which is simple to keep correct and is never
// reused across a structural mutation since Root is the thing that changes.
func (t *Tree) Eval(row []float64) float64 {
	return evalNode(t.Root, row)
}

func evalNode(n *Node, row []float64) float64 {
	if n.IsLeaf() {
		return n.Term.Eval(row)
	}
	args := make([]float64, len(n.Children))
	for i, c := range n.Children {
		args[i] = evalNode(c, row)
	}
	return n.Prim.Fn(args)
}

// Predict evaluates the tree over every row of X (shape m x n), returning a
// length-m slice of raw (unsanitized) predictions. Sanitizing non-finite or
// huge values to the documented sentinel is fitness's job (package
// fitness), not tree's — tree only computes, it does not police ranges
// beyond what the protected primitives already guarantee per-call.
func (t *Tree) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = evalNode(t.Root, row)
	}
	return out
}
