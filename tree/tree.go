package tree

import "github.com/evotree/symreg/primitive"

// Tree is a single GP individual: a rooted expression over a fixed
// primitive Set, with cached size/depth and an invalidatable fitness
// scalar. Fitness must be re-evaluated when Fitness reports it invalid
// before selection may read it.
type Tree struct {
	Root  *Node
	Set   *primitive.Set
	size  int
	depth int

	fitness float64
	valid   bool
}

// New wraps root in a Tree, computing its initial size/depth.
func New(root *Node, set *primitive.Set) *Tree {
	t := &Tree{Root: root, Set: set}
	t.Recompute()
	return t
}

// Recompute refreshes cached size/depth after a structural change. Callers
// that mutate Root directly must call this before reading Size/Depth.
func (t *Tree) Recompute() {
	t.size = t.Root.Size()
	t.depth = t.Root.Depth()
}

// Size returns the cached node count.
func (t *Tree) Size() int { return t.size }

// Depth returns the cached longest root-to-leaf path length.
func (t *Tree) Depth() int { return t.depth }

// Fitness returns the cached fitness scalar and whether it is currently
// valid (i.e. the tree has not structurally changed since it was set).
func (t *Tree) Fitness() (float64, bool) { return t.fitness, t.valid }

// SetFitness records a freshly computed fitness value as valid.
func (t *Tree) SetFitness(f float64) {
	t.fitness = f
	t.valid = true
}

// Invalidate marks the cached fitness stale; selection must not read it
// until it is recomputed.
func (t *Tree) Invalidate() { t.valid = false }

// Clone deep-copies the tree, including its fitness cache.
func (t *Tree) Clone() *Tree {
	return &Tree{
		Root:    t.Root.Clone(),
		Set:     t.Set,
		size:    t.size,
		depth:   t.depth,
		fitness: t.fitness,
		valid:   t.valid,
	}
}

// String renders the tree via its root node (see Node.String).
func (t *Tree) String() string { return t.Root.String() }
