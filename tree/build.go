package tree

import (
	"math/rand"

	"github.com/evotree/symreg/primitive"
)

const (
	// MaxTreeSize is the hard static size limit: a variation result
	// exceeding this node count is rejected (spec.md §3, §4.2).
	MaxTreeSize = 20
	// MaxDepthCeiling is the hard ceiling on construction-time depth
	// (spec.md §3); max_depth config is clamped to this.
	MaxDepthCeiling = 4
)

// GeneratePopulation builds n trees via ramped half-and-half: each tree
// draws a target depth uniformly in [1, maxDepth] and then is built either
// "full" (every branch reaches the target depth) or "grow" (primitives and
// terminals mixed at every level), chosen by a fair coin flip.
func GeneratePopulation(n int, set *primitive.Set, maxDepth int, rng *rand.Rand) []*Tree {
	if maxDepth > MaxDepthCeiling {
		maxDepth = MaxDepthCeiling
	}
	if maxDepth < 1 {
		maxDepth = 1
	}

	trees := make([]*Tree, n)
	for i := 0; i < n; i++ {
		targetDepth := 1 + rng.Intn(maxDepth)
		var root *Node
		if rng.Intn(2) == 0 {
			root = growFull(set, targetDepth, 1, rng)
		} else {
			root = growMixed(set, targetDepth, 1, rng)
		}
		trees[i] = New(root, set)
	}
	return trees
}

// growFull builds a tree that reaches targetDepth on every branch: only
// primitives are chosen until depth-1, then only terminals.
func growFull(set *primitive.Set, targetDepth, depth int, rng *rand.Rand) *Node {
	if depth >= targetDepth {
		return &Node{Term: set.RandomTerminal(rng)}
	}
	prim := set.RandomPrimitive(rng)
	children := make([]*Node, prim.Arity)
	for i := range children {
		children[i] = growFull(set, targetDepth, depth+1, rng)
	}
	return &Node{Prim: prim, Children: children}
}

// growMixed ("grow") picks uniformly from the union of primitives and
// terminal slots at every node below targetDepth, forcing a terminal once
// targetDepth is reached.
func growMixed(set *primitive.Set, targetDepth, depth int, rng *rand.Rand) *Node {
	if depth >= targetDepth {
		return &Node{Term: set.RandomTerminal(rng)}
	}
	prims := set.Primitives()
	terminalSlots := set.NFeatures() + 1 // one per variable, one for the ephemeral-constant class
	if rng.Intn(len(prims)+terminalSlots) < len(prims) {
		prim := prims[rng.Intn(len(prims))]
		children := make([]*Node, prim.Arity)
		for i := range children {
			children[i] = growMixed(set, targetDepth, depth+1, rng)
		}
		return &Node{Prim: prim, Children: children}
	}
	return &Node{Term: set.RandomTerminal(rng)}
}

// randomSmallSubtree builds a fresh subtree of at most maxDepth levels
// below its root, used for mutation's small replacement.
func randomSmallSubtree(set *primitive.Set, maxDepth int, rng *rand.Rand) *Node {
	if maxDepth <= 0 || rng.Intn(2) == 0 {
		return &Node{Term: set.RandomTerminal(rng)}
	}
	prim := set.RandomPrimitive(rng)
	children := make([]*Node, prim.Arity)
	for i := range children {
		children[i] = randomSmallSubtree(set, maxDepth-1, rng)
	}
	return &Node{Prim: prim, Children: children}
}

// RandomTree builds one fresh individual the same way GeneratePopulation
// builds each member. The engine's generation loop calls this on any
// offspring still oversized after operator-level revert (the
// StructuralError path, spec.md §7), distinct from the per-operation
// OversizeRestart that reverts to the pre-variation parent instead.
func RandomTree(set *primitive.Set, maxDepth int, rng *rand.Rand) *Tree {
	return GeneratePopulation(1, set, maxDepth, rng)[0]
}
