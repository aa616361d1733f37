package evolution

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evotree/symreg/primitive"
	"github.com/evotree/symreg/tree"
)

// leafTree builds a single-node tree holding constant v, fitness f.
func leafTree(v, f float64) *tree.Tree {
	t := tree.New(&tree.Node{Term: primitive.Terminal{Kind: primitive.ConstantTerminal, Value: v}}, nil)
	t.SetFitness(f)
	return t
}

// wrapTree builds a 3-node tree ("add(v, v)") around v with fitness f, so
// it differs in both printed form and size from leafTree(v, ...).
func wrapTree(v, f float64) *tree.Tree {
	leaf := &tree.Node{Term: primitive.Terminal{Kind: primitive.ConstantTerminal, Value: v}}
	root := &tree.Node{
		Prim:     &primitive.Primitive{Name: "add", Arity: 2},
		Children: []*tree.Node{leaf, leaf.Clone()},
	}
	t := tree.New(root, nil)
	t.SetFitness(f)
	return t
}

func TestBestFitnessHOFSortsAscendingAndCaps(t *testing.T) {
	h := NewBestFitnessHOF()
	for i := 0; i < HOFSize+5; i++ {
		h.Consider(leafTree(float64(i), float64(HOFSize+5-i)), 0.9)
	}

	members := h.Members()
	require.Len(t, members, HOFSize)
	for i := 1; i < len(members); i++ {
		fPrev, _ := members[i-1].Fitness()
		fCur, _ := members[i].Fitness()
		require.LessOrEqual(t, fPrev, fCur)
	}

	top := h.Top()
	topFitness, _ := top.Fitness()
	bestSeen, _ := members[0].Fitness()
	require.Equal(t, bestSeen, topFitness)
}

func TestBestFitnessHOFDedupesByPrintedForm(t *testing.T) {
	h := NewBestFitnessHOF()
	h.Consider(leafTree(1.0, 5.0), 0.9)
	h.Consider(leafTree(1.0, 5.0), 0.9)
	require.Len(t, h.Members(), 1)
}

func TestBestFitnessHOFRejectsInvalidFitness(t *testing.T) {
	h := NewBestFitnessHOF()
	invalid := tree.New(&tree.Node{Term: primitive.Terminal{Kind: primitive.ConstantTerminal, Value: 1}}, nil)
	h.Consider(invalid, 0.9)
	require.Empty(t, h.Members())
}

func TestBestFitnessHOFTopTrainR2(t *testing.T) {
	h := NewBestFitnessHOF()
	h.Consider(leafTree(1.0, 1.0), 0.42)
	require.InDelta(t, 0.42, h.TopTrainR2(), 1e-9)
}

func TestSimplestGoodHOFRejectsBelowR2Threshold(t *testing.T) {
	h := NewSimplestGoodHOF()
	h.Consider(leafTree(1.0, 1.0), SimplestGoodR2Threshold-0.01)
	require.Empty(t, h.Members())

	h.Consider(leafTree(1.0, 1.0), SimplestGoodR2Threshold)
	require.Len(t, h.Members(), 1)
}

func TestSimplestGoodHOFEvictsLargestOnSmallerQualifyingCandidate(t *testing.T) {
	h := NewSimplestGoodHOF()
	for i := 0; i < HOFSize; i++ {
		h.Consider(wrapTree(float64(i), 1.0), 0.9)
	}
	require.Len(t, h.Members(), HOFSize)
	for _, m := range h.Members() {
		require.Equal(t, 3, m.Size())
	}

	small := leafTree(100.0, 1.0)
	h.Consider(small, 0.9)

	require.Len(t, h.Members(), HOFSize)
	found := false
	for _, m := range h.Members() {
		if m.Size() == 1 {
			found = true
		}
	}
	require.True(t, found, "smaller candidate should have evicted a larger member")
}

func TestSimplestGoodHOFDoesNotEvictOnEqualOrLargerCandidate(t *testing.T) {
	h := NewSimplestGoodHOF()
	for i := 0; i < HOFSize; i++ {
		h.Consider(leafTree(float64(i), 1.0), 0.9)
	}
	before := append([]*tree.Tree(nil), h.Members()...)

	h.Consider(wrapTree(999.0, 1.0), 0.9)
	require.Equal(t, before, h.Members())
}

func TestSimplestGoodHOFDedupesByPrintedForm(t *testing.T) {
	h := NewSimplestGoodHOF()
	h.Consider(leafTree(1.0, 1.0), 0.9)
	h.Consider(leafTree(1.0, 1.0), 0.9)
	require.Len(t, h.Members(), 1)
}

func TestSimplestGoodHOFTopIsSmallestMember(t *testing.T) {
	h := NewSimplestGoodHOF()
	h.Consider(wrapTree(1.0, 1.0), 0.85)
	h.Consider(leafTree(2.0, 1.0), 0.9)

	top := h.Top()
	require.Equal(t, 1, top.Size())
	require.InDelta(t, 0.9, h.TopTrainR2(), 1e-9)
}
