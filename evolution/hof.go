package evolution

import "github.com/evotree/symreg/tree"

// HOFSize is k for both halls of fame (spec.md §3).
const HOFSize = 10

// SimplestGoodR2Threshold gates admission to the simplest-good hall of fame.
const SimplestGoodR2Threshold = 0.8

// BestFitnessHOF keeps the k trees with the lowest fitness ever observed,
// deduplicated by printed form and sorted ascending by fitness. TrainR2 is
// tracked alongside each member (keyed by printed form) so the engine's
// parsimonious-pick rule can compare against it without re-evaluating.
type BestFitnessHOF struct {
	members []*tree.Tree
	trainR2 map[string]float64
}

// NewBestFitnessHOF constructs an empty best-fitness hall of fame.
func NewBestFitnessHOF() *BestFitnessHOF {
	return &BestFitnessHOF{trainR2: make(map[string]float64)}
}

// Consider offers a candidate for admission. The tree is deep-copied on
// insertion so later mutation of the live population cannot leak into the
// hall of fame.
func (h *BestFitnessHOF) Consider(t *tree.Tree, trainR2 float64) {
	key := t.String()
	if _, ok := h.trainR2[key]; ok {
		return
	}

	f, valid := t.Fitness()
	if !valid {
		return
	}

	if len(h.members) < HOFSize {
		h.insert(t.Clone(), key, trainR2)
		return
	}

	worst := h.members[len(h.members)-1]
	worstFitness, _ := worst.Fitness()
	if f < worstFitness {
		delete(h.trainR2, worst.String())
		h.members = h.members[:len(h.members)-1]
		h.insert(t.Clone(), key, trainR2)
	}
}

func (h *BestFitnessHOF) insert(t *tree.Tree, key string, trainR2 float64) {
	h.trainR2[key] = trainR2
	f, _ := t.Fitness()

	i := len(h.members)
	h.members = append(h.members, t)
	for i > 0 {
		prev, _ := h.members[i-1].Fitness()
		if prev <= f {
			break
		}
		h.members[i], h.members[i-1] = h.members[i-1], h.members[i]
		i--
	}
}

// Members returns the hall of fame sorted ascending by fitness.
func (h *BestFitnessHOF) Members() []*tree.Tree { return h.members }

// Top returns the best member, or nil if empty.
func (h *BestFitnessHOF) Top() *tree.Tree {
	if len(h.members) == 0 {
		return nil
	}
	return h.members[0]
}

// TopTrainR2 returns the train R² recorded for the current top member.
func (h *BestFitnessHOF) TopTrainR2() float64 {
	if len(h.members) == 0 {
		return 0
	}
	return h.trainR2[h.members[0].String()]
}

// SimplestGoodHOF keeps the k smallest trees whose train R² meets the
// quality gate, evicting the largest member when a strictly smaller
// qualifying candidate arrives and the HOF is full.
type SimplestGoodHOF struct {
	members []*tree.Tree
	trainR2 map[string]float64
}

// NewSimplestGoodHOF constructs an empty simplest-good hall of fame.
func NewSimplestGoodHOF() *SimplestGoodHOF {
	return &SimplestGoodHOF{trainR2: make(map[string]float64)}
}

// Consider offers a candidate with its already-computed train R². Only
// candidates meeting SimplestGoodR2Threshold are eligible.
func (h *SimplestGoodHOF) Consider(t *tree.Tree, trainR2 float64) {
	if trainR2 < SimplestGoodR2Threshold {
		return
	}
	key := t.String()
	if _, ok := h.trainR2[key]; ok {
		return
	}

	if len(h.members) < HOFSize {
		h.trainR2[key] = trainR2
		h.members = append(h.members, t.Clone())
		return
	}

	largestIdx := 0
	for i, m := range h.members {
		if m.Size() > h.members[largestIdx].Size() {
			largestIdx = i
		}
	}
	if t.Size() < h.members[largestIdx].Size() {
		delete(h.trainR2, h.members[largestIdx].String())
		h.members[largestIdx] = t.Clone()
		h.trainR2[key] = trainR2
	}
}

// Members returns the current simplest-good members, unordered.
func (h *SimplestGoodHOF) Members() []*tree.Tree { return h.members }

// Top returns the smallest member, or nil if empty.
func (h *SimplestGoodHOF) Top() *tree.Tree {
	if len(h.members) == 0 {
		return nil
	}
	best := h.members[0]
	for _, m := range h.members[1:] {
		if m.Size() < best.Size() {
			best = m
		}
	}
	return best
}

// TopTrainR2 returns the train R² recorded for Top(), or 0 if empty.
func (h *SimplestGoodHOF) TopTrainR2() float64 {
	top := h.Top()
	if top == nil {
		return 0
	}
	return h.trainR2[top.String()]
}
