package evolution

import (
	"fmt"

	"github.com/evotree/symreg/primitive"
	"github.com/evotree/symreg/tree"
)

// TreeSnapshot is a tree reduced to gob/json-safe data: a flattened node
// stream (see tree.Flatten/tree.Unflatten) plus its cached fitness. A raw
// tree.Tree cannot be handed to encoding/gob directly — its nodes hold
// *primitive.Primitive, and Primitive.Fn is a function value, which gob
// cannot encode at all.
type TreeSnapshot struct {
	Records []tree.NodeRecord
	Fitness float64
	Valid   bool
}

func snapshotTree(t *tree.Tree) TreeSnapshot {
	f, valid := t.Fitness()
	return TreeSnapshot{Records: tree.Flatten(t.Root), Fitness: f, Valid: valid}
}

func (e *Engine) restoreTree(ts TreeSnapshot) (*tree.Tree, error) {
	root, err := tree.Unflatten(ts.Records, e.Set)
	if err != nil {
		return nil, err
	}
	t := tree.New(root, e.Set)
	if ts.Valid {
		t.SetFitness(ts.Fitness)
	}
	return t, nil
}

// Snapshot is the deep-copied engine state spec.md §4.6 names for
// checkpoint capture: population, both halls of fame, generation stats,
// adaptive parsimony, config and dataset shape. Capturing takes a snapshot
// independent of the live engine so later mutation cannot leak into it.
//
// RNGSeed/RNGDraws stand in for "RNG state as opaque bytes" (spec.md §9):
// math/rand's default source exposes no serializable internal state, so
// the engine instead records the seed it started from and how many Int63
// draws have been consumed. Restoring reseeds and fast-forwards by that
// many draws, which reproduces the exact same future draw sequence.
type Snapshot struct {
	Generation        int
	Population        []TreeSnapshot
	BestHOF           []TreeSnapshot
	BestHOFTrainR2    []float64
	SimpleHOF         []TreeSnapshot
	SimpleHOFTrainR2  []float64
	StatsHistory      []GenerationStats
	AdaptiveParsimony float64
	Config            Config
	NFeatures         int
	RNGSeed           int64
	RNGDraws          uint64
}

// Capture returns a deep-copied snapshot of the engine's current state.
// Mutations to the live engine after Capture returns cannot affect the
// snapshot (spec.md §4.6).
func (e *Engine) Capture() *Snapshot {
	pop := make([]TreeSnapshot, len(e.population.Individuals))
	for i, ind := range e.population.Individuals {
		pop[i] = snapshotTree(ind.Tree)
	}

	bestMembers := e.bestHOF.Members()
	bestR2 := make([]float64, len(bestMembers))
	bestSnaps := make([]TreeSnapshot, len(bestMembers))
	for i, t := range bestMembers {
		bestR2[i] = e.bestHOF.trainR2[t.String()]
		bestSnaps[i] = snapshotTree(t)
	}
	simpleMembers := e.simpleHOF.Members()
	simpleR2 := make([]float64, len(simpleMembers))
	simpleSnaps := make([]TreeSnapshot, len(simpleMembers))
	for i, t := range simpleMembers {
		simpleR2[i] = e.simpleHOF.trainR2[t.String()]
		simpleSnaps[i] = snapshotTree(t)
	}

	return &Snapshot{
		Generation:        e.generation,
		Population:        pop,
		BestHOF:           bestSnaps,
		BestHOFTrainR2:    bestR2,
		SimpleHOF:         simpleSnaps,
		SimpleHOFTrainR2:  simpleR2,
		StatsHistory:      append([]GenerationStats(nil), e.statsHistory...),
		AdaptiveParsimony: e.adaptiveParsimony,
		Config:            *e.Config,
		NFeatures:         e.Data.NFeatures,
		RNGSeed:           e.rngSrc.seed,
		RNGDraws:          e.rngSrc.count,
	}
}

// Restore replaces the engine's state in place from snap. The next
// generation continues from snap.Generation (spec.md §4.6).
func (e *Engine) Restore(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("gp: nil snapshot")
	}

	cfg := snap.Config
	e.Config = &cfg
	set, err := primitive.NewSet(cfg.Operators, cfg.Functions, snap.NFeatures, cfg.VariableNames)
	if err != nil {
		return fmt.Errorf("gp: rebuilding primitive set from snapshot: %w", err)
	}
	e.Set = set

	trees := make([]*tree.Tree, len(snap.Population))
	for i := range snap.Population {
		t, err := e.restoreTree(snap.Population[i])
		if err != nil {
			return fmt.Errorf("gp: restoring population tree %d: %w", i, err)
		}
		trees[i] = t
	}
	e.population = NewPopulation(trees)

	e.bestHOF = NewBestFitnessHOF()
	for i := range snap.BestHOF {
		t, err := e.restoreTree(snap.BestHOF[i])
		if err != nil {
			return fmt.Errorf("gp: restoring best-fitness HOF tree %d: %w", i, err)
		}
		e.bestHOF.Consider(t, snap.BestHOFTrainR2[i])
	}
	e.simpleHOF = NewSimplestGoodHOF()
	for i := range snap.SimpleHOF {
		t, err := e.restoreTree(snap.SimpleHOF[i])
		if err != nil {
			return fmt.Errorf("gp: restoring simplest-good HOF tree %d: %w", i, err)
		}
		e.simpleHOF.Consider(t, snap.SimpleHOFTrainR2[i])
	}

	e.generation = snap.Generation
	e.statsHistory = append([]GenerationStats(nil), snap.StatsHistory...)
	e.adaptiveParsimony = snap.AdaptiveParsimony
	e.stopped = false

	e.rng, e.rngSrc = engineRandFromDraws(snap.RNGSeed, snap.RNGDraws)

	return nil
}
