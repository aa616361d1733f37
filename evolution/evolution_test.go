package evolution

import (
	"math"
	"math/rand"
	"testing"

	"github.com/evotree/symreg/primitive"
	"github.com/evotree/symreg/tree"
	"github.com/stretchr/testify/require"
)

func quadraticDataset(n int) ([][]float64, []float64) {
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x := -5.0 + 10.0*float64(i)/float64(n-1)
		X[i] = []float64{x}
		y[i] = x * x
	}
	return X, y
}

func TestNewRejectsMismatchedShapes(t *testing.T) {
	X := [][]float64{{1}, {2}}
	y := []float64{1}
	_, err := New(X, y, nil)
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestNewClampsPopulationSize(t *testing.T) {
	X, y := quadraticDataset(20)
	cfg := DefaultConfig()
	cfg.PopulationSize = 10000
	eng, err := New(X, y, cfg)
	require.NoError(t, err)
	require.Equal(t, maxPopulationSize, eng.Config.PopulationSize)
}

func TestEvolveRunsToCompletionAndReportsStats(t *testing.T) {
	X, y := quadraticDataset(50)
	cfg := DefaultConfig()
	cfg.PopulationSize = 40
	cfg.Operators = []string{"+", "-", "*", "/"}
	cfg.Functions = []string{"sqrt", "abs"}
	cfg.RandomState = 7

	eng, err := New(X, y, cfg)
	require.NoError(t, err)

	var finalUpdate Update
	eng.Evolve(15, func(u Update) {
		if u.Kind == "evolution_stopped" {
			finalUpdate = u
		}
	})

	require.Equal(t, 15, eng.Generation())
	require.Equal(t, "evolution_stopped", finalUpdate.Kind)
	require.Equal(t, 15, finalUpdate.GenerationsComplete)
	require.NotEmpty(t, finalUpdate.HallOfFame)
}

func TestStopHaltsLoopAtBoundary(t *testing.T) {
	X, y := quadraticDataset(30)
	cfg := DefaultConfig()
	cfg.PopulationSize = 20
	cfg.UpdateInterval = 0 // emit every generation so the observer sees generation 2
	eng, err := New(X, y, cfg)
	require.NoError(t, err)

	calls := 0
	eng.Evolve(100, func(u Update) {
		calls++
		if u.Kind == "generation_update" && u.Generation >= 2 {
			eng.Stop()
		}
	})

	require.LessOrEqual(t, eng.Generation(), 100)
	require.True(t, eng.Stopped())
}

func TestFitnessInvariantsHoldAfterEvaluation(t *testing.T) {
	X, y := quadraticDataset(40)
	cfg := DefaultConfig()
	cfg.PopulationSize = 30
	eng, err := New(X, y, cfg)
	require.NoError(t, err)

	EvaluateUnevaluated(eng.population, eng.Data, eng.adaptiveParsimony, 0)

	for _, ind := range eng.population.Individuals {
		f, valid := ind.Tree.Fitness()
		require.True(t, valid)
		require.GreaterOrEqual(t, f, 0.0)
		require.LessOrEqual(t, f, 1e10)
		require.True(t, !math.IsNaN(f) && !math.IsInf(f, 0))
		require.GreaterOrEqual(t, ind.Metrics.R2Train, 0.0)
		require.LessOrEqual(t, ind.Metrics.R2Train, 1.0)
	}
}

func TestCheckpointRoundTripProducesIdenticalContinuation(t *testing.T) {
	X, y := quadraticDataset(50)
	newEngine := func() *Engine {
		cfg := DefaultConfig()
		cfg.PopulationSize = 30
		cfg.Operators = []string{"+", "-", "*", "/"}
		cfg.Functions = []string{"sqrt", "abs"}
		cfg.RandomState = 11
		eng, err := New(X, y, cfg)
		require.NoError(t, err)
		return eng
	}

	engA := newEngine()
	engA.Evolve(10, nil)
	snap := engA.Capture()
	engA.Evolve(20, nil) // continue 10 more gens -> trace A
	traceAGen := engA.Generation()
	traceABestFitness, _ := engA.population.Best().Tree.Fitness()
	traceAEquation := engA.bestHOF.Top().String()

	engB := newEngine()
	require.NoError(t, engB.Restore(snap))
	engB.Evolve(20, nil) // from fresh restore, continue 10 gens -> trace B
	traceBGen := engB.Generation()
	traceBBestFitness, _ := engB.population.Best().Tree.Fitness()
	traceBEquation := engB.bestHOF.Top().String()

	require.Equal(t, traceAGen, traceBGen)
	require.Equal(t, traceAEquation, traceBEquation)
	require.InDelta(t, traceABestFitness, traceBBestFitness, 1e-9)
}

func TestProtectedDivSentinelYieldsConstantPrediction(t *testing.T) {
	set, err := primitive.NewSet([]string{"+", "-", "*", "/"}, nil, 1, []string{"x"})
	require.NoError(t, err)

	xTerm := primitive.NewVariableTerminal(0, "x")
	sub := &tree.Node{Prim: mustFindOp(set, "-"), Children: []*tree.Node{
		{Term: xTerm}, {Term: xTerm},
	}}
	divNode := &tree.Node{Prim: mustFindOp(set, "/"), Children: []*tree.Node{
		{Term: xTerm}, sub,
	}}

	tr := tree.New(divNode, set)
	for _, x := range []float64{-5, 0, 1, 3.14, 1e6} {
		pred := tr.Eval([]float64{x})
		require.InDelta(t, 1.0, pred, 1e-9)
	}
}

func mustFindOp(set *primitive.Set, name string) *primitive.Primitive {
	want := primitive.Operators[name]
	for _, p := range set.Primitives() {
		if p == want {
			return p
		}
	}
	panic("primitive not found: " + name)
}

func TestLexicographicTournamentPrefersSimplerNearTies(t *testing.T) {
	set, err := primitive.NewSet([]string{"+"}, nil, 1, []string{"x"})
	require.NoError(t, err)

	small := tree.New(&tree.Node{Term: primitive.NewVariableTerminal(0, "x")}, set)
	small.SetFitness(1.0)

	big := tree.New(&tree.Node{
		Prim: mustFindOp(set, "+"),
		Children: []*tree.Node{
			{Term: primitive.NewVariableTerminal(0, "x")},
			{Term: primitive.NewVariableTerminal(0, "x")},
		},
	}, set)
	big.SetFitness(1.01) // within 5% epsilon band of small's fitness

	pop := NewPopulation([]*tree.Tree{small, big})
	rng := rand.New(rand.NewSource(1))

	winner := LexicographicTournament(pop, 2, rng)
	require.Equal(t, small, winner.Tree)
}

func TestParetoFrontIsMonotoneImproving(t *testing.T) {
	X, y := quadraticDataset(50)
	cfg := DefaultConfig()
	cfg.PopulationSize = 30
	eng, err := New(X, y, cfg)
	require.NoError(t, err)
	eng.Evolve(10, nil)

	front := eng.ParetoFront()
	for i := 1; i < len(front); i++ {
		require.Greater(t, front[i].Complexity, front[i-1].Complexity)
		require.Greater(t, front[i].TestR2, front[i-1].TestR2)
	}
}
