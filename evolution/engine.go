// Package evolution implements the generation loop: selection, variation
// under a static size limit, adaptive parsimony, dual hall-of-fame
// tracking, and incremental streaming of generation updates.
package evolution

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/evotree/symreg/fitness"
	"github.com/evotree/symreg/primitive"
	"github.com/evotree/symreg/tree"
)

// Config holds every recognized engine construction parameter (spec.md §6).
type Config struct {
	VariableNames []string

	Operators []string
	Functions []string

	PopulationSize       int
	MutationProb         float64
	CrossoverProb        float64
	TournamentSize       int
	MaxDepth             int
	ParsimonyCoefficient float64
	UpdateInterval       time.Duration
	TestSize             float64
	RandomState          int64

	// SelectionMethod chooses the parent-selection operator: "lexicographic"
	// (default) or "double_tournament" (spec.md:128 — "available, used when
	// configured"). Unrecognized values fall back to lexicographic.
	SelectionMethod string
	ParsimonySize   float64

	NumWorkers int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Operators:            primitive.DefaultOperatorNames,
		Functions:            primitive.DefaultFunctionNames,
		PopulationSize:       300,
		MutationProb:         0.2,
		CrossoverProb:        0.5,
		TournamentSize:       7,
		MaxDepth:             4,
		ParsimonyCoefficient: fitness.DefaultParsimonyAlpha,
		UpdateInterval:       500 * time.Millisecond,
		TestSize:             0.2,
		RandomState:          42,
		SelectionMethod:      "lexicographic",
		ParsimonySize:        DefaultParsimonySize,
		NumWorkers:           0,
	}
}

const maxPopulationSize = 500

// Dataset is the coerced, split input: X as (m, n) and y as length-m,
// already partitioned into train/test.
type Dataset struct {
	XTrain, XTest [][]float64
	YTrain, YTest []float64
	NFeatures     int
}

// ConfigError reports an invalid engine construction parameter (spec.md §7).
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "gp: config error: " + e.Msg }

// splitDataset performs a deterministic train/test split seeded by
// randomState: a Fisher-Yates shuffle of row indices, then a straight cut
// at testSize fraction.
func splitDataset(X [][]float64, y []float64, testSize float64, randomState int64) (*Dataset, error) {
	m := len(X)
	if m == 0 {
		return nil, &ConfigError{Msg: "empty dataset"}
	}
	if len(y) != m {
		return nil, &ConfigError{Msg: fmt.Sprintf("X has %d rows, y has %d", m, len(y))}
	}
	n := len(X[0])
	for _, row := range X {
		if len(row) != n {
			return nil, &ConfigError{Msg: "ragged feature matrix"}
		}
	}

	rng := rand.New(rand.NewSource(randomState))
	perm := rng.Perm(m)

	nTest := int(float64(m) * testSize)
	if nTest < 1 && m > 1 {
		nTest = 1
	}
	if nTest >= m {
		nTest = m - 1
	}
	nTrain := m - nTest

	ds := &Dataset{NFeatures: n}
	for i := 0; i < nTrain; i++ {
		idx := perm[i]
		ds.XTrain = append(ds.XTrain, X[idx])
		ds.YTrain = append(ds.YTrain, y[idx])
	}
	for i := nTrain; i < m; i++ {
		idx := perm[i]
		ds.XTest = append(ds.XTest, X[idx])
		ds.YTest = append(ds.YTest, y[idx])
	}
	return ds, nil
}

// GenerationStats is the per-emission record (spec.md §3).
type GenerationStats struct {
	Generation        int
	ElapsedTime       time.Duration
	GensPerSec        float64
	BestFitness       float64
	AvgFitness        float64
	StdFitness        float64
	BestComplexity    int
	AvgComplexity     float64
	TrainR2           float64
	TestR2            float64
	OverfitGap        float64
	AIC               float64
	BIC               float64
	ParsimonyScore    float64
	AdaptiveParsimony float64
	BestEquation      string

	// EvalsSanitized counts predictions replaced by the protected-op
	// sentinel during this generation's evaluation (spec.md §6 EvalError
	// absorption counters) — diagnostic only, never fed back into Score.
	EvalsSanitized int
}

// Update is one streamed message (C7). Kind distinguishes the three
// message shapes spec.md §4.7 names.
type Update struct {
	Kind string // "generation_update", "evolution_stopped", or "error"

	Generation          int
	ElapsedTime         time.Duration
	Stats               GenerationStats
	Best                BestSummary
	HallOfFame          []string

	Status              string
	GenerationsComplete int
	ParetoFront         []ParetoPoint
	BestEquation        string
	BestFitness         float64

	Message string
}

// BestSummary is the `best` payload of a generation_update message.
type BestSummary struct {
	Equation  string
	PredTrain []float64
	PredTest  []float64
	X         []float64 // original x values when NFeatures == 1
	Indices   []int      // sample indices otherwise
	Metrics   fitness.SplitMetrics
}

// ParetoPoint is one element of the final Pareto front.
type ParetoPoint struct {
	Complexity int
	TestR2     float64
	Equation   string
}

// Observer receives one Update per emission. The engine awaits it;
// returning does not block the generation loop further than the call
// itself. A panic inside Observer is recovered and logged by the engine
// (CallbackError, spec.md §7) — the loop continues.
type Observer func(Update)

// Engine drives the generation loop end to end.
type Engine struct {
	Config *Config
	Set    *primitive.Set
	Data   *Dataset

	rng    *rand.Rand
	rngSrc *countingSource

	population *Population
	generation int

	bestHOF   *BestFitnessHOF
	simpleHOF *SimplestGoodHOF

	adaptiveParsimony float64
	statsHistory      []GenerationStats

	stopped bool

	startTime    time.Time
	lastEmission time.Time
}

// New constructs an engine from X, y, and config. config may be nil for
// DefaultConfig. Returns a ConfigError if the dataset or config is
// malformed.
func New(X [][]float64, y []float64, config *Config) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.PopulationSize > maxPopulationSize {
		config.PopulationSize = maxPopulationSize
	}
	if config.PopulationSize < 1 {
		return nil, &ConfigError{Msg: "population_size must be >= 1"}
	}

	data, err := splitDataset(X, y, config.TestSize, config.RandomState)
	if err != nil {
		return nil, err
	}

	variableNames := config.VariableNames
	set, err := primitive.NewSet(config.Operators, config.Functions, data.NFeatures, variableNames)
	if err != nil {
		return nil, &ConfigError{Msg: err.Error()}
	}

	rng, rngSrc := newEngineRand(config.RandomState)
	trees := tree.GeneratePopulation(config.PopulationSize, set, config.MaxDepth, rng)

	return &Engine{
		Config:            config,
		Set:               set,
		Data:              data,
		rng:               rng,
		rngSrc:            rngSrc,
		population:        NewPopulation(trees),
		bestHOF:           NewBestFitnessHOF(),
		simpleHOF:         NewSimplestGoodHOF(),
		adaptiveParsimony: config.ParsimonyCoefficient,
	}, nil
}

// Stop requests the generation loop halt at the next generation boundary.
// Idempotent, non-blocking (spec.md §6).
func (e *Engine) Stop() { e.stopped = true }

// Stopped reports whether Stop has been called.
func (e *Engine) Stopped() bool { return e.stopped }

// Generation returns the current generation index.
func (e *Engine) Generation() int { return e.generation }

// Evolve runs the generation loop until maxGenerations is reached or Stop
// is called, emitting updates to observer at most once per
// Config.UpdateInterval plus a final evolution_stopped message.
func (e *Engine) Evolve(maxGenerations int, observer Observer) {
	e.startTime = time.Now()
	e.lastEmission = time.Time{}

	EvaluateUnevaluated(e.population, e.Data, e.adaptiveParsimony, e.Config.NumWorkers)
	e.updateHOFs()

	for e.generation < maxGenerations && !e.stopped {
		e.generation++
		e.adaptiveParsimony = e.Config.ParsimonyCoefficient * min64(1+float64(e.generation)/200, 5.0)

		offspring := e.createOffspring()
		e.pruneOversized(offspring)
		e.population = NewPopulation(nil)
		e.population.Individuals = offspring

		sanitized := EvaluateUnevaluated(e.population, e.Data, e.adaptiveParsimony, e.Config.NumWorkers)
		e.updateHOFs()

		stats := e.computeStats()
		stats.EvalsSanitized = sanitized
		e.statsHistory = append(e.statsHistory, stats)

		if observer != nil && time.Since(e.lastEmission) >= e.Config.UpdateInterval {
			e.emit(observer, stats)
			e.lastEmission = time.Now()
		}
	}

	if observer != nil {
		e.emitFinal(observer)
	}
}

// createOffspring performs selection + crossover + mutation to produce the
// next generation one pair at a time. For each pair the RNG draws are, in
// order: two parent selections, the crossover decision, then one mutation
// decision per child. Selection is interleaved with variation; the whole
// offspring population is not selected before the first crossover.
func (e *Engine) createOffspring() []*Individual {
	n := e.Config.PopulationSize
	offspring := make([]*Individual, 0, n)

	for len(offspring) < n {
		p1 := e.selectParent()
		p2 := e.selectParent()

		c1, c2 := p1.Clone(), p2.Clone()

		if e.rng.Float64() < e.Config.CrossoverProb {
			before1, before2 := c1.Tree.Clone(), c2.Tree.Clone()
			tree.Crossover(c1.Tree, c2.Tree, e.rng)
			e.revertIfOversized(c1, before1)
			e.revertIfOversized(c2, before2)
		}

		if e.rng.Float64() < e.Config.MutationProb {
			before := c1.Tree.Clone()
			tree.Mutate(c1.Tree, e.rng)
			e.revertIfOversized(c1, before)
		}
		if e.rng.Float64() < e.Config.MutationProb {
			before := c2.Tree.Clone()
			tree.Mutate(c2.Tree, e.rng)
			e.revertIfOversized(c2, before)
		}

		offspring = append(offspring, c1)
		if len(offspring) < n {
			offspring = append(offspring, c2)
		}
	}
	return offspring[:n]
}

// selectParent dispatches to the configured selection operator
// (spec.md:128: lexicographic tournament by default, double tournament
// when Config.SelectionMethod requests it).
func (e *Engine) selectParent() *Individual {
	if e.Config.SelectionMethod == "double_tournament" {
		parsimonySize := e.Config.ParsimonySize
		if parsimonySize <= 0 {
			parsimonySize = DefaultParsimonySize
		}
		return DoubleTournament(e.population, e.Config.TournamentSize, parsimonySize, e.rng)
	}
	return LexicographicTournament(e.population, e.Config.TournamentSize, e.rng)
}

// revertIfOversized implements the static-limit decorator semantics: if
// ind's tree now exceeds MaxTreeSize, replace it with the pre-variation
// parent (OversizeRestart, spec.md §7) rather than a structural error.
func (e *Engine) revertIfOversized(ind *Individual, parent *tree.Tree) {
	if ind.Tree.Size() > tree.MaxTreeSize {
		ind.Tree = parent
	}
}

// pruneOversized is the generation-loop-level defense layered on top of
// revertIfOversized: any offspring that still exceeds MaxTreeSize after
// revert-to-parent (a degenerate parent, or a parent inherited from a
// prior prune) is discarded outright and replaced with a fresh random
// individual rather than patched (StructuralError, spec.md §7), mirroring
// the per-generation prune pass in the original's evolve loop.
func (e *Engine) pruneOversized(offspring []*Individual) {
	for _, ind := range offspring {
		if ind.Tree.Size() > tree.MaxTreeSize {
			ind.Tree = tree.RandomTree(e.Set, e.Config.MaxDepth, e.rng)
		}
	}
}

func (e *Engine) updateHOFs() {
	for _, ind := range e.population.Individuals {
		_, valid := ind.Tree.Fitness()
		if !valid {
			continue
		}
		e.bestHOF.Consider(ind.Tree, ind.Metrics.R2Train)
		e.simpleHOF.Consider(ind.Tree, ind.Metrics.R2Train)
	}
}

// parsimoniousPick implements the "best reported" rule (spec.md §4.6): if
// the simplest-good HOF's top member is nearly as accurate as the
// best-fitness HOF's top member (train R² within 5%) and strictly smaller,
// report it instead.
func (e *Engine) parsimoniousPick() *tree.Tree {
	bestTop := e.bestHOF.Top()
	if bestTop == nil {
		return nil
	}
	simpleTop := e.simpleHOF.Top()
	if simpleTop == nil {
		return bestTop
	}

	bestR2 := e.bestHOF.TopTrainR2()
	simpleR2 := e.simpleHOF.TopTrainR2()

	if simpleR2 >= 0.95*bestR2 && simpleTop.Size() < bestTop.Size() {
		return simpleTop
	}
	return bestTop
}

func (e *Engine) computeStats() GenerationStats {
	best := e.population.Best()
	elapsed := time.Since(e.startTime)
	gensPerSec := 0.0
	if elapsed.Seconds() > 0 {
		gensPerSec = float64(e.generation) / elapsed.Seconds()
	}

	stats := GenerationStats{
		Generation:        e.generation,
		ElapsedTime:       elapsed,
		GensPerSec:        gensPerSec,
		AvgFitness:        e.population.AverageFitness(),
		StdFitness:        e.population.StdFitness(),
		AvgComplexity:     e.population.AverageComplexity(),
		AdaptiveParsimony: e.adaptiveParsimony,
	}

	if best != nil {
		f, _ := best.Tree.Fitness()
		stats.BestFitness = f
		stats.BestComplexity = best.Tree.Size()
		stats.TrainR2 = best.Metrics.R2Train
		stats.TestR2 = best.Metrics.R2Test
		stats.OverfitGap = best.Metrics.OverfitGap
		stats.AIC = best.Metrics.AIC
		stats.BIC = best.Metrics.BIC
		stats.ParsimonyScore = best.Metrics.ParsimonyScore
		stats.BestEquation = best.Tree.String()
	}
	return stats
}

func (e *Engine) emit(observer Observer, stats GenerationStats) {
	defer func() {
		if r := recover(); r != nil {
			// CallbackError: logged, loop continues (spec.md §7).
			fmt.Printf("gp: observer panicked: %v\n", r)
		}
	}()

	best := e.population.Best()
	var summary BestSummary
	if best != nil {
		summary = BestSummary{
			Equation:  best.Tree.String(),
			PredTrain: best.Tree.Predict(e.Data.XTrain),
			PredTest:  best.Tree.Predict(e.Data.XTest),
			Metrics:   best.Metrics,
		}
		if e.Data.NFeatures == 1 {
			for _, row := range append(append([][]float64{}, e.Data.XTrain...), e.Data.XTest...) {
				summary.X = append(summary.X, row[0])
			}
		} else {
			for i := range e.Data.XTrain {
				summary.Indices = append(summary.Indices, i)
			}
		}
	}

	hofEquations := make([]string, 0, 5)
	for i, t := range e.bestHOF.Members() {
		if i >= 5 {
			break
		}
		hofEquations = append(hofEquations, t.String())
	}

	observer(Update{
		Kind:        "generation_update",
		Generation:  e.generation,
		ElapsedTime: stats.ElapsedTime,
		Stats:       stats,
		Best:        summary,
		HallOfFame:  hofEquations,
	})
}

func (e *Engine) emitFinal(observer Observer) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("gp: observer panicked: %v\n", r)
		}
	}()

	status := "completed"
	if e.stopped {
		status = "stopped"
	}

	pick := e.parsimoniousPick()
	bestEquation, bestFitness := "", 0.0
	if pick != nil {
		bestEquation = pick.String()
		if f, valid := pick.Fitness(); valid {
			bestFitness = f
		}
	}

	hofEquations := make([]string, 0, len(e.bestHOF.Members()))
	for _, t := range e.bestHOF.Members() {
		hofEquations = append(hofEquations, t.String())
	}

	observer(Update{
		Kind:                "evolution_stopped",
		Status:              status,
		ElapsedTime:         time.Since(e.startTime),
		GenerationsComplete: e.generation,
		HallOfFame:          hofEquations,
		ParetoFront:         e.ParetoFront(),
		BestEquation:        bestEquation,
		BestFitness:         bestFitness,
	})
}

// ParetoFront extracts the complexity/test-R² frontier from the
// best-fitness HOF: sort ascending by complexity, scan keeping a running
// max of test R², emit each tree that strictly improves it (spec.md §4.6).
// HOF members carry no metrics (insertion deep-copies the tree with its
// fitness only), so test R² is recomputed here from each tree's
// predictions on the test split.
func (e *Engine) ParetoFront() []ParetoPoint {
	members := append([]*tree.Tree(nil), e.bestHOF.Members()...)
	sortTreesByComplexity(members)

	var front []ParetoPoint
	runningMax := -1.0
	for _, t := range members {
		pred := t.Predict(e.Data.XTest)
		r2 := fitness.RSquared(e.Data.YTest, fitness.SanitizePredictions(pred))
		if r2 > runningMax {
			runningMax = r2
			front = append(front, ParetoPoint{Complexity: t.Size(), TestR2: r2, Equation: t.String()})
		}
	}
	return front
}

func sortTreesByComplexity(members []*tree.Tree) {
	for i := 1; i < len(members); i++ {
		j := i
		for j > 0 && members[j-1].Size() > members[j].Size() {
			members[j-1], members[j] = members[j], members[j-1]
			j--
		}
	}
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
