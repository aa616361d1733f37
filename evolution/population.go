package evolution

import (
	"math"

	"github.com/evotree/symreg/fitness"
	"github.com/evotree/symreg/tree"
)

// Individual wraps one evolved expression tree. Fitness lives on the tree
// itself (tree.Tree.Fitness); Individual exists as the unit selection and
// variation operate on, mirroring the population/individual split the
// original card-genome evolver used. Metrics holds the most recent
// train/test evaluation, kept alongside (not recomputed) until the tree's
// fitness is next invalidated.
type Individual struct {
	Tree    *tree.Tree
	Metrics fitness.SplitMetrics
}

// Clone deep-copies the individual, including its last-computed metrics.
func (ind *Individual) Clone() *Individual {
	return &Individual{Tree: ind.Tree.Clone(), Metrics: ind.Metrics}
}

// Population is an ordered collection of individuals for one generation.
type Population struct {
	Individuals []*Individual
}

// NewPopulation wraps a slice of trees as a population.
func NewPopulation(trees []*tree.Tree) *Population {
	individuals := make([]*Individual, len(trees))
	for i, t := range trees {
		individuals[i] = &Individual{Tree: t}
	}
	return &Population{Individuals: individuals}
}

// Size returns the number of individuals.
func (p *Population) Size() int { return len(p.Individuals) }

// Unevaluated returns every individual whose tree fitness is currently
// invalid.
func (p *Population) Unevaluated() []*Individual {
	var out []*Individual
	for _, ind := range p.Individuals {
		if _, valid := ind.Tree.Fitness(); !valid {
			out = append(out, ind)
		}
	}
	return out
}

// Best returns the individual with the lowest (best) fitness among those
// with a valid fitness. Returns nil if none are valid.
func (p *Population) Best() *Individual {
	var best *Individual
	var bestFitness float64
	for _, ind := range p.Individuals {
		f, valid := ind.Tree.Fitness()
		if !valid {
			continue
		}
		if best == nil || f < bestFitness {
			best = ind
			bestFitness = f
		}
	}
	return best
}

// AverageFitness returns the mean fitness across individuals with valid
// fitness, or 0 if none are valid.
func (p *Population) AverageFitness() float64 {
	sum := 0.0
	n := 0
	for _, ind := range p.Individuals {
		if f, valid := ind.Tree.Fitness(); valid {
			sum += f
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// AverageComplexity returns the mean tree size across the population.
func (p *Population) AverageComplexity() float64 {
	if len(p.Individuals) == 0 {
		return 0
	}
	sum := 0
	for _, ind := range p.Individuals {
		sum += ind.Tree.Size()
	}
	return float64(sum) / float64(len(p.Individuals))
}

// StdFitness returns the population standard deviation of valid fitness
// values.
func (p *Population) StdFitness() float64 {
	mean := p.AverageFitness()
	sum := 0.0
	n := 0
	for _, ind := range p.Individuals {
		if f, valid := ind.Tree.Fitness(); valid {
			d := f - mean
			sum += d * d
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}
