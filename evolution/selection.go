package evolution

import (
	"math"
	"math/rand"
)

// LexicographicEpsilon is the relative band within which two fitness values
// are treated as a near-tie, so selection falls back to preferring the
// smaller tree (spec.md §4.4).
const LexicographicEpsilon = 0.05

// DefaultTournamentSize is T in the lexicographic tournament.
const DefaultTournamentSize = 7

// DefaultParsimonySize is the replacement-probability parameter of the
// double tournament's second stage.
const DefaultParsimonySize = 1.4

// LexicographicTournament samples tournamentSize individuals uniformly at
// random, finds the best (lowest) fitness f* among them, then returns the
// smallest tree among all candidates whose fitness is within
// LexicographicEpsilon*max(1, |f*|) of f*. Ties within the band are broken
// by earliest sampled index.
func LexicographicTournament(pop *Population, tournamentSize int, rng *rand.Rand) *Individual {
	candidates := sampleIndices(len(pop.Individuals), tournamentSize, rng)

	best := -1
	bestFitness := 0.0
	for _, idx := range candidates {
		f, _ := pop.Individuals[idx].Tree.Fitness()
		if best == -1 || f < bestFitness {
			best = idx
			bestFitness = f
		}
	}

	band := LexicographicEpsilon * math.Max(1, math.Abs(bestFitness))
	threshold := bestFitness + band

	winner := -1
	winnerSize := 0
	for _, idx := range candidates {
		f, _ := pop.Individuals[idx].Tree.Fitness()
		if f > threshold {
			continue
		}
		size := pop.Individuals[idx].Tree.Size()
		if winner == -1 || size < winnerSize {
			winner = idx
			winnerSize = size
		}
	}
	return pop.Individuals[winner]
}

// DoubleTournament runs a fitness tournament of size fitnessSize, then with
// probability 1/parsimonySize considers a single random challenger: the
// challenger replaces the stage-1 winner iff it is strictly smaller and its
// fitness is within 1.5x of the winner's fitness.
func DoubleTournament(pop *Population, fitnessSize int, parsimonySize float64, rng *rand.Rand) *Individual {
	candidates := sampleIndices(len(pop.Individuals), fitnessSize, rng)

	winner := candidates[0]
	winnerFitness, _ := pop.Individuals[winner].Tree.Fitness()
	for _, idx := range candidates[1:] {
		f, _ := pop.Individuals[idx].Tree.Fitness()
		if f < winnerFitness {
			winner = idx
			winnerFitness = f
		}
	}

	if parsimonySize <= 0 || rng.Float64() >= 1.0/parsimonySize {
		return pop.Individuals[winner]
	}

	challenger := rng.Intn(len(pop.Individuals))
	challengerFitness, _ := pop.Individuals[challenger].Tree.Fitness()

	winnerSize := pop.Individuals[winner].Tree.Size()
	challengerSize := pop.Individuals[challenger].Tree.Size()

	if challengerSize < winnerSize && challengerFitness <= winnerFitness*1.5 {
		return pop.Individuals[challenger]
	}
	return pop.Individuals[winner]
}

func sampleIndices(n, k int, rng *rand.Rand) []int {
	if k > n {
		k = n
	}
	if k < 1 {
		k = 1
	}
	return rng.Perm(n)[:k]
}
