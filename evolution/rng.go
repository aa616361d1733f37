package evolution

import "math/rand"

// countingSource wraps a math/rand source and counts Int63 calls, so the
// engine can serialize "seed + draws consumed" instead of the source's
// opaque internal state, and reconstruct an equivalent generator on
// restore by reseeding and discarding that many draws. This is what makes
// the checkpoint round-trip invariant (spec.md S5) hold: two runs that
// issued the same draws up to the capture point produce identical
// continuations.
type countingSource struct {
	src   rand.Source
	seed  int64
	count uint64
}

func newCountingSource(seed int64) *countingSource {
	return &countingSource{src: rand.NewSource(seed), seed: seed}
}

func (c *countingSource) Int63() int64 {
	c.count++
	return c.src.Int63()
}

func (c *countingSource) Seed(seed int64) {
	c.seed = seed
	c.count = 0
	c.src.Seed(seed)
}

// newEngineRand builds a *rand.Rand backed by a countingSource, and
// returns the source alongside so its draw count can be read later.
func newEngineRand(seed int64) (*rand.Rand, *countingSource) {
	src := newCountingSource(seed)
	return rand.New(src), src
}

// engineRandFromDraws reconstructs a generator from a seed and draw count
// by reseeding and discarding that many draws.
func engineRandFromDraws(seed int64, count uint64) (*rand.Rand, *countingSource) {
	rng, src := newEngineRand(seed)
	for i := uint64(0); i < count; i++ {
		rng.Int63()
	}
	return rng, src
}
