package gp

import (
	"math/rand/v2"
	"slices"
)

// crossover swaps a random subtree of a with a random subtree of b.
// Roots are never chosen, so single-node trees are returned unchanged.
func crossover(a, b Tree, rng *rand.Rand) (Tree, Tree) {
	if len(a) < 2 || len(b) < 2 {
		return a, b
	}
	i := 1 + rng.IntN(len(a)-1)
	j := 1 + rng.IntN(len(b)-1)
	ie, je := a.subtree(i), b.subtree(j)

	ca := slices.Concat(a[:i], b[j:je], a[ie:])
	cb := slices.Concat(b[:j], a[i:ie], b[je:])
	return ca, cb
}

// mutate replaces a random subtree of t with a freshly generated one.
func mutate(t Tree, rng *rand.Rand, minHeight, maxHeight int) Tree {
	i := rng.IntN(len(t))
	end := t.subtree(i)
	return slices.Concat(t[:i], Full(rng, minHeight, maxHeight), t[end:])
}

// tournamentSelect returns the index of the fittest of size random draws.
func tournamentSelect(fitness []float64, size int, rng *rand.Rand) int {
	best := rng.IntN(len(fitness))
	for i := 1; i < size; i++ {
		cand := rng.IntN(len(fitness))
		if fitness[cand] < fitness[best] {
			best = cand
		}
	}
	return best
}
