package utils

import (
	"math/rand"
	"time"
)

// RandSource is a seeded random number generator. One source is owned by one
// episode; it is not safe for concurrent use.
type RandSource struct {
	rng *rand.Rand
}

// NewRandSource creates a new random source with the given seed. A zero seed
// picks one from the clock.
func NewRandSource(seed int64) *RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSource{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	return r.rng.Float64()
}

// Intn returns a random int in [0, n)
func (r *RandSource) Intn(n int) int {
	return r.rng.Intn(n)
}

// IntRange returns a random int in [lo, hi], both ends inclusive
func (r *RandSource) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.rng.Intn(hi-lo+1)
}

// BernoulliBool returns true with probability p, false otherwise
func (r *RandSource) BernoulliBool(p float64) bool {
	return r.rng.Float64() < p
}

// WeightedIndex draws an index with probability proportional to its weight.
// Non-positive weights are never drawn. It returns -1 when all weights are
// non-positive.
func (r *RandSource) WeightedIndex(weights []float32) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += float64(w)
		}
	}
	if total <= 0 {
		return -1
	}

	target := r.rng.Float64() * total
	acc := 0.0
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += float64(w)
		last = i
		if target < acc {
			return i
		}
	}
	// Rounding can leave target a hair above the final sum
	return last
}
