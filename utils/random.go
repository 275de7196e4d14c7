package utils

import (
	"errors"
	"math/rand/v2"
	"time"
)

var (
	ErrEmptyChoice     = errors.New("no items to choose from")
	ErrWeightsMismatch = errors.New("items and weights differ in length")
	ErrInvalidWeights  = errors.New("weights must be non-negative with a positive sum")
)

// NewRand returns a seeded source. A zero seed draws one from the clock.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// WeightedChoice picks one of items with probability proportional to its weight.
func WeightedChoice[T any](r *rand.Rand, items []T, weights []float64) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, ErrEmptyChoice
	}
	if len(items) != len(weights) {
		return zero, ErrWeightsMismatch
	}
	total := 0.0
	for _, w := range weights {
		if w < 0 {
			return zero, ErrInvalidWeights
		}
		total += w
	}
	if total <= 0 {
		return zero, ErrInvalidWeights
	}
	x := r.Float64() * total
	for i, w := range weights {
		if x < w {
			return items[i], nil
		}
		x -= w
	}
	// float rounding can leave x just past the last bucket
	for i := len(items) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return items[i], nil
		}
	}
	return zero, ErrInvalidWeights
}

// Pick returns a uniformly chosen element. items must not be empty.
func Pick[T any](r *rand.Rand, items []T) T {
	return items[r.IntN(len(items))]
}

// IntBetween returns a uniform integer in [lo, hi].
func IntBetween(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}

// FloatBetween returns a uniform float in [lo, hi).
func FloatBetween(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// Sample returns k distinct elements of items in random order.
func Sample[T any](r *rand.Rand, items []T, k int) []T {
	if k > len(items) {
		k = len(items)
	}
	perm := r.Perm(len(items))
	out := make([]T, 0, k)
	for _, idx := range perm[:k] {
		out = append(out, items[idx])
	}
	return out
}
