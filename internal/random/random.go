// Package random defines the injectable random source used by every
// stochastic step of signature generation, plus the range helpers the
// stages share.
package random

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source is the random capability threaded through generation.
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
	Float64() float64
}

// New returns a Source seeded with seed. A zero seed draws one from the
// wall clock, which is what production runs use.
func New(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Locked makes src safe for concurrent use by serializing every draw.
func Locked(src Source) Source {
	if l, ok := src.(*locked); ok {
		return l
	}
	return &locked{src: src}
}

type locked struct {
	mu  sync.Mutex
	src Source
}

func (l *locked) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}

func (l *locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

// Between returns an integer in the closed range [lo, hi].
func Between(r Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}

// Uniform returns a float in [lo, hi).
func Uniform(r Source, lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

// Chance reports true with probability p.
func Chance(r Source, p float64) bool {
	return r.Float64() < p
}

// OneOf returns a or b with equal probability.
func OneOf(r Source, a, b int) int {
	if r.IntN(2) == 0 {
		return a
	}
	return b
}
