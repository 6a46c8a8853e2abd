// Package testutil provides a deterministic random source shared by the
// simulators and tests.
package testutil

import (
	"math/rand"
	"sync"
	"time"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Chance returns true with probability p (clamped to [0,1]).
func (r *RNG) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64() < p
}

// Pick returns a uniformly chosen element, or "" if items is empty.
func (r *RNG) Pick(items []string) string {
	if len(items) == 0 {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return items[r.rand.Intn(len(items))]
}

// DurationBetween returns a uniform duration in [minVal, maxVal].
func (r *RNG) DurationBetween(minVal, maxVal time.Duration) time.Duration {
	if maxVal <= minVal {
		return minVal
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return minVal + time.Duration(r.rand.Int63n(int64(maxVal-minVal)+1))
}
