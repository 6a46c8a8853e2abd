// Package admission bounds the number of bookings being finalized at the
// same instant, independent of queue depth, providing backpressure under
// load.
package admission

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultLimit is the default number of concurrent commit finalizations.
const DefaultLimit = 5

// Gate is a bounded-concurrency admission limiter for commit operations.
type Gate struct {
	sem      *semaphore.Weighted
	limit    int64
	inFlight atomic.Int64
}

// NewGate creates a Gate admitting at most limit concurrent holders.
// If limit <= 0, DefaultLimit is used.
func NewGate(limit int64) *Gate {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Gate{
		sem:   semaphore.NewWeighted(limit),
		limit: limit,
	}
}

// Acquire blocks until an admission permit is available or ctx is canceled.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.inFlight.Add(1)
	return nil
}

// TryAcquire attempts to take a permit without blocking.
func (g *Gate) TryAcquire() bool {
	if !g.sem.TryAcquire(1) {
		return false
	}
	g.inFlight.Add(1)
	return true
}

// Release returns a permit.
func (g *Gate) Release() {
	g.inFlight.Add(-1)
	g.sem.Release(1)
}

// InFlight returns the number of currently admitted holders.
func (g *Gate) InFlight() int64 {
	return g.inFlight.Load()
}

// Limit returns the configured capacity.
func (g *Gate) Limit() int64 {
	return g.limit
}
