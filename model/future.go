package model

import (
	"context"
	"sync"
)

// Future is a single-resolution result slot for an asynchronous operation.
//
// Producers call Resolve exactly once; later calls are no-ops. Consumers
// either block on Wait, select on Done, or poll with TryResult.
type Future struct {
	once sync.Once
	done chan struct{}
	ok   bool
	err  error
}

// NewFuture creates an unresolved Future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolve fulfils the future. Only the first call has any effect.
func (f *Future) Resolve(ok bool, err error) {
	f.once.Do(func() {
		f.ok = ok
		f.err = err
		close(f.done)
	})
}

// Done returns a channel closed when the future is resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// TryResult returns the result without blocking.
// resolved is false if the future has not been fulfilled yet.
func (f *Future) TryResult() (ok bool, err error, resolved bool) {
	select {
	case <-f.done:
		return f.ok, f.err, true
	default:
		return false, nil, false
	}
}

// Wait blocks until the future is resolved or ctx is canceled.
func (f *Future) Wait(ctx context.Context) (bool, error) {
	select {
	case <-f.done:
		return f.ok, f.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
