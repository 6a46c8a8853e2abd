package model

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureResolveOnce(t *testing.T) {
	f := NewFuture()

	_, _, resolved := f.TryResult()
	assert.False(t, resolved)

	f.Resolve(true, nil)
	f.Resolve(false, errors.New("late")) // must be ignored

	ok, err, resolved := f.TryResult()
	require.True(t, resolved)
	assert.True(t, ok)
	assert.NoError(t, err)
}

func TestFutureConcurrentResolve(t *testing.T) {
	f := NewFuture()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			f.Resolve(n%2 == 0, nil)
		}(i)
	}
	wg.Wait()

	_, _, resolved := f.TryResult()
	assert.True(t, resolved)
}

func TestFutureWaitContext(t *testing.T) {
	f := NewFuture()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	f.Resolve(true, nil)
	ok, err := f.Wait(context.Background())
	assert.True(t, ok)
	assert.NoError(t, err)
}
