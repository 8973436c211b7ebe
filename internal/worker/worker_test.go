package worker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerPool(t *testing.T) {
	assert.Equal(t, 4, NewPool(4).NumWorkers())
	assert.Equal(t, runtime.NumCPU(), NewPool(0).NumWorkers())
	assert.Equal(t, runtime.NumCPU(), NewPool(-5).NumWorkers())
}

func TestWorkerPoolStartStop(t *testing.T) {
	pool := NewPool(2)
	ctx := context.Background()

	pool.Start(ctx)
	pool.Start(ctx)

	pool.Stop()
	pool.Stop()
}

func TestWorkerPoolSubmit(t *testing.T) {
	pool := NewPool(2)
	pool.Start(context.Background())
	defer pool.Stop()

	var counter atomic.Int32
	for range 10 {
		require.True(t, pool.Submit(func(context.Context) { counter.Add(1) }))
	}

	assert.Eventually(t, func() bool { return counter.Load() == 10 }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return pool.Completed() == 10 }, time.Second, time.Millisecond)
}

func TestWorkerPoolSubmitBeforeStart(t *testing.T) {
	pool := NewPool(1)
	assert.False(t, pool.Submit(func(context.Context) {}))
	assert.False(t, pool.SubmitWait(func(context.Context) {}))
	assert.Equal(t, uint64(2), pool.Rejected())
}

func TestWorkerPoolSubmitAfterStop(t *testing.T) {
	pool := NewPool(2)
	pool.Start(context.Background())
	pool.Stop()

	assert.False(t, pool.Submit(func(context.Context) {}))
}

func TestWorkerPoolSubmitFullQueue(t *testing.T) {
	pool := NewPoolWithConfig(PoolConfig{NumWorkers: 1, QueueFactor: 1})
	pool.Start(context.Background())
	defer pool.Stop()

	blocker := make(chan struct{})
	started := make(chan struct{})
	require.True(t, pool.Submit(func(context.Context) {
		close(started)
		<-blocker
	}))
	<-started

	require.True(t, pool.Submit(func(context.Context) {}))
	assert.False(t, pool.Submit(func(context.Context) {}), "queue of one is full")
	assert.Equal(t, 1, pool.QueueSize())

	close(blocker)
}

func TestWorkerPoolJobsSeeCancellation(t *testing.T) {
	pool := NewPool(1)
	pool.Start(context.Background())

	started := make(chan struct{})
	var sawCancel atomic.Bool
	require.True(t, pool.Submit(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
	}))
	<-started

	pool.Stop()
	assert.True(t, sawCancel.Load(), "Stop waits for running jobs after cancelling them")
}

func TestWorkerPoolContextCancel(t *testing.T) {
	pool := NewPool(2)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	cancel()

	assert.False(t, pool.Submit(func(context.Context) {}))
	assert.False(t, pool.SubmitWait(func(context.Context) {}))

	pool.Stop()
}

func TestWorkerPoolSubmitWait(t *testing.T) {
	pool := NewPoolWithConfig(PoolConfig{NumWorkers: 2, QueueFactor: 1})
	pool.Start(context.Background())
	defer pool.Stop()

	var counter atomic.Int32
	for range 50 {
		require.True(t, pool.SubmitWait(func(context.Context) {
			time.Sleep(time.Millisecond)
			counter.Add(1)
		}))
	}

	assert.Eventually(t, func() bool { return counter.Load() == 50 }, 2*time.Second, time.Millisecond)
}

func TestWorkerPoolConcurrentSubmit(t *testing.T) {
	pool := NewPool(4)
	pool.Start(context.Background())
	defer pool.Stop()

	const (
		numGoroutines    = 10
		jobsPerGoroutine = 100
	)

	var counter atomic.Int32
	var wg sync.WaitGroup
	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobsPerGoroutine {
				pool.SubmitWait(func(context.Context) { counter.Add(1) })
			}
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		return counter.Load() == numGoroutines*jobsPerGoroutine
	}, time.Second, time.Millisecond)
}
