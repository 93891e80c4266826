package core

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSequencedTaskRunner_FIFO verifies ordering on a multi-worker pool
// Given: A sequenced runner on a pool with 8 workers
// When: 500 tasks are posted
// Then: They run in posting order even though workers differ
func TestSequencedTaskRunner_FIFO(t *testing.T) {
	pool := newTestPool(t, 8)
	r := NewSequencedTaskRunner(pool)

	var order []int
	for i := 0; i < 500; i++ {
		r.PostTask(func(context.Context) {
			order = append(order, i)
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.WaitIdle(ctx))

	require.Len(t, order, 500)
	for i, v := range order {
		require.Equal(t, i, v)
	}
}

// TestSequencedTaskRunner_NoOverlap verifies mutual exclusion
// Given: Tasks posted from several goroutines to one sequenced runner
// When: Each task tracks the number of tasks in flight
// Then: At most one task runs at a time
func TestSequencedTaskRunner_NoOverlap(t *testing.T) {
	pool := newTestPool(t, 8)
	r := NewSequencedTaskRunner(pool)

	var inFlight atomic.Int32
	var overlap atomic.Bool
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.PostTask(func(context.Context) {
					if inFlight.Add(1) > 1 {
						overlap.Store(true)
					}
					inFlight.Add(-1)
				})
			}
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.WaitIdle(ctx))
	assert.False(t, overlap.Load())
}

// TestSequencedTaskRunner_PanicKeepsSequence verifies a panic does not stall
// the runner
// Given: A sequenced runner whose first task panics
// When: More tasks are posted behind it
// Then: They still run, and the panic reaches the pool's handler
func TestSequencedTaskRunner_PanicKeepsSequence(t *testing.T) {
	handler := &recordingPanicHandler{}
	pool := NewWorkerPoolWithConfig("seq-panic", 2, &RunnerConfig{PanicHandler: handler, Logger: NewNoOpLogger()})
	pool.Start(context.Background())
	defer pool.Stop()
	r := NewSequencedTaskRunner(pool)

	var ran atomic.Int32
	r.PostTask(func(context.Context) { panic("seq boom") })
	r.PostTask(func(context.Context) { ran.Add(1) })
	r.PostTask(func(context.Context) { ran.Add(1) })

	assert.Eventually(t, func() bool { return ran.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Equal(t, []any{"seq boom"}, handler.panics)
}

func TestSequencedTaskRunner_CurrentRunner(t *testing.T) {
	pool := newTestPool(t, 2)
	r := NewSequencedTaskRunner(pool)

	got := make(chan TaskRunner, 1)
	r.PostTask(func(ctx context.Context) { got <- GetCurrentTaskRunner(ctx) })

	select {
	case runner := <-got:
		assert.Same(t, r, runner)
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
	assert.Equal(t, "test-pool/sequenced", r.Name())
}

func TestSequencedTaskRunner_Shutdown(t *testing.T) {
	pool := newTestPool(t, 2)
	r := NewSequencedTaskRunner(pool)

	r.Shutdown()
	var ran atomic.Bool
	r.PostTask(func(context.Context) { ran.Store(true) })
	r.PostDelayedTask(func(context.Context) { ran.Store(true) }, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.False(t, ran.Load())
	assert.True(t, r.IsClosed())
	assert.Error(t, r.WaitIdle(context.Background()))
}

func TestSequencedTaskRunner_PostDelayedTask(t *testing.T) {
	pool := newTestPool(t, 2)
	r := NewSequencedTaskRunner(pool)

	done := make(chan struct{})
	r.PostDelayedTask(func(context.Context) { close(done) }, 10*time.Millisecond)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("delayed task did not run")
	}
}
