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

func newTestLoop(t *testing.T, name string) *Loop {
	t.Helper()
	l := NewLoopWithConfig(name, &RunnerConfig{Logger: NewNoOpLogger()})
	t.Cleanup(l.Stop)
	return l
}

// TestLoop_ExecutionOrder verifies FIFO execution
// Given: A loop and 100 tasks posted from one goroutine
// When: The loop drains
// Then: Tasks ran in posting order
func TestLoop_ExecutionOrder(t *testing.T) {
	l := newTestLoop(t, "order")

	var order []int
	for i := 0; i < 100; i++ {
		l.PostTask(func(context.Context) {
			order = append(order, i)
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, l.WaitIdle(ctx))

	require.Len(t, order, 100)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

// TestLoop_NoConcurrentTasks verifies tasks never overlap
// Given: Tasks posted from many goroutines at once
// When: Each task tracks how many tasks are in flight
// Then: The in-flight count never exceeds one
func TestLoop_NoConcurrentTasks(t *testing.T) {
	l := newTestLoop(t, "exclusive")

	var inFlight, maxInFlight atomic.Int32
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				l.PostTask(func(context.Context) {
					n := inFlight.Add(1)
					if n > maxInFlight.Load() {
						maxInFlight.Store(n)
					}
					inFlight.Add(-1)
				})
			}
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, l.WaitIdle(ctx))

	assert.Equal(t, int32(1), maxInFlight.Load())
	assert.GreaterOrEqual(t, l.Stats().Executed, int64(400))
}

// TestLoop_TaskPostsToItself verifies re-entrant posting
// Given: A task that posts another task to the same loop
// When: The first task returns
// Then: The second task runs after it, never inside it
func TestLoop_TaskPostsToItself(t *testing.T) {
	l := newTestLoop(t, "reentrant")

	var steps []string
	done := make(chan struct{})
	l.PostTask(func(ctx context.Context) {
		GetCurrentTaskRunner(ctx).PostTask(func(context.Context) {
			steps = append(steps, "inner")
			close(done)
		})
		steps = append(steps, "outer")
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("inner task did not run")
	}
	assert.Equal(t, []string{"outer", "inner"}, steps)
}

type recordingPanicHandler struct {
	mu     sync.Mutex
	panics []any
	runner string
	worker int
}

func (h *recordingPanicHandler) HandlePanic(ctx context.Context, runnerName string, workerID int, panicInfo any, stackTrace []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panics = append(h.panics, panicInfo)
	h.runner = runnerName
	h.worker = workerID
}

// TestLoop_PanicIsolation verifies a panicking task does not kill the loop
// Given: A loop with a recording panic handler
// When: A task panics and another task is posted after it
// Then: The handler sees the panic and the following task still runs
func TestLoop_PanicIsolation(t *testing.T) {
	handler := &recordingPanicHandler{}
	l := NewLoopWithConfig("panicky", &RunnerConfig{PanicHandler: handler, Logger: NewNoOpLogger()})
	defer l.Stop()

	var ran atomic.Bool
	l.PostTask(func(context.Context) { panic("boom") })
	l.PostTask(func(context.Context) { ran.Store(true) })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, l.WaitIdle(ctx))

	assert.True(t, ran.Load())
	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Equal(t, []any{"boom"}, handler.panics)
	assert.Equal(t, "panicky", handler.runner)
	assert.Equal(t, -1, handler.worker)
	assert.Equal(t, int64(1), l.Stats().Panics)
}

// TestLoop_ShutdownRunsQueuedTasks verifies Shutdown semantics
// Given: A loop blocked on a gated task with more tasks queued behind it
// When: Shutdown is called and the gate opens
// Then: Queued tasks still run, new posts are rejected
func TestLoop_ShutdownRunsQueuedTasks(t *testing.T) {
	l := newTestLoop(t, "shutdown")

	gate := make(chan struct{})
	var count atomic.Int32
	l.PostTask(func(context.Context) { <-gate })
	for i := 0; i < 3; i++ {
		l.PostTask(func(context.Context) { count.Add(1) })
	}

	l.Shutdown()
	l.PostTask(func(context.Context) { count.Add(100) })
	close(gate)

	assert.Eventually(t, func() bool { return count.Load() == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, l.IsClosed())
	assert.Equal(t, int64(1), l.Stats().Rejected)

	err := l.WaitIdle(context.Background())
	assert.Error(t, err)
}

// TestLoop_StopAbandonsQueue verifies Stop drops pending tasks
// Given: A loop blocked on a gated task with tasks queued behind it
// When: Stop is called
// Then: Stop returns after the running task, and queued tasks never run
func TestLoop_StopAbandonsQueue(t *testing.T) {
	l := NewLoopWithConfig("stop", &RunnerConfig{Logger: NewNoOpLogger()})

	started := make(chan struct{})
	var ran atomic.Bool
	l.PostTask(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	})
	l.PostTask(func(context.Context) { ran.Store(true) })
	<-started

	l.Stop()

	assert.False(t, ran.Load())
	assert.Equal(t, 0, l.Stats().Pending)
}

func TestLoop_PostDelayedTask(t *testing.T) {
	l := newTestLoop(t, "delayed")

	start := time.Now()
	fired := make(chan time.Duration, 1)
	l.PostDelayedTask(func(context.Context) { fired <- time.Since(start) }, 30*time.Millisecond)

	select {
	case elapsed := <-fired:
		assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("delayed task did not run")
	}
}

func TestLoop_FlushAsync(t *testing.T) {
	l := newTestLoop(t, "flush")

	var seen []int
	done := make(chan struct{})
	l.PostTask(func(context.Context) { seen = append(seen, 1) })
	l.FlushAsync(func() {
		seen = append(seen, 2)
		close(done)
	})

	<-done
	assert.Equal(t, []int{1, 2}, seen)
}
