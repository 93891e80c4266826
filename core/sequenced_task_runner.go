package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// SequencedTaskRunner runs its tasks one at a time in posting order on a
// shared ThreadPool. Consecutive tasks may run on different workers, but
// never concurrently.
type SequencedTaskRunner struct {
	name          string
	threadPool    ThreadPool
	queue         *Queue[Task]
	mu            sync.Mutex
	isRunning     bool
	activeRunners int32       // atomic guard for concurrency assertion
	closed        atomic.Bool // indicates if the runner is closed
}

func NewSequencedTaskRunner(threadPool ThreadPool) *SequencedTaskRunner {
	return &SequencedTaskRunner{
		name:       threadPool.ID() + "/sequenced",
		threadPool: threadPool,
		queue:      NewQueue[Task](),
	}
}

// Name returns the runner name, derived from the pool ID.
func (r *SequencedTaskRunner) Name() string {
	return r.name
}

// PostTask queues task behind every task posted before it.
func (r *SequencedTaskRunner) PostTask(task Task) {
	if r.closed.Load() {
		return
	}
	r.mu.Lock()
	r.queue.Push(task)
	start := !r.isRunning
	r.isRunning = true
	r.mu.Unlock()

	if start {
		r.threadPool.PostInternal(r.runLoop)
	}
}

func (r *SequencedTaskRunner) PostDelayedTask(task Task, delay time.Duration) {
	if r.closed.Load() {
		return
	}
	if delay <= 0 {
		r.PostTask(task)
		return
	}
	r.threadPool.PostDelayedInternal(task, delay, r)
}

func (r *SequencedTaskRunner) runLoop(ctx context.Context) {
	// Assertion: Ensure strictly one goroutine at a time
	if n := atomic.AddInt32(&r.activeRunners, 1); n > 1 {
		panic(fmt.Sprintf("SequencedTaskRunner: concurrent runLoop detected (count=%d)", n))
	}

	runCtx := context.WithValue(ctx, taskRunnerKey, r)

	r.mu.Lock()
	task, ok := r.queue.Pop()
	if !ok {
		r.isRunning = false
		atomic.AddInt32(&r.activeRunners, -1)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	// Execute ONE task, then yield the worker back to the pool. A panic
	// still reaches the pool's handler after the sequence is re-armed.
	defer r.scheduleNext()
	task(runCtx)
}

func (r *SequencedTaskRunner) scheduleNext() {
	atomic.AddInt32(&r.activeRunners, -1)

	r.mu.Lock()
	more := !r.queue.IsEmpty() && !r.closed.Load()
	if !more {
		r.isRunning = false
	}
	r.mu.Unlock()

	if more {
		r.threadPool.PostInternal(r.runLoop)
	}
}

// Shutdown marks the runner closed and drops pending tasks.
// A task already executing is not interrupted.
func (r *SequencedTaskRunner) Shutdown() {
	r.closed.Store(true)

	r.mu.Lock()
	r.queue.Clear()
	r.mu.Unlock()
}

// IsClosed returns true if the runner has been shut down.
func (r *SequencedTaskRunner) IsClosed() bool {
	return r.closed.Load()
}

// WaitIdle blocks until every task posted before the call has executed.
func (r *SequencedTaskRunner) WaitIdle(ctx context.Context) error {
	if r.IsClosed() {
		return fmt.Errorf("runner %s is closed", r.name)
	}
	done := make(chan struct{})
	r.PostTask(func(context.Context) { close(done) })

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
