package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Loop binds a dedicated goroutine that executes posted tasks one at a time,
// in posting order. It is the cooperative "turn" of the channel engine: a
// task posted while another runs starts only after the running one returns.
//
// Unlike a buffered Go channel, the task queue is unbounded, so a task may
// post further tasks to its own Loop without ever blocking.
type Loop struct {
	name string

	mu    sync.Mutex
	queue *Queue[Task]
	wake  chan struct{}

	// Lifecycle control
	ctx    context.Context
	cancel context.CancelFunc

	stopped chan struct{}
	once    sync.Once
	closed  atomic.Bool

	running  atomic.Int32
	executed atomic.Int64
	panics   atomic.Int64
	rejected atomic.Int64

	panicHandler PanicHandler
	metrics      Metrics
	logger       Logger
}

// NewLoop creates and starts a Loop with default handlers.
func NewLoop(name string) *Loop {
	return NewLoopWithConfig(name, DefaultRunnerConfig())
}

// NewLoopWithConfig creates and starts a Loop. Nil handlers in config are
// replaced by defaults.
func NewLoopWithConfig(name string, config *RunnerConfig) *Loop {
	cfg := config.withDefaults()
	if name == "" {
		name = "loop"
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Loop{
		name:         name,
		queue:        NewQueue[Task](),
		wake:         make(chan struct{}, 1),
		ctx:          ctx,
		cancel:       cancel,
		stopped:      make(chan struct{}),
		panicHandler: cfg.PanicHandler,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
	}

	go l.runLoop()

	return l
}

// Name returns the name of the loop
func (l *Loop) Name() string {
	return l.name
}

// PostTask queues task behind every task posted before it.
// Tasks posted after Shutdown are dropped.
func (l *Loop) PostTask(task Task) {
	if l.closed.Load() {
		l.rejected.Add(1)
		l.logger.Debug("task rejected", F("runner", l.name), F("reason", "closed"))
		return
	}

	l.mu.Lock()
	l.queue.Push(task)
	depth := l.queue.Len()
	l.mu.Unlock()

	l.metrics.RecordRunnerQueueDepth(l.name, depth)

	select {
	case l.wake <- struct{}{}:
	default:
		// A wakeup is already pending, the loop will see the new task
	}
}

// PostDelayedTask posts task once delay has elapsed.
// The timer is independent of the loop, so a busy loop does not delay the
// moment the task is queued.
func (l *Loop) PostDelayedTask(task Task, delay time.Duration) {
	if l.closed.Load() {
		l.rejected.Add(1)
		return
	}
	if delay <= 0 {
		l.PostTask(task)
		return
	}
	time.AfterFunc(delay, func() {
		l.PostTask(task)
	})
}

// runLoop is the core of this runner, it occupies a dedicated goroutine
func (l *Loop) runLoop() {
	defer close(l.stopped) // Signal that Stop() can return

	runCtx := context.WithValue(l.ctx, taskRunnerKey, l)

	for {
		l.mu.Lock()
		task, ok := l.queue.Pop()
		l.mu.Unlock()

		if !ok {
			select {
			case <-l.wake:
				continue
			case <-l.ctx.Done():
				return
			}
		}

		if l.ctx.Err() != nil {
			return
		}
		l.runTask(runCtx, task)
	}
}

func (l *Loop) runTask(ctx context.Context, task Task) {
	start := time.Now()
	l.running.Store(1)
	defer func() {
		l.running.Store(0)
		l.executed.Add(1)
		l.metrics.RecordTaskDuration(l.name, time.Since(start))
		if rec := recover(); rec != nil {
			l.panics.Add(1)
			l.metrics.RecordTaskPanic(l.name, rec)
			l.panicHandler.HandlePanic(ctx, l.name, -1, rec, debug.Stack())
		}
	}()
	task(ctx)
}

// Shutdown stops accepting new tasks. Tasks already queued still run.
// It is safe to call from a task running on this loop.
func (l *Loop) Shutdown() {
	l.closed.Store(true)
}

// Stop shuts the loop down, abandons queued tasks and waits for the running
// task (if any) to return. Calling Stop from a task on this loop deadlocks.
func (l *Loop) Stop() {
	l.once.Do(func() {
		l.Shutdown()
		l.cancel()
		<-l.stopped

		l.mu.Lock()
		l.queue.Clear()
		l.mu.Unlock()
	})
}

// IsClosed returns true once Shutdown or Stop has been called.
func (l *Loop) IsClosed() bool {
	return l.closed.Load()
}

// =============================================================================
// Synchronization Methods
// =============================================================================

// WaitIdle blocks until every task posted before the call has executed.
// This is implemented by posting a barrier task and waiting for it to execute.
//
// Returns error if:
// - Context is cancelled or deadline exceeded
// - Loop is closed when WaitIdle is called
//
// Note: Tasks posted after WaitIdle is called are not waited for.
func (l *Loop) WaitIdle(ctx context.Context) error {
	if l.IsClosed() {
		return fmt.Errorf("loop %s is closed", l.name)
	}

	done := make(chan struct{})
	l.PostTask(func(context.Context) {
		close(done)
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FlushAsync runs callback on the loop after all previously posted tasks.
func (l *Loop) FlushAsync(callback func()) {
	l.PostTask(func(ctx context.Context) {
		callback()
	})
}

// Stats returns a snapshot of the loop state.
func (l *Loop) Stats() LoopStats {
	l.mu.Lock()
	pending := l.queue.Len()
	l.mu.Unlock()

	return LoopStats{
		Name:     l.name,
		Pending:  pending,
		Running:  int(l.running.Load()),
		Executed: l.executed.Load(),
		Panics:   l.panics.Load(),
		Rejected: l.rejected.Load(),
		Closed:   l.closed.Load(),
	}
}
