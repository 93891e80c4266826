package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// ThreadPool is the work source a SequencedTaskRunner multiplexes onto.
type ThreadPool interface {
	PostInternal(task Task)
	PostDelayedInternal(task Task, delay time.Duration, target TaskRunner)

	ID() string
	IsRunning() bool
	WorkerCount() int
	QueuedTaskCount() int
	ActiveTaskCount() int
}

// WorkerPool manages a set of worker goroutines pulling tasks from one
// shared FIFO queue.
type WorkerPool struct {
	id      string
	workers int

	mu     sync.Mutex
	queue  *Queue[Task]
	signal chan struct{}

	metricQueued atomic.Int32 // Waiting in queue
	metricActive atomic.Int32 // Executing in a worker
	shuttingDown atomic.Bool

	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	running   bool
	runningMu sync.RWMutex

	panicHandler PanicHandler
	metrics      Metrics
	logger       Logger
}

// NewWorkerPool creates a stopped pool of workers goroutines.
func NewWorkerPool(id string, workers int) *WorkerPool {
	return NewWorkerPoolWithConfig(id, workers, DefaultRunnerConfig())
}

// NewWorkerPoolWithConfig creates a stopped pool with custom handlers.
func NewWorkerPoolWithConfig(id string, workers int, config *RunnerConfig) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if id == "" {
		id = fmt.Sprintf("pool-%d", workers)
	}
	cfg := config.withDefaults()
	return &WorkerPool{
		id:           id,
		workers:      workers,
		queue:        NewQueue[Task](),
		signal:       make(chan struct{}, workers*2),
		panicHandler: cfg.PanicHandler,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
	}
}

// Start starts all worker goroutines
func (p *WorkerPool) Start(ctx context.Context) {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if p.running {
		return // Already running
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(p.ctx, i)
	}
	p.logger.Debug("worker pool started", F("pool", p.id), F("workers", p.workers))
}

// Stop rejects new tasks, drops queued ones and waits for running tasks.
func (p *WorkerPool) Stop() {
	p.shuttingDown.Store(true)
	p.mu.Lock()
	dropped := p.queue.Len()
	p.queue.Clear()
	p.mu.Unlock()
	p.metricQueued.Add(-int32(dropped))

	p.runningMu.Lock()
	if !p.running {
		p.runningMu.Unlock()
		return
	}
	p.runningMu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.runningMu.Lock()
	p.running = false
	p.runningMu.Unlock()
}

// StopGraceful stops accepting tasks and waits up to timeout for the queue
// to drain before stopping the workers.
func (p *WorkerPool) StopGraceful(timeout time.Duration) error {
	p.shuttingDown.Store(true)

	deadline := time.After(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	var err error
wait:
	for {
		if p.QueuedTaskCount() == 0 && p.ActiveTaskCount() == 0 {
			break
		}
		select {
		case <-deadline:
			err = fmt.Errorf("shutdown graceful timeout after %v, forced clearing", timeout)
			break wait
		case <-ticker.C:
		}
	}

	p.Stop()
	return err
}

// PostInternal queues task for the next free worker.
func (p *WorkerPool) PostInternal(task Task) {
	if p.shuttingDown.Load() {
		p.logger.Debug("task rejected", F("pool", p.id), F("reason", "shutting down"))
		return
	}

	p.mu.Lock()
	p.queue.Push(task)
	depth := p.queue.Len()
	p.mu.Unlock()
	p.metricQueued.Add(1)
	p.metrics.RecordRunnerQueueDepth(p.id, depth)

	select {
	case p.signal <- struct{}{}:
	default:
		// Signal channel full, but task is already queued
	}
}

// PostDelayedInternal posts task to target once delay has elapsed.
func (p *WorkerPool) PostDelayedInternal(task Task, delay time.Duration, target TaskRunner) {
	if p.shuttingDown.Load() {
		return
	}
	time.AfterFunc(delay, func() {
		target.PostTask(task)
	})
}

func (p *WorkerPool) getWork(stopCh <-chan struct{}) (Task, bool) {
	for {
		p.mu.Lock()
		task, ok := p.queue.Pop()
		p.mu.Unlock()
		if ok {
			p.metricQueued.Add(-1)
			return task, true
		}

		select {
		case <-p.signal:
			continue
		case <-stopCh:
			return nil, false
		}
	}
}

func (p *WorkerPool) workerLoop(ctx context.Context, id int) {
	defer p.wg.Done()
	stopCh := ctx.Done()

	for {
		task, ok := p.getWork(stopCh)
		if !ok {
			return
		}
		p.runTask(ctx, id, task)
	}
}

func (p *WorkerPool) runTask(ctx context.Context, id int, task Task) {
	start := time.Now()
	p.metricActive.Add(1)
	defer func() {
		p.metricActive.Add(-1)
		p.metrics.RecordTaskDuration(p.id, time.Since(start))
		if r := recover(); r != nil {
			p.metrics.RecordTaskPanic(p.id, r)
			p.panicHandler.HandlePanic(ctx, p.id, id, r, debug.Stack())
		}
	}()
	task(ctx)
}

// ID returns the ID of the pool
func (p *WorkerPool) ID() string {
	return p.id
}

// IsRunning returns whether the pool is running
func (p *WorkerPool) IsRunning() bool {
	p.runningMu.RLock()
	defer p.runningMu.RUnlock()
	return p.running
}

func (p *WorkerPool) WorkerCount() int     { return p.workers }
func (p *WorkerPool) QueuedTaskCount() int { return int(p.metricQueued.Load()) }
func (p *WorkerPool) ActiveTaskCount() int { return int(p.metricActive.Load()) }

// Stats returns a snapshot of the pool state.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		ID:      p.id,
		Workers: p.workers,
		Queued:  p.QueuedTaskCount(),
		Active:  p.ActiveTaskCount(),
		Running: p.IsRunning(),
	}
}
