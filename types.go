package channel

import "github.com/Swind/go-channel/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the channel package for most use cases.

// Task is the unit of work run by a TaskRunner
type Task = core.Task

// TaskRunner is the interface channels post their matching passes to
type TaskRunner = core.TaskRunner

// Loop runs tasks one at a time on a dedicated goroutine
type Loop = core.Loop

// SequencedTaskRunner runs tasks in order on a shared WorkerPool
type SequencedTaskRunner = core.SequencedTaskRunner

// WorkerPool is the goroutine pool behind SequencedTaskRunner
type WorkerPool = core.WorkerPool

// Stats is a point-in-time snapshot of a channel
type Stats = core.ChannelStats

// Logger and Metrics are the observability hooks accepted by WithLogger and
// WithMetrics
type (
	Logger  = core.Logger
	Metrics = core.Metrics
)

// NewLoop creates a dedicated loop for channels that should not share the
// global one.
func NewLoop(name string) *Loop {
	return core.NewLoop(name)
}

// NewWorkerPool creates a stopped pool; call Start before posting to it.
func NewWorkerPool(id string, workers int) *WorkerPool {
	return core.NewWorkerPool(id, workers)
}

// NewSequencedTaskRunner creates a runner on pool. Channels bound to such
// runners run their passes on pool workers.
func NewSequencedTaskRunner(pool core.ThreadPool) *SequencedTaskRunner {
	return core.NewSequencedTaskRunner(pool)
}

// GetCurrentTaskRunner retrieves the current TaskRunner from context
var GetCurrentTaskRunner = core.GetCurrentTaskRunner
