package core

import (
	"context"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics during execution.
// A panicking task never takes its runner down; the handler decides what
// to report.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - ctx: The context from the panicked task (may contain task runner info)
	// - runnerName: The name of the task runner where the panic occurred
	// - workerID: The ID of the worker (for pool workers, -1 for single-goroutine runners)
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, runnerName string, workerID int, panicInfo any, stackTrace []byte)
}

// LoggingPanicHandler reports panics through a Logger.
type LoggingPanicHandler struct {
	Logger Logger
}

// HandlePanic logs the panic at error level.
func (h *LoggingPanicHandler) HandlePanic(ctx context.Context, runnerName string, workerID int, panicInfo any, stackTrace []byte) {
	logger := h.Logger
	if logger == nil {
		return
	}
	logger.Error("task panicked",
		F("runner", runnerName),
		F("worker", workerID),
		F("panic", panicInfo),
		F("stack", string(stackTrace)),
	)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics collects runner and channel measurements.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods are called from runner goroutines and from inside matching passes,
// so they must be non-blocking and fast.
type Metrics interface {
	// RecordTaskDuration records how long a runner task took to execute.
	RecordTaskDuration(runnerName string, duration time.Duration)

	// RecordTaskPanic records that a runner task panicked.
	RecordTaskPanic(runnerName string, panicInfo any)

	// RecordRunnerQueueDepth records the number of tasks waiting on a runner.
	RecordRunnerQueueDepth(runnerName string, depth int)

	// RecordPass records one matching pass of a channel.
	//
	// Parameters:
	// - channel: The channel name
	// - transferred: values handed from a push to a shift
	// - accepted: pushes accepted into the buffer
	// - drained: shifts settled to end-of-stream because the channel is closed
	// - duration: wall time of the pass
	RecordPass(channel string, transferred, accepted, drained int, duration time.Duration)

	// RecordChannelDepth records the live queue sizes after a pass.
	RecordChannelDepth(channel string, pendingPushes, pendingShifts, buffered int)

	// RecordRejected records a protocol violation surfaced to a caller
	// (push after close, double close, ...).
	RecordRejected(channel string, reason string)

	// RecordSelect records the outcome of a select group
	// ("won", "error" or "cancelled").
	RecordSelect(outcome string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskDuration(runnerName string, duration time.Duration) {}
func (m *NilMetrics) RecordTaskPanic(runnerName string, panicInfo any)            {}
func (m *NilMetrics) RecordRunnerQueueDepth(runnerName string, depth int)         {}
func (m *NilMetrics) RecordPass(channel string, transferred, accepted, drained int, duration time.Duration) {
}
func (m *NilMetrics) RecordChannelDepth(channel string, pendingPushes, pendingShifts, buffered int) {
}
func (m *NilMetrics) RecordRejected(channel string, reason string) {}
func (m *NilMetrics) RecordSelect(outcome string)                  {}

// =============================================================================
// RunnerConfig: Configuration for Loop and WorkerPool
// =============================================================================

// RunnerConfig holds configuration options for runners.
// All handlers are optional; if not provided, default implementations will be used.
type RunnerConfig struct {
	// PanicHandler is called when a task panics. Defaults to a LoggingPanicHandler
	// writing to Logger.
	PanicHandler PanicHandler

	// Metrics is called to record task execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// Logger receives runner diagnostics. Defaults to NewDefaultLogger().
	Logger Logger
}

// DefaultRunnerConfig returns a config with default handlers.
func DefaultRunnerConfig() *RunnerConfig {
	logger := NewDefaultLogger()
	return &RunnerConfig{
		PanicHandler: &LoggingPanicHandler{Logger: logger},
		Metrics:      &NilMetrics{},
		Logger:       logger,
	}
}

// withDefaults returns a copy of c with every nil handler filled in.
func (c *RunnerConfig) withDefaults() RunnerConfig {
	var out RunnerConfig
	if c != nil {
		out = *c
	}
	if out.Logger == nil {
		out.Logger = NewDefaultLogger()
	}
	if out.PanicHandler == nil {
		out.PanicHandler = &LoggingPanicHandler{Logger: out.Logger}
	}
	if out.Metrics == nil {
		out.Metrics = &NilMetrics{}
	}
	return out
}
