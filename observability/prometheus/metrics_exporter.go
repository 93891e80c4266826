package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/Swind/go-channel/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	taskDurationSeconds *prom.HistogramVec
	taskPanicTotal      *prom.CounterVec
	runnerQueueDepth    *prom.GaugeVec

	passDurationSeconds *prom.HistogramVec
	transferredTotal    *prom.CounterVec
	acceptedTotal       *prom.CounterVec
	drainedTotal        *prom.CounterVec
	rejectedTotal       *prom.CounterVec
	channelDepth        *prom.GaugeVec
	selectTotal         *prom.CounterVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "channel"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Runner task execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"runner"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of runner task panics.",
	}, []string{"runner"})
	runnerDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "runner_queue_depth",
		Help:      "Tasks waiting on a runner.",
	}, []string{"runner"})
	passVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "pass_duration_seconds",
		Help:      "Matching pass duration in seconds.",
		Buckets:   buckets,
	}, []string{"channel"})
	transferredVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "transferred_total",
		Help:      "Values handed from a push to a shift.",
	}, []string{"channel"})
	acceptedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "buffer_accepted_total",
		Help:      "Pushes accepted into the buffer.",
	}, []string{"channel"})
	drainedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "drained_total",
		Help:      "Shifts settled to end-of-stream by a closed channel.",
	}, []string{"channel"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "rejected_total",
		Help:      "Orders rejected for a protocol violation.",
	}, []string{"channel", "reason"})
	depthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Live orders per channel queue after the last pass.",
	}, []string{"channel", "queue"})
	selectVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "select_total",
		Help:      "Settled selections by outcome.",
	}, []string{"outcome"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if runnerDepthVec, err = registerCollector(reg, runnerDepthVec); err != nil {
		return nil, err
	}
	if passVec, err = registerCollector(reg, passVec); err != nil {
		return nil, err
	}
	if transferredVec, err = registerCollector(reg, transferredVec); err != nil {
		return nil, err
	}
	if acceptedVec, err = registerCollector(reg, acceptedVec); err != nil {
		return nil, err
	}
	if drainedVec, err = registerCollector(reg, drainedVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if depthVec, err = registerCollector(reg, depthVec); err != nil {
		return nil, err
	}
	if selectVec, err = registerCollector(reg, selectVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		taskDurationSeconds: durationVec,
		taskPanicTotal:      panicVec,
		runnerQueueDepth:    runnerDepthVec,
		passDurationSeconds: passVec,
		transferredTotal:    transferredVec,
		acceptedTotal:       acceptedVec,
		drainedTotal:        drainedVec,
		rejectedTotal:       rejectedVec,
		channelDepth:        depthVec,
		selectTotal:         selectVec,
	}, nil
}

// RecordTaskDuration records runner task execution duration.
func (m *MetricsExporter) RecordTaskDuration(runnerName string, duration time.Duration) {
	if m == nil {
		return
	}
	m.taskDurationSeconds.WithLabelValues(normalizeLabel(runnerName, "unknown")).Observe(duration.Seconds())
}

// RecordTaskPanic records task panic events.
func (m *MetricsExporter) RecordTaskPanic(runnerName string, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(normalizeLabel(runnerName, "unknown")).Inc()
}

// RecordRunnerQueueDepth records the number of tasks waiting on a runner.
func (m *MetricsExporter) RecordRunnerQueueDepth(runnerName string, depth int) {
	if m == nil {
		return
	}
	m.runnerQueueDepth.WithLabelValues(normalizeLabel(runnerName, "unknown")).Set(float64(depth))
}

// RecordPass records one matching pass.
func (m *MetricsExporter) RecordPass(channel string, transferred, accepted, drained int, duration time.Duration) {
	if m == nil {
		return
	}
	name := normalizeLabel(channel, "unknown")
	m.passDurationSeconds.WithLabelValues(name).Observe(duration.Seconds())
	if transferred > 0 {
		m.transferredTotal.WithLabelValues(name).Add(float64(transferred))
	}
	if accepted > 0 {
		m.acceptedTotal.WithLabelValues(name).Add(float64(accepted))
	}
	if drained > 0 {
		m.drainedTotal.WithLabelValues(name).Add(float64(drained))
	}
}

// RecordChannelDepth records the queue sizes left by the last pass.
func (m *MetricsExporter) RecordChannelDepth(channel string, pendingPushes, pendingShifts, buffered int) {
	if m == nil {
		return
	}
	name := normalizeLabel(channel, "unknown")
	m.channelDepth.WithLabelValues(name, "push").Set(float64(pendingPushes))
	m.channelDepth.WithLabelValues(name, "shift").Set(float64(pendingShifts))
	m.channelDepth.WithLabelValues(name, "buffer").Set(float64(buffered))
}

// RecordRejected records protocol violations.
func (m *MetricsExporter) RecordRejected(channel string, reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(normalizeLabel(channel, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordSelect records a settled selection.
func (m *MetricsExporter) RecordSelect(outcome string) {
	if m == nil {
		return
	}
	m.selectTotal.WithLabelValues(normalizeLabel(outcome, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
