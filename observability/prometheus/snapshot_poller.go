package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-channel/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ChannelSnapshotProvider provides current channel stats snapshots.
type ChannelSnapshotProvider interface {
	Stats() core.ChannelStats
}

// LoopSnapshotProvider provides current loop stats snapshots.
type LoopSnapshotProvider interface {
	Stats() core.LoopStats
}

// PoolSnapshotProvider provides current pool stats snapshots.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// SnapshotPoller periodically exports channel, loop and pool Stats()
// snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	mu       sync.RWMutex
	channels map[string]ChannelSnapshotProvider
	loops    map[string]LoopSnapshotProvider
	pools    map[string]PoolSnapshotProvider

	channelPending  *prom.GaugeVec
	channelBuffered *prom.GaugeVec
	channelClosed   *prom.GaugeVec
	channelPasses   *prom.GaugeVec

	loopPending  *prom.GaugeVec
	loopExecuted *prom.GaugeVec
	loopPanics   *prom.GaugeVec
	loopClosed   *prom.GaugeVec

	poolQueued  *prom.GaugeVec
	poolActive  *prom.GaugeVec
	poolWorkers *prom.GaugeVec
	poolRunning *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string, labels ...string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "channel",
			Name:      name,
			Help:      help,
		}, labels)
	}

	p := &SnapshotPoller{
		interval: interval,
		channels: make(map[string]ChannelSnapshotProvider),
		loops:    make(map[string]LoopSnapshotProvider),
		pools:    make(map[string]PoolSnapshotProvider),

		channelPending:  gauge("snapshot_pending", "Pending orders per channel queue.", "channel", "queue"),
		channelBuffered: gauge("snapshot_buffered", "Buffer-accepted pushes waiting for a shift.", "channel"),
		channelClosed:   gauge("snapshot_closed", "Channel closed state (1=closed, 0=open).", "channel"),
		channelPasses:   gauge("snapshot_passes", "Matching passes run so far.", "channel"),

		loopPending:  gauge("loop_pending", "Tasks waiting on a loop.", "loop"),
		loopExecuted: gauge("loop_executed", "Tasks executed by a loop.", "loop"),
		loopPanics:   gauge("loop_panics", "Task panics recovered by a loop.", "loop"),
		loopClosed:   gauge("loop_closed", "Loop closed state (1=closed, 0=open).", "loop"),

		poolQueued:  gauge("pool_queued", "Queued tasks per pool.", "pool"),
		poolActive:  gauge("pool_active", "Active tasks per pool.", "pool"),
		poolWorkers: gauge("pool_workers", "Worker count per pool.", "pool"),
		poolRunning: gauge("pool_running", "Pool running state (1=running, 0=stopped).", "pool"),
	}

	for _, g := range []**prom.GaugeVec{
		&p.channelPending, &p.channelBuffered, &p.channelClosed, &p.channelPasses,
		&p.loopPending, &p.loopExecuted, &p.loopPanics, &p.loopClosed,
		&p.poolQueued, &p.poolActive, &p.poolWorkers, &p.poolRunning,
	} {
		registered, err := registerCollector(reg, *g)
		if err != nil {
			return nil, err
		}
		*g = registered
	}

	return p, nil
}

// AddChannel adds or replaces a channel snapshot provider by name.
func (p *SnapshotPoller) AddChannel(name string, provider ChannelSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.mu.Lock()
	p.channels[normalizeLabel(name, "channel")] = provider
	p.mu.Unlock()
}

// AddLoop adds or replaces a loop snapshot provider by name.
func (p *SnapshotPoller) AddLoop(name string, provider LoopSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.mu.Lock()
	p.loops[normalizeLabel(name, "loop")] = provider
	p.mu.Unlock()
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.mu.Lock()
	p.pools[normalizeLabel(name, "pool")] = provider
	p.mu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx, p.done)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	cancel()
	<-done

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for name, provider := range p.channels {
		stats := provider.Stats()
		p.channelPending.WithLabelValues(name, "push").Set(float64(stats.PendingPushes))
		p.channelPending.WithLabelValues(name, "shift").Set(float64(stats.PendingShifts))
		p.channelBuffered.WithLabelValues(name).Set(float64(stats.Buffered))
		p.channelClosed.WithLabelValues(name).Set(boolGauge(stats.Closed))
		p.channelPasses.WithLabelValues(name).Set(float64(stats.Passes))
	}

	for name, provider := range p.loops {
		stats := provider.Stats()
		p.loopPending.WithLabelValues(name).Set(float64(stats.Pending))
		p.loopExecuted.WithLabelValues(name).Set(float64(stats.Executed))
		p.loopPanics.WithLabelValues(name).Set(float64(stats.Panics))
		p.loopClosed.WithLabelValues(name).Set(boolGauge(stats.Closed))
	}

	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolQueued.WithLabelValues(name).Set(float64(stats.Queued))
		p.poolActive.WithLabelValues(name).Set(float64(stats.Active))
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolRunning.WithLabelValues(name).Set(boolGauge(stats.Running))
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
