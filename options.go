package channel

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Swind/go-channel/core"
)

var channelSeq atomic.Int64

var defaultLogger = sync.OnceValue(func() core.Logger {
	return core.NewDefaultLogger()
})

// Option configures a channel created by New.
type Option func(*config)

type config struct {
	name    string
	runner  core.TaskRunner
	logger  core.Logger
	metrics core.Metrics
}

func defaultConfig() config {
	return config{
		name:    fmt.Sprintf("chan-%d", channelSeq.Add(1)),
		logger:  defaultLogger(),
		metrics: &core.NilMetrics{},
	}
}

// WithName names the channel in logs, metrics and Stats.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithRunner runs the channel's matching passes on r instead of the global
// loop.
func WithRunner(r core.TaskRunner) Option {
	return func(c *config) {
		if r != nil {
			c.runner = r
		}
	}
}

// WithLogger sets the logger used for close and rejection diagnostics.
func WithLogger(l core.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics reports matching passes, queue depth and rejections to m.
func WithMetrics(m core.Metrics) Option {
	return func(c *config) {
		if m != nil {
			c.metrics = m
		}
	}
}

// inherit carries the runner, logger and metrics of src over to channels
// derived from it.
func inherit(src any) []Option {
	e, ok := src.(interface{ engineConfig() config })
	if !ok {
		return nil
	}
	cfg := e.engineConfig()
	return []Option{WithRunner(cfg.runner), WithLogger(cfg.logger), WithMetrics(cfg.metrics)}
}
