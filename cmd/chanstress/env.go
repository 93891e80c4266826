package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	channel "github.com/Swind/go-channel"
	"github.com/Swind/go-channel/core"
	obs "github.com/Swind/go-channel/observability/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

const envKey = "env"

// env is the shared setup of every subcommand: logger, runner and the
// optional metrics endpoint.
type env struct {
	logger  *core.LogrusLogger
	metrics core.Metrics
	runner  core.TaskRunner
	poller  *obs.SnapshotPoller
	server  *http.Server
	linger  time.Duration

	stop []func()
}

func setup(c *cli.Context) error {
	logger := core.NewDefaultLogger()
	logger.SetLevel(c.String("log-level"))

	e := &env{
		logger:  logger,
		metrics: &core.NilMetrics{},
		linger:  c.Duration("linger"),
	}

	if addr := c.String("metrics-addr"); addr != "" {
		reg := prom.NewRegistry()
		exporter, err := obs.NewMetricsExporter("chanstress", reg, obs.ExporterOptions{})
		if err != nil {
			return cli.Exit(fmt.Sprintf("metrics: %v", err), 1)
		}
		poller, err := obs.NewSnapshotPoller(reg, 100*time.Millisecond)
		if err != nil {
			return cli.Exit(fmt.Sprintf("metrics: %v", err), 1)
		}
		e.metrics = exporter
		e.poller = poller

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		e.server = &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", core.F("addr", addr), core.F("error", err))
			}
		}()
		logger.Info("serving metrics", core.F("addr", addr))
	}

	config := &core.RunnerConfig{Metrics: e.metrics, Logger: logger}
	switch kind := c.String("runner"); kind {
	case "loop":
		loop := core.NewLoopWithConfig("chanstress", config)
		e.runner = loop
		e.stop = append(e.stop, loop.Stop)
		if e.poller != nil {
			e.poller.AddLoop(loop.Name(), loop)
		}
	case "pool":
		pool := core.NewWorkerPoolWithConfig("chanstress", c.Int("workers"), config)
		pool.Start(context.Background())
		e.runner = core.NewSequencedTaskRunner(pool)
		e.stop = append(e.stop, pool.Stop)
		if e.poller != nil {
			e.poller.AddPool(pool.ID(), pool)
		}
	default:
		return cli.Exit(fmt.Sprintf("unknown runner %q, want loop or pool", kind), 1)
	}

	if e.poller != nil {
		e.poller.Start(context.Background())
	}

	c.App.Metadata = map[string]any{envKey: e}
	return nil
}

func teardown(c *cli.Context) error {
	e, ok := c.App.Metadata[envKey].(*env)
	if !ok {
		return nil
	}

	if e.server != nil && e.linger > 0 {
		e.logger.Info("lingering for scrapes", core.F("duration", e.linger))
		time.Sleep(e.linger)
	}
	if e.poller != nil {
		e.poller.Stop()
	}
	if e.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = e.server.Shutdown(ctx)
	}
	for _, stop := range e.stop {
		stop()
	}
	return nil
}

func envFrom(c *cli.Context) *env {
	return c.App.Metadata[envKey].(*env)
}

// options returns the channel options binding a channel to the run's
// runner, logger and metrics.
func (e *env) options(name string) []channel.Option {
	return []channel.Option{
		channel.WithName(name),
		channel.WithRunner(e.runner),
		channel.WithLogger(e.logger),
		channel.WithMetrics(e.metrics),
	}
}

// newChannel creates a channel on the run's runner. Named channels are
// also exported through the snapshot poller.
func newChannel[T any](e *env, capacity int, name string) *channel.Channel[T] {
	ch := channel.New[T](capacity, e.options(name)...)
	if e.poller != nil && name != "" {
		e.poller.AddChannel(name, ch)
	}
	return ch
}
