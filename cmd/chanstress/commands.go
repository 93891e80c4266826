package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	channel "github.com/Swind/go-channel"
	"github.com/Swind/go-channel/core"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func timeoutFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:  "timeout",
		Value: 30 * time.Second,
		Usage: "Abort the run after this long",
	}
}

func runContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context, c.Duration("timeout"))
}

// =============================================================================
// fifo
// =============================================================================

func fifoCommand() *cli.Command {
	return &cli.Command{
		Name:  "fifo",
		Usage: "Check that buffered and unbuffered channels deliver in FIFO order",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "n", Value: 10, Usage: "Values per channel"},
			timeoutFlag(),
		},
		Action: fifoAction,
	}
}

func fifoAction(c *cli.Context) error {
	e := envFrom(c)
	n := c.Int("n")
	ctx, cancel := runContext(c)
	defer cancel()

	// Buffered: every push settles before the first shift.
	buffered := newChannel[int](e, n, "fifo-buffered")
	for i := 0; i < n; i++ {
		if _, err := buffered.Push(i).Wait(ctx); err != nil {
			return cli.Exit(fmt.Sprintf("buffered push %d: %v", i, err), 1)
		}
	}
	for i := 0; i < n; i++ {
		v, _, err := buffered.Shift().Wait(ctx)
		if err != nil || v != i {
			return cli.Exit(fmt.Sprintf("buffered receive %d: got %d (%v)", i, v, err), 1)
		}
	}

	// Unbuffered: a daisy chain of readers, each waiting for its
	// predecessor, must see the values in sequence.
	ch := newChannel[int](e, 0, "fifo-unbuffered")
	start := newChannel[int](e, 0, "")
	input := start
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		in, output := input, newChannel[int](e, 0, "")
		g.Go(func() error {
			if _, _, err := in.Shift().Wait(gctx); err != nil {
				return err
			}
			v, _, err := ch.Shift().Wait(gctx)
			if err != nil {
				return err
			}
			if v != i {
				return fmt.Errorf("reader %d got %d", i, v)
			}
			_, err = output.Push(1).Wait(gctx)
			return err
		})
		input = output
	}

	g.Go(func() error {
		if _, err := start.Push(0).Wait(gctx); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if _, err := ch.Push(i).Wait(gctx); err != nil {
				return err
			}
		}
		_, _, err := input.Shift().Wait(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return cli.Exit(fmt.Sprintf("unbuffered fifo: %v", err), 1)
	}

	e.logger.Info("fifo ok", core.F("n", n))
	return nil
}

// =============================================================================
// goroutines
// =============================================================================

func goroutinesCommand() *cli.Command {
	return &cli.Command{
		Name:  "goroutines",
		Usage: "Thread a value through a long chain of forwarding goroutines",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "n", Value: 10000, Usage: "Chain length"},
			timeoutFlag(),
		},
		Action: goroutinesAction,
	}
}

func goroutinesAction(c *cli.Context) error {
	e := envFrom(c)
	n := c.Int("n")
	ctx, cancel := runContext(c)
	defer cancel()

	began := time.Now()
	leftmost := newChannel[int](e, 0, "goroutines-leftmost")
	left := leftmost
	for i := 0; i < n; i++ {
		right := newChannel[int](e, 0, "")
		go func(left, right *channel.Channel[int]) {
			v, _, err := right.Shift().Wait(ctx)
			if err != nil {
				return
			}
			left.Push(v).Wait(ctx)
		}(left, right)
		left = right
	}
	left.Push(1)

	v, ok, err := leftmost.Shift().Wait(ctx)
	if err != nil || !ok || v != 1 {
		return cli.Exit(fmt.Sprintf("chain broke: got %d ok=%v (%v)", v, ok, err), 1)
	}

	e.logger.Info("goroutines ok", core.F("n", n), core.F("elapsed", time.Since(began).String()))
	return nil
}

// =============================================================================
// select
// =============================================================================

func selectCommand() *cli.Command {
	return &cli.Command{
		Name:  "select",
		Usage: "Race pushes against a closed channel's shift used as a default case",
		Flags: []cli.Flag{
			timeoutFlag(),
		},
		Action: selectAction,
	}
}

func selectAction(c *cli.Context) error {
	e := envFrom(c)
	ctx, cancel := runContext(c)
	defer cancel()

	closed := newChannel[int](e, 0, "select-closed")
	if _, err := closed.Close().Wait(ctx); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	counter, shift := 0, 0
	getValue := func() int {
		counter++
		return 1 << shift
	}

	send := func(a, b *channel.Channel[int]) (int, error) {
		i := 0
		for done := false; !done; shift++ {
			winner, err := channel.Select(a.PushCase(getValue()), b.PushCase(getValue()), closed.ShiftCase()).Wait(ctx)
			if err != nil {
				return i, err
			}
			switch winner {
			case a:
				i++
				a = newChannel[int](e, 0, "")
			case b:
				i++
				b = newChannel[int](e, 0, "")
			default:
				done = true
			}
		}
		return i, nil
	}

	a, b := newChannel[int](e, 1, "select-a"), newChannel[int](e, 1, "select-b")
	if v, err := send(a, b); err != nil || v != 2 {
		return cli.Exit(fmt.Sprintf("send returned %d != 2 (%v)", v, err), 1)
	}

	av, _, err := a.Shift().Wait(ctx)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	bv, _, err := b.Shift().Wait(ctx)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if av|bv != 3 {
		return cli.Exit(fmt.Sprintf("bad values %d %d", av, bv), 1)
	}

	if v, err := send(a, newChannel[int](e, 0, "")); err != nil || v != 1 {
		return cli.Exit(fmt.Sprintf("send returned %d != 1 (%v)", v, err), 1)
	}
	if counter != 10 {
		return cli.Exit(fmt.Sprintf("counter is %d != 10", counter), 1)
	}

	e.logger.Info("select ok", core.F("counter", counter))
	return nil
}

// =============================================================================
// doubleselect
// =============================================================================

func doubleSelectCommand() *cli.Command {
	return &cli.Command{
		Name:  "doubleselect",
		Usage: "Check that a select never commits two of its cases",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "iterations", Aliases: []string{"n"}, Value: 100000, Usage: "Selects to run"},
			timeoutFlag(),
		},
		Action: doubleSelectAction,
	}
}

func doubleSelectAction(c *cli.Context) error {
	e := envFrom(c)
	iterations := c.Int("iterations")
	ctx, cancel := runContext(c)
	defer cancel()

	began := time.Now()
	cs := make([]*channel.Channel[int], 4)
	for i := range cs {
		cs[i] = newChannel[int](e, 0, fmt.Sprintf("doubleselect-%d", i))
	}
	cmux := newChannel[int](e, 0, "doubleselect-mux")

	g, gctx := errgroup.WithContext(ctx)

	// The sender offers each counter value to all four channels at once.
	g.Go(func() error {
		for i := 0; i < iterations; i++ {
			_, err := channel.Select(cs[0].PushCase(i), cs[1].PushCase(i), cs[2].PushCase(i), cs[3].PushCase(i)).Wait(gctx)
			if err != nil {
				return fmt.Errorf("select %d: %w", i, err)
			}
		}
		for _, ch := range cs {
			ch.Close()
		}
		return nil
	})

	// One mux per channel forwards onto the shared output.
	var muxes sync.WaitGroup
	for _, ch := range cs {
		muxes.Add(1)
		g.Go(func() error {
			defer muxes.Done()
			return channel.ForEach[int](gctx, ch, func(v int) error {
				_, err := cmux.Push(v).Wait(gctx)
				return err
			})
		})
	}
	g.Go(func() error {
		muxes.Wait()
		cmux.Close()
		return nil
	})

	// The receiver checks that no value arrives twice.
	seen := make(map[int]bool, iterations)
	g.Go(func() error {
		return channel.ForEach[int](gctx, cmux, func(v int) error {
			if seen[v] {
				return fmt.Errorf("got duplicate value: %d", v)
			}
			seen[v] = true
			return nil
		})
	})

	if err := g.Wait(); err != nil {
		return cli.Exit(fmt.Sprintf("doubleselect: %v", err), 1)
	}
	if len(seen) != iterations {
		return cli.Exit(fmt.Sprintf("doubleselect: received %d of %d values", len(seen), iterations), 1)
	}

	e.logger.Info("doubleselect ok",
		core.F("iterations", iterations),
		core.F("elapsed", time.Since(began).String()),
		core.F("mux", cmux.Stats().Transferred),
	)
	return nil
}
