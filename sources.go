package channel

import (
	"context"
	"errors"
	"io"
	"iter"
	"time"

	"github.com/Swind/go-channel/core"
)

// Of returns a closed channel holding values, in order.
func Of[T any](values ...T) *Channel[T] {
	return From(values)
}

// From returns a closed channel holding values, in order. The buffer is
// sized to fit them all, so no goroutine is needed.
func From[T any](values []T, opts ...Option) *Channel[T] {
	ch := New[T](len(values), opts...)
	for _, v := range values {
		ch.Push(v)
	}
	ch.Close()
	return ch
}

// FromFunc pushes the values returned by fn until it reports ok == false,
// then closes the channel.
func FromFunc[T any](ctx context.Context, fn func() (T, bool), opts ...Option) *Channel[T] {
	ch := New[T](0, opts...)
	go func() {
		defer ch.Close()
		for {
			v, ok := fn()
			if !ok {
				return
			}
			if _, err := ch.Push(v).Wait(ctx); err != nil {
				return
			}
		}
	}()
	return ch
}

// FromSeq pushes every value of seq, then closes the channel.
func FromSeq[T any](ctx context.Context, seq iter.Seq[T], opts ...Option) *Channel[T] {
	ch := New[T](0, opts...)
	go func() {
		defer ch.Close()
		for v := range seq {
			if _, err := ch.Push(v).Wait(ctx); err != nil {
				return
			}
		}
	}()
	return ch
}

// FromReader pushes r's content in chunks of at most chunkSize bytes and
// closes the channel at EOF. A read error is logged and also closes the
// channel.
func FromReader(ctx context.Context, r io.Reader, chunkSize int, opts ...Option) *Channel[[]byte] {
	if chunkSize <= 0 {
		chunkSize = 32 * 1024
	}
	ch := New[[]byte](0, opts...)
	go func() {
		defer ch.Close()
		buf := make([]byte, chunkSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if _, perr := ch.Push(chunk).Wait(ctx); perr != nil {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				ch.e.cfg.logger.Warn("read failed", core.F("channel", ch.Name()), core.F("error", err))
				return
			}
		}
	}()
	return ch
}

// All emits one slice per round, holding the next shift of every input in
// argument order. It stops, and closes the output, on the first round in
// which every input reports end-of-stream.
func All[T any](ctx context.Context, chans ...Receiver[T]) *Channel[[]Received[T]] {
	var opts []Option
	if len(chans) > 0 {
		opts = inherit(chans[0])
	}
	out := New[[]Received[T]](0, opts...)

	go func() {
		defer out.Close()
		for {
			orders := make([]*ShiftOrder[T], len(chans))
			for i, ch := range chans {
				orders[i] = ch.Shift()
			}

			round := make([]Received[T], len(chans))
			exhausted := true
			for i, o := range orders {
				v, ok, err := o.Wait(ctx)
				if err != nil {
					for _, rest := range orders[i+1:] {
						rest.Cancel()
					}
					return
				}
				round[i] = Received[T]{Value: v, OK: ok}
				exhausted = exhausted && !ok
			}
			if exhausted {
				return
			}
			if _, err := out.Push(round).Wait(ctx); err != nil {
				return
			}
		}
	}()
	return out
}

// After returns a channel that receives the current time once d has
// elapsed and is then closed. Race it in a Select to bound a wait.
func After(d time.Duration, opts ...Option) *Channel[time.Time] {
	ch := New[time.Time](1, opts...)
	ch.e.cfg.runner.PostDelayedTask(func(context.Context) {
		ch.Push(time.Now())
		ch.Close()
	}, d)
	return ch
}
