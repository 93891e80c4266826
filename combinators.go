package channel

import (
	"context"
	"fmt"
	"strings"

	"github.com/Swind/go-channel/core"
)

// pipe runs step for every value shifted from src and closes out once src
// reports end-of-stream, step fails, or ctx is cancelled. The pending order
// is cancelled on ctx cancellation so nothing stays queued.
func pipe[T, U any](ctx context.Context, src Receiver[T], out *Channel[U], step func(v T, emit func(U) error) error) {
	emit := func(v U) error {
		_, err := out.Push(v).Wait(ctx)
		return err
	}

	go func() {
		defer out.Close()
		for {
			v, ok, err := src.Shift().Wait(ctx)
			if err != nil || !ok {
				return
			}
			if err := step(v, emit); err != nil {
				return
			}
		}
	}()
}

// Map sends f(v) for every value of src to the returned channel. The output
// is closed when src is closed or ctx is cancelled.
func Map[T, U any](ctx context.Context, src Receiver[T], f func(T) U) *Channel[U] {
	out := New[U](0, inherit(src)...)
	pipe(ctx, src, out, func(v T, emit func(U) error) error {
		return emit(f(v))
	})
	return out
}

// Filter passes the values of src for which pred holds.
func Filter[T any](ctx context.Context, src Receiver[T], pred func(T) bool) *Channel[T] {
	out := New[T](0, inherit(src)...)
	pipe(ctx, src, out, func(v T, emit func(T) error) error {
		if !pred(v) {
			return nil
		}
		return emit(v)
	})
	return out
}

// FlatMap forwards, for every value of src, everything f's channel yields
// before moving on to the next value.
func FlatMap[T, U any](ctx context.Context, src Receiver[T], f func(T) Receiver[U]) *Channel[U] {
	out := New[U](0, inherit(src)...)
	pipe(ctx, src, out, func(v T, emit func(U) error) error {
		return forward(ctx, f(v), emit)
	})
	return out
}

// Flat replaces every channel found in src by the values it yields,
// descending depth levels. A depth below 1 flattens one level. Channels of
// any element type are flattened; other values pass through.
func Flat(ctx context.Context, src Receiver[any], depth int) *Channel[any] {
	if depth < 1 {
		depth = 1
	}
	out := New[any](0, inherit(src)...)
	pipe(ctx, src, out, func(v any, emit func(any) error) error {
		return flatten(ctx, v, depth, emit)
	})
	return out
}

func flatten(ctx context.Context, v any, depth int, emit func(any) error) error {
	r, ok := v.(anyReceiver)
	if !ok || depth < 1 {
		return emit(v)
	}
	return r.drainAny(ctx, func(item any) error {
		return flatten(ctx, item, depth-1, emit)
	})
}

// Slice skips the first start values of src and forwards those with index
// in [start, end). A negative end means no upper bound. Values past end are
// left in src.
func Slice[T any](ctx context.Context, src Receiver[T], start, end int) *Channel[T] {
	out := New[T](0, inherit(src)...)
	go func() {
		defer out.Close()
		for i := 0; i < start; i++ {
			if _, ok, err := src.Shift().Wait(ctx); err != nil || !ok {
				return
			}
		}
		for i := start; end < 0 || i < end; i++ {
			v, ok, err := src.Shift().Wait(ctx)
			if err != nil || !ok {
				return
			}
			if _, err := out.Push(v).Wait(ctx); err != nil {
				return
			}
		}
	}()
	return out
}

// Concat forwards all of src, then each item of rest in turn: a channel is
// drained, a T is sent as is. Values of any other type are logged and
// skipped, whether they come as items or out of a drained channel.
func Concat[T any](ctx context.Context, src Receiver[T], rest ...any) *Channel[T] {
	out := New[T](0, inherit(src)...)
	emit := func(v T) error {
		_, err := out.Push(v).Wait(ctx)
		return err
	}

	skip := func(v any) {
		out.e.cfg.logger.Warn("concat: skipping item",
			core.F("channel", out.Name()), core.F("type", fmt.Sprintf("%T", v)))
	}

	go func() {
		defer out.Close()
		if err := forward(ctx, src, emit); err != nil {
			return
		}
		for _, item := range rest {
			var err error
			// Channels come first: with T = any every item is a T.
			switch x := item.(type) {
			case Receiver[T]:
				err = forward(ctx, x, emit)
			case anyReceiver:
				err = x.drainAny(ctx, func(v any) error {
					t, ok := v.(T)
					if !ok {
						skip(v)
						return nil
					}
					return emit(t)
				})
			case T:
				err = emit(x)
			default:
				skip(item)
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}

// forward drains src through emit.
func forward[T any](ctx context.Context, src Receiver[T], emit func(T) error) error {
	for {
		v, ok, err := src.Shift().Wait(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := emit(v); err != nil {
			return err
		}
	}
}

// ForEach calls f for every value until src is closed. A non-nil error from
// f stops the loop and is returned; the rest of src stays undrained.
func ForEach[T any](ctx context.Context, src Receiver[T], f func(T) error) error {
	return forward(ctx, src, f)
}

// Values drains src into a slice.
func Values[T any](ctx context.Context, src Receiver[T]) ([]T, error) {
	var values []T
	err := forward(ctx, src, func(v T) error {
		values = append(values, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// Reduce folds src with f, seeded by its first value. An empty src yields
// ErrReduceEmpty.
func Reduce[T any](ctx context.Context, src Receiver[T], f func(acc, v T) T) (T, error) {
	var acc T
	seeded := false
	err := forward(ctx, src, func(v T) error {
		if seeded {
			acc = f(acc, v)
		} else {
			acc, seeded = v, true
		}
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if !seeded {
		return acc, ErrReduceEmpty
	}
	return acc, nil
}

// Fold folds src with f starting from init.
func Fold[T, A any](ctx context.Context, src Receiver[T], f func(acc A, v T) A, init A) (A, error) {
	acc := init
	err := forward(ctx, src, func(v T) error {
		acc = f(acc, v)
		return nil
	})
	if err != nil {
		return init, err
	}
	return acc, nil
}

// Every reports whether pred holds for all values. It stops shifting at the
// first value that fails.
func Every[T any](ctx context.Context, src Receiver[T], pred func(T) bool) (bool, error) {
	for {
		v, ok, err := src.Shift().Wait(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return true, nil
		}
		if !pred(v) {
			return false, nil
		}
	}
}

// Some reports whether pred holds for any value. It stops shifting at the
// first value that passes.
func Some[T any](ctx context.Context, src Receiver[T], pred func(T) bool) (bool, error) {
	for {
		v, ok, err := src.Shift().Wait(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		if pred(v) {
			return true, nil
		}
	}
}

// Join drains src and joins the fmt representation of its values with sep.
func Join[T any](ctx context.Context, src Receiver[T], sep string) (string, error) {
	var b strings.Builder
	first := true
	err := forward(ctx, src, func(v T) error {
		if !first {
			b.WriteString(sep)
		}
		first = false
		fmt.Fprint(&b, v)
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
