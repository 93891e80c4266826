// Package functional exposes every channel operation as a free function
// over Channel[any], taking the operation's arguments first and the channel
// last:
//
//	functional.Slice(ctx, 10, -1, ch)
//
// Any shorter argument list returns a Curried value waiting for the rest:
//
//	f, _ := functional.Slice(ctx, 10)
//	g, _ := f.(functional.Curried).Call(-1)
//	out, err := g.(functional.Curried).Call(ch)
package functional

import (
	"context"
	"errors"
	"fmt"
	"slices"

	channel "github.com/Swind/go-channel"
)

var (
	// ErrUnknownMethod is returned for a method name the dispatcher does not
	// know.
	ErrUnknownMethod = errors.New("functional: unknown method")

	// ErrBadArgument wraps every argument type mismatch.
	ErrBadArgument = errors.New("functional: bad argument")
)

// arities counts the arguments each method takes before the channel.
var arities = map[string]int{
	"close":     0,
	"length":    0,
	"readOnly":  0,
	"shift":     0,
	"toString":  0,
	"value":     0,
	"values":    0,
	"writeOnly": 0,
	"concat":    1,
	"every":     1,
	"filter":    1,
	"flat":      1,
	"flatMap":   1,
	"forEach":   1,
	"join":      1,
	"map":       1,
	"push":      1,
	"some":      1,
	"reduce":    2,
	"slice":     2,
}

// Curried is a method with some of its arguments bound.
type Curried struct {
	ctx    context.Context
	method string
	args   []any
}

// Call appends args to the bound ones and dispatches once the channel is
// among them.
func (c Curried) Call(args ...any) (any, error) {
	return Call(c.ctx, c.method, append(slices.Clone(c.args), args...)...)
}

// Method returns the name of the bound method.
func (c Curried) Method() string {
	return c.method
}

// Call applies method to args. The argument at the method's arity is the
// channel; with fewer arguments a Curried is returned.
func Call(ctx context.Context, method string, args ...any) (any, error) {
	arity, ok := arities[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	if len(args) <= arity {
		return Curried{ctx: ctx, method: method, args: args}, nil
	}

	target := args[arity]
	if method == "push" && len(args) > 2 && channel.IsChannel(args[len(args)-1]) {
		return nil, channel.ErrPushMultipleValues
	}
	if !channel.IsChannel(target) {
		return nil, fmt.Errorf("%w: %s expects a channel at position %d, got %T", ErrBadArgument, method, arity, target)
	}
	return dispatch(ctx, method, args[:arity], target)
}

type (
	receiver interface {
		channel.Receiver[any]
		ReadOnly() *channel.ReadOnly[any]
		Value() (any, bool)
	}
	sender interface {
		channel.Sender[any]
		WriteOnly() *channel.WriteOnly[any]
	}
	described interface {
		Cap() int
		String() string
	}
)

func dispatch(ctx context.Context, method string, args []any, target any) (any, error) {
	switch method {
	case "length":
		return target.(described).Cap(), nil
	case "toString":
		return target.(described).String(), nil
	case "push", "close", "writeOnly":
		w, ok := target.(sender)
		if !ok {
			return nil, fmt.Errorf("%w: %s on a read-only channel", ErrBadArgument, method)
		}
		switch method {
		case "push":
			return w.Push(args[0]), nil
		case "close":
			return w.Close(), nil
		default:
			return w.WriteOnly(), nil
		}
	}

	r, ok := target.(receiver)
	if !ok {
		return nil, fmt.Errorf("%w: %s on a write-only channel", ErrBadArgument, method)
	}
	switch method {
	case "shift":
		return r.Shift(), nil
	case "readOnly":
		return r.ReadOnly(), nil
	case "value":
		v, _ := r.Value()
		return v, nil
	case "values":
		return channel.Values(ctx, r)
	case "concat":
		return channel.Concat(ctx, r, args[0]), nil
	case "flat":
		depth, err := intArg(method, args[0], 1)
		if err != nil {
			return nil, err
		}
		return channel.Flat(ctx, r, depth), nil
	case "join":
		sep := ","
		if args[0] != nil {
			s, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("%w: join separator must be a string, got %T", ErrBadArgument, args[0])
			}
			sep = s
		}
		return channel.Join(ctx, r, sep)
	case "slice":
		start, err := intArg(method, args[0], 0)
		if err != nil {
			return nil, err
		}
		end, err := intArg(method, args[1], -1)
		if err != nil {
			return nil, err
		}
		return channel.Slice(ctx, r, start, end), nil
	case "reduce":
		f, ok := args[0].(func(acc, v any) any)
		if !ok {
			return nil, fmt.Errorf("%w: reduce expects func(acc, v any) any, got %T", ErrBadArgument, args[0])
		}
		if args[1] == nil {
			return channel.Reduce(ctx, r, f)
		}
		return channel.Fold(ctx, r, f, args[1])
	}
	return callbackMethod(ctx, method, args[0], r)
}

func callbackMethod(ctx context.Context, method string, fn any, r receiver) (any, error) {
	switch method {
	case "map":
		f, ok := fn.(func(any) any)
		if !ok {
			return nil, badCallback(method, "func(any) any", fn)
		}
		return channel.Map(ctx, r, f), nil
	case "filter", "every", "some":
		pred, ok := fn.(func(any) bool)
		if !ok {
			return nil, badCallback(method, "func(any) bool", fn)
		}
		switch method {
		case "filter":
			return channel.Filter(ctx, r, pred), nil
		case "every":
			return channel.Every(ctx, r, pred)
		default:
			return channel.Some(ctx, r, pred)
		}
	case "flatMap":
		f, ok := fn.(func(any) channel.Receiver[any])
		if !ok {
			return nil, badCallback(method, "func(any) channel.Receiver[any]", fn)
		}
		return channel.FlatMap(ctx, r, f), nil
	case "forEach":
		switch f := fn.(type) {
		case func(any) error:
			return nil, channel.ForEach(ctx, r, f)
		case func(any):
			return nil, channel.ForEach(ctx, r, func(v any) error {
				f(v)
				return nil
			})
		}
		return nil, badCallback(method, "func(any) error", fn)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
}

func badCallback(method, want string, got any) error {
	return fmt.Errorf("%w: %s expects %s, got %T", ErrBadArgument, method, want, got)
}

// intArg converts v to an int; nil selects def.
func intArg(method string, v any, def int) (int, error) {
	switch n := v.(type) {
	case nil:
		return def, nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	}
	return 0, fmt.Errorf("%w: %s expects an int, got %T", ErrBadArgument, method, v)
}

// Select races cases given as a []channel.Case or a []any of cases. Any
// other argument fails with channel.ErrSelectNotSlice.
func Select(arg any) *channel.Selection {
	return channel.SelectOf(arg)
}
