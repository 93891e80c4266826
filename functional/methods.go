package functional

import "context"

// Close closes the channel.
func Close(ctx context.Context, args ...any) (any, error) { return Call(ctx, "close", args...) }

// Concat forwards the channel, then the given item.
func Concat(ctx context.Context, args ...any) (any, error) { return Call(ctx, "concat", args...) }

// Every reports whether a predicate holds for all values.
func Every(ctx context.Context, args ...any) (any, error) { return Call(ctx, "every", args...) }

// Filter keeps the values a predicate accepts.
func Filter(ctx context.Context, args ...any) (any, error) { return Call(ctx, "filter", args...) }

// Flat flattens nested channels.
func Flat(ctx context.Context, args ...any) (any, error) { return Call(ctx, "flat", args...) }

// FlatMap maps values to channels and forwards their values.
func FlatMap(ctx context.Context, args ...any) (any, error) { return Call(ctx, "flatMap", args...) }

// ForEach calls a function for every value.
func ForEach(ctx context.Context, args ...any) (any, error) { return Call(ctx, "forEach", args...) }

// Join joins the values with a separator, "," when nil.
func Join(ctx context.Context, args ...any) (any, error) { return Call(ctx, "join", args...) }

// Length returns the channel capacity.
func Length(ctx context.Context, args ...any) (any, error) { return Call(ctx, "length", args...) }

// Map maps every value.
func Map(ctx context.Context, args ...any) (any, error) { return Call(ctx, "map", args...) }

// Push pushes one value.
func Push(ctx context.Context, args ...any) (any, error) { return Call(ctx, "push", args...) }

// ReadOnly returns the receive-only view.
func ReadOnly(ctx context.Context, args ...any) (any, error) { return Call(ctx, "readOnly", args...) }

// Reduce folds the values; a nil seed folds from the first value.
func Reduce(ctx context.Context, args ...any) (any, error) { return Call(ctx, "reduce", args...) }

// Shift shifts one value.
func Shift(ctx context.Context, args ...any) (any, error) { return Call(ctx, "shift", args...) }

// Slice forwards values with index in [start, end); a nil end is unbounded.
func Slice(ctx context.Context, args ...any) (any, error) { return Call(ctx, "slice", args...) }

// Some reports whether a predicate holds for any value.
func Some(ctx context.Context, args ...any) (any, error) { return Call(ctx, "some", args...) }

// ToString describes the channel.
func ToString(ctx context.Context, args ...any) (any, error) { return Call(ctx, "toString", args...) }

// Value returns the last transferred value.
func Value(ctx context.Context, args ...any) (any, error) { return Call(ctx, "value", args...) }

// Values drains the channel into a slice.
func Values(ctx context.Context, args ...any) (any, error) { return Call(ctx, "values", args...) }

// WriteOnly returns the send-only view.
func WriteOnly(ctx context.Context, args ...any) (any, error) { return Call(ctx, "writeOnly", args...) }
