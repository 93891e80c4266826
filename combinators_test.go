package channel

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValues_RoundTrip(t *testing.T) {
	ctx := testContext(t)

	values, err := Values[string](ctx, Of("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, values)
}

func TestMap(t *testing.T) {
	ctx := testContext(t)

	out := Map(ctx, Of(1, 2, 3), func(v int) string { return strconv.Itoa(v * 10) })
	values, err := Values[string](ctx, out)
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "20", "30"}, values)
}

func TestFilter(t *testing.T) {
	ctx := testContext(t)

	out := Filter(ctx, Of(1, 2, 3, 4, 5, 6), func(v int) bool { return v%2 == 0 })
	values, err := Values[int](ctx, out)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 6}, values)
}

func TestFlatMap(t *testing.T) {
	ctx := testContext(t)

	out := FlatMap(ctx, Of(1, 2, 3), func(v int) Receiver[int] {
		return Of(v, v*100)
	})
	values, err := Values[int](ctx, out)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 100, 2, 200, 3, 300}, values)
}

// TestFlat verifies depth-limited flattening
// Given: A channel mixing plain values, a channel and a channel of channels
// When: It is flattened with depth 1 and depth 2
// Then: Depth 1 leaves the innermost channel as a value, depth 2 expands it
func TestFlat(t *testing.T) {
	ctx := testContext(t)
	build := func() *Channel[any] {
		inner := Of[any]("x", "y")
		nested := Of[any](1, inner)
		return Of[any](0, Of(7, 8), nested)
	}

	values, err := Values[any](ctx, Flat(ctx, build(), 1))
	require.NoError(t, err)
	require.Len(t, values, 5)
	assert.Equal(t, []any{0, 7, 8, 1}, values[:4])
	assert.True(t, IsChannel(values[4]))

	values, err = Values[any](ctx, Flat(ctx, build(), 2))
	require.NoError(t, err)
	assert.Equal(t, []any{0, 7, 8, 1, "x", "y"}, values)

	values, err = Values[any](ctx, Flat(ctx, Of[any](Of(1)), 0))
	require.NoError(t, err)
	assert.Equal(t, []any{1}, values)
}

// TestSlice verifies windowing and that values past end stay in the source
// Given: A channel holding 0..9
// When: Slice(2, 5) is drained
// Then: It yields 2, 3, 4 and the source still holds 5..9
func TestSlice(t *testing.T) {
	ctx := testContext(t)
	src := From([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})

	values, err := Values[int](ctx, Slice[int](ctx, src, 2, 5))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, values)

	rest, err := Values[int](ctx, src)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6, 7, 8, 9}, rest)

	values, err = Values[int](ctx, Slice[int](ctx, Of(1, 2, 3), 1, -1))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, values)
}

func TestConcat(t *testing.T) {
	ctx := testContext(t)

	out := Concat[int](ctx, Of(1, 2), 3, Of(4, 5), "skipped", 6)
	values, err := Values[int](ctx, out)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, values)
}

// TestConcat_ChannelsOfOtherElementTypes verifies channel items are drained
// Given: A Concat over any values whose rest holds a channel of ints
// When: The output is drained
// Then: The ints arrive one by one instead of the channel itself
func TestConcat_ChannelsOfOtherElementTypes(t *testing.T) {
	ctx := testContext(t)

	out := Concat[any](ctx, Of[any](1), Of(2, 3), "four")
	values, err := Values[any](ctx, out)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3, "four"}, values)

	typed := Concat[int](ctx, Of(1), Of("x", "y"), Of[any](2, "z"))
	ints, err := Values[int](ctx, typed)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ints)
}

func TestReduce(t *testing.T) {
	ctx := testContext(t)
	sum := func(acc, v int) int { return acc + v }

	total, err := Reduce[int](ctx, Of(1, 2, 3, 4), sum)
	require.NoError(t, err)
	assert.Equal(t, 10, total)

	_, err = Reduce[int](ctx, Of[int](), sum)
	assert.ErrorIs(t, err, ErrReduceEmpty)
	assert.EqualError(t, err, "No values in channel and initialValue wasn't provided.")
}

func TestFold(t *testing.T) {
	ctx := testContext(t)

	got, err := Fold(ctx, Of(1, 2, 3), func(acc string, v int) string {
		return acc + strconv.Itoa(v)
	}, ">")
	require.NoError(t, err)
	assert.Equal(t, ">123", got)

	got, err = Fold(ctx, Of[int](), func(acc string, v int) string { return acc }, "seed")
	require.NoError(t, err)
	assert.Equal(t, "seed", got)
}

// TestEveryAndSome verify short-circuiting
// Given: A channel holding 1..5
// When: Every fails on 3 and Some succeeds on 2
// Then: Both stop early and leave the remaining values in the source
func TestEveryAndSome(t *testing.T) {
	ctx := testContext(t)

	src := Of(1, 2, 3, 4, 5)
	all, err := Every[int](ctx, src, func(v int) bool { return v < 3 })
	require.NoError(t, err)
	assert.False(t, all)
	rest, err := Values[int](ctx, src)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, rest)

	src = Of(1, 2, 3, 4, 5)
	found, err := Some[int](ctx, src, func(v int) bool { return v == 2 })
	require.NoError(t, err)
	assert.True(t, found)
	rest, err = Values[int](ctx, src)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5}, rest)

	all, err = Every[int](ctx, Of[int](), func(int) bool { return false })
	require.NoError(t, err)
	assert.True(t, all)
	found, err = Some[int](ctx, Of[int](), func(int) bool { return true })
	require.NoError(t, err)
	assert.False(t, found)
}

func TestJoin(t *testing.T) {
	ctx := testContext(t)

	s, err := Join[int](ctx, Of(1, 2, 3), ",")
	require.NoError(t, err)
	assert.Equal(t, "1,2,3", s)

	s, err = Join[string](ctx, Of[string](), "-")
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestForEach_StopsOnError(t *testing.T) {
	ctx := testContext(t)
	stop := errors.New("stop")

	var seen []int
	err := ForEach[int](ctx, Of(1, 2, 3), func(v int) error {
		seen = append(seen, v)
		if v == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, []int{1, 2}, seen)
}

// TestMap_ContextCancelClosesOutput verifies pipeline teardown
// Given: A Map over a source that never closes
// When: The pipeline context is cancelled
// Then: The output closes and the upstream shift is withdrawn
func TestMap_ContextCancelClosesOutput(t *testing.T) {
	src := New[int](0)
	pipeCtx, cancel := context.WithCancel(context.Background())
	out := Map(pipeCtx, src, func(v int) int { return v })

	cancel()

	ctx := testContext(t)
	_, ok, err := out.Shift().Wait(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Eventually(t, func() bool {
		return src.Stats().PendingShifts == 0
	}, time.Second, 5*time.Millisecond)
}

// TestPipeline_InheritsRunner verifies derived channels share the source setup
// Given: A source bound to a dedicated loop
// When: It is mapped and filtered
// Then: The derived channels run their passes on the same loop
func TestPipeline_InheritsRunner(t *testing.T) {
	ctx := testContext(t)
	loop := NewLoop("pipeline")
	defer loop.Stop()

	src := From([]int{1, 2, 3, 4}, WithRunner(loop))
	doubled := Map(ctx, src, func(v int) int { return v * 2 })
	big := Filter(ctx, doubled, func(v int) bool { return v > 4 })

	values, err := Values[int](ctx, big)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 8}, values)
	assert.Same(t, loop, big.e.cfg.runner)
}
