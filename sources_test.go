package channel

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/Swind/go-channel/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOf_ClosedAndBuffered(t *testing.T) {
	ch := Of(1, 2, 3)

	stats := ch.Stats()
	assert.Equal(t, 3, ch.Cap())
	assert.True(t, stats.Closed)
	assert.Equal(t, 3, stats.Buffered)
}

func TestFromFunc(t *testing.T) {
	ctx := testContext(t)

	n := 0
	ch := FromFunc(ctx, func() (int, bool) {
		n++
		return n, n <= 3
	})
	values, err := Values[int](ctx, ch)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, values)
}

func TestFromSeq(t *testing.T) {
	ctx := testContext(t)

	ch := FromSeq(ctx, slices.Values([]string{"a", "b"}), WithName("seq"))
	values, err := Values[string](ctx, ch)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, values)
	assert.Equal(t, "seq", ch.Name())
}

// TestFromReader verifies chunked byte streaming
// Given: A reader yielding one byte per Read
// When: It is streamed with a chunk size of 4
// Then: The concatenated chunks equal the input
func TestFromReader(t *testing.T) {
	ctx := testContext(t)
	input := "hello, channel"

	ch := FromReader(ctx, iotest.OneByteReader(strings.NewReader(input)), 4)
	chunks, err := Values[[]byte](ctx, ch)
	require.NoError(t, err)

	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 4)
	}
	assert.Equal(t, input, string(bytes.Join(chunks, nil)))
}

func TestFromReader_ErrorClosesChannel(t *testing.T) {
	ctx := testContext(t)
	r := io.MultiReader(strings.NewReader("ab"), iotest.ErrReader(errors.New("disk gone")))

	ch := FromReader(ctx, r, 0, WithLogger(core.NewNoOpLogger()))
	chunks, err := Values[[]byte](ctx, ch)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(bytes.Join(chunks, nil)))
}

// TestAll verifies synchronized rounds
// Given: Two channels, one with three values and one with two
// When: All is drained
// Then: Each round pairs the next shift of both, and it stops once both end in the same round
func TestAll(t *testing.T) {
	ctx := testContext(t)

	rounds, err := Values[[]Received[int]](ctx, All[int](ctx, Of(1, 2, 3), Of(10, 20)))
	require.NoError(t, err)

	assert.Equal(t, [][]Received[int]{
		{{Value: 1, OK: true}, {Value: 10, OK: true}},
		{{Value: 2, OK: true}, {Value: 20, OK: true}},
		{{Value: 3, OK: true}, {Value: 0, OK: false}},
	}, rounds)
}

func TestAll_NoInputs(t *testing.T) {
	ctx := testContext(t)

	rounds, err := Values[[]Received[int]](ctx, All[int](ctx))
	require.NoError(t, err)
	assert.Empty(t, rounds)
}

func TestAfter(t *testing.T) {
	ctx := testContext(t)
	start := time.Now()

	ch := After(15 * time.Millisecond)
	at, ok, err := ch.Shift().Wait(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.GreaterOrEqual(t, at.Sub(start), 15*time.Millisecond)

	_, ok, err = ch.Shift().Wait(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
