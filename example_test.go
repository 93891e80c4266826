package channel_test

import (
	"context"
	"fmt"
	"strings"

	channel "github.com/Swind/go-channel"
)

// ExampleNew demonstrates buffered pushes and draining a closed channel.
func ExampleNew() {
	ctx := context.Background()
	ch := channel.New[string](3)

	ch.Push("a")
	ch.Push("b")
	ch.Push("c")
	ch.Close()

	for {
		v, ok, err := ch.Shift().Wait(ctx)
		if err != nil || !ok {
			break
		}
		fmt.Println(v)
	}

	// Output:
	// a
	// b
	// c
}

// ExampleSelect demonstrates a closed channel used as a default case.
func ExampleSelect() {
	ctx := context.Background()
	empty := channel.New[int](0)
	closed := channel.New[int](0)
	closed.Close()

	winner, err := channel.Select(empty.ShiftCase(), closed.ShiftCase()).Wait(ctx)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(winner == closed)

	// Output:
	// true
}

// ExampleMap demonstrates chaining combinators.
func ExampleMap() {
	ctx := context.Background()

	upper := channel.Map(ctx, channel.Of("go", "csp"), strings.ToUpper)
	s, err := channel.Join[string](ctx, upper, "-")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(s)

	// Output:
	// GO-CSP
}

// ExampleNewSequencedTaskRunner demonstrates running passes on a worker pool.
func ExampleNewSequencedTaskRunner() {
	ctx := context.Background()
	pool := channel.NewWorkerPool("example", 2)
	pool.Start(ctx)
	defer pool.Stop()

	ch := channel.New[int](0, channel.WithRunner(channel.NewSequencedTaskRunner(pool)))
	ch.Push(42)

	v, ok, _ := ch.Shift().Wait(ctx)
	fmt.Println(v, ok)

	// Output:
	// 42 true
}
