// Package channel provides CSP channels built on a cooperative task runner.
//
// A channel pairs pushes with shifts in arrival order. Every Push and Shift
// returns an order, a handle that settles once the engine commits it, and
// that can be cancelled until then. Matching happens in passes that a
// channel posts to its TaskRunner; a pass runs to completion before the next
// one on the same channel starts.
//
// # Quick Start
//
//	ch := channel.New[int](2) // buffer of two
//
//	ch.Push(1)
//	ch.Push(2)
//	third := ch.Push(3) // waits for a receiver
//
//	v, ok, err := ch.Shift().Wait(ctx) // 1, true, nil
//	_, err = third.Wait(ctx)          // accepted into the freed slot
//
// # End-of-stream
//
// Close settles every waiting shift with ok == false, and so does every
// shift issued on a closed, drained channel. Pushes issued after Close are
// rejected with ErrPushToClosed. Pushes that were waiting for a receiver
// when Close ran are left queued, like a send on a channel nobody reads.
//
// # Select
//
// Select races several orders, possibly on different channels, and commits
// exactly one:
//
//	sel := channel.Select(a.ShiftCase(), b.PushCase(x), closed.ShiftCase())
//	winner, err := sel.Wait(ctx)
//	if winner == closed {
//		// nothing else was ready
//	}
//
// Before an order commits, the engine prepares its pre-commit hook. Select's
// hook holds the group's claim while the commit is under way; once the
// commit goes through the claim is final and the other orders are
// cancelled. If the counterpart of a claimant is vetoed, the claim is handed
// back and the select stays open. A shift is only served once it is waited
// on or selected, so Shift orders are as safe to select as ShiftCase ones.
//
// # Runners
//
// Channels run their passes on the process-wide loop returned by GlobalLoop
// unless WithRunner binds them to another core.TaskRunner, such as a
// core.SequencedTaskRunner on a core.WorkerPool.
//
// # Combinators
//
// Map, Filter, FlatMap, Flat, Slice and Concat start a goroutine that feeds
// a new channel; Reduce, Fold, Every, Some, Join, Values and ForEach consume
// a channel and return a result. All of them only use Push, Shift and
// Close.
package channel
