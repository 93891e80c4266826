package channel

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// Order states. An order moves pending -> locked -> settled|cancelled, or
// pending -> cancelled directly. Only the owning engine locks an order.
const (
	statePending int32 = iota
	stateLocked
	stateSettled
	stateCancelled
)

// preCommitHook guards the commit of one order. prepare reserves the commit
// and is followed by exactly one of confirm or abort; a false prepare vetoes
// the commit. Engines that must prepare two hooks at once take them in rank
// order.
type preCommitHook interface {
	prepare() bool
	confirm()
	abort()
	rank() uint64
}

// order is the state shared by push and shift orders.
type order struct {
	state atomic.Int32

	// armed is set once someone waits on or selects a shift. Until then the
	// shift keeps its place in line without being served.
	armed atomic.Bool

	mu    sync.Mutex // guards hook and group
	hook  preCommitHook
	group *selectGroup

	owner any

	// submit arms the order, enqueueing it first if it was deferred.
	submit     func()
	submitOnce sync.Once

	// cancelled settles the typed future with ErrCancelled.
	cancelled func()
}

func (o *order) lock() bool {
	return o.state.CompareAndSwap(statePending, stateLocked)
}

func (o *order) unlock() {
	o.state.Store(statePending)
}

// ready reports whether the engine may serve the order.
func (o *order) ready() bool {
	return o.armed.Load() || o.state.Load() != statePending
}

// registerPreCommit installs h while the order is pending and returns the
// state it found. An order locked by its engine is waited on, since the
// engine either commits it or hands it back pending.
func (o *order) registerPreCommit(h preCommitHook) int32 {
	for {
		o.mu.Lock()
		st := o.state.Load()
		if st == statePending {
			o.hook = h
		}
		o.mu.Unlock()

		if st != stateLocked {
			return st
		}
		runtime.Gosched()
	}
}

func (o *order) preCommit() preCommitHook {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hook
}

func (o *order) rank() uint64 {
	if h := o.preCommit(); h != nil {
		return h.rank()
	}
	return 0
}

func (o *order) inGroup(other *order) bool {
	o.mu.Lock()
	g := o.group
	o.mu.Unlock()
	if g == nil {
		return false
	}
	other.mu.Lock()
	defer other.mu.Unlock()
	return other.group == g
}

// The following must be called with the order locked.

func (o *order) prepare() bool {
	h := o.preCommit()
	return h == nil || h.prepare()
}

func (o *order) abort() {
	if h := o.preCommit(); h != nil {
		h.abort()
	}
}

// confirm completes a prepared commit. The caller settles the future next.
func (o *order) confirm() {
	if h := o.preCommit(); h != nil {
		h.confirm()
	}
	o.state.Store(stateSettled)
}

// cancelLocked cancels an order the caller holds locked.
func (o *order) cancelLocked() {
	o.state.Store(stateCancelled)
	o.cancelled()
}

// commit locks the order, prepares its hook and, unless vetoed, settles it
// through settle. It reports whether the order committed.
func (o *order) commit(settle func()) bool {
	if !o.lock() {
		return false
	}
	if !o.prepare() {
		o.cancelLocked()
		return false
	}
	o.confirm()
	settle()
	return true
}

// preparePair prepares the hooks of two locked orders that commit together.
// Hooks are taken in rank order so two engines pairing orders of the same
// groups never wait on each other. On a veto nothing stays prepared and the
// vetoed side reports false.
func preparePair(a, b *order) (aOK, bOK bool) {
	if b.rank() < a.rank() {
		bOK, aOK = prepareInOrder(b, a)
		return aOK, bOK
	}
	return prepareInOrder(a, b)
}

func prepareInOrder(first, second *order) (bool, bool) {
	if !first.prepare() {
		return false, true
	}
	if !second.prepare() {
		first.abort()
		return true, false
	}
	return true, true
}

// tryCancel cancels a pending order without waiting on a locked one.
func (o *order) tryCancel() bool {
	if o.state.CompareAndSwap(statePending, stateCancelled) {
		o.cancelled()
		return true
	}
	return false
}

// Cancel withdraws a pending order. It is idempotent and returns true only
// for the call that actually cancelled it. While the engine holds the order
// locked for a commit, Cancel waits for the outcome.
func (o *order) Cancel() bool {
	for {
		switch o.state.Load() {
		case statePending:
			if o.tryCancel() {
				return true
			}
		case stateLocked:
			runtime.Gosched()
		default:
			return false
		}
	}
}

// Owner returns the channel or view the order was issued on.
func (o *order) Owner() any {
	return o.owner
}

// ensureSubmitted arms the order. Waiting on an order, or selecting it,
// is what arms it.
func (o *order) ensureSubmitted() {
	o.submitOnce.Do(func() {
		if o.submit != nil && o.state.Load() == statePending {
			o.submit()
		}
	})
}

// Case is an order that can take part in a Select: a *PushOrder or a
// *ShiftOrder.
type Case interface {
	Done() <-chan struct{}
	Cancel() bool
	Owner() any

	base() *order
	failure() error
}

// PushOrder is the pending outcome of one Push. It settles to the channel
// capacity once the value is handed to a receiver or accepted into the
// buffer.
type PushOrder struct {
	order
	fut *Future[int]
}

func newPushOrder(owner any) *PushOrder {
	o := &PushOrder{fut: newFuture[int]()}
	o.owner = owner
	o.cancelled = func() { o.fut.settle(0, ErrCancelled) }
	return o
}

func rejectedPush(owner any, err error) *PushOrder {
	o := newPushOrder(owner)
	o.state.Store(stateSettled)
	o.fut.settle(0, err)
	return o
}

// Wait blocks until the push settles. If ctx ends first the push is
// cancelled, unless the engine already committed it, in which case the
// committed result is returned.
func (o *PushOrder) Wait(ctx context.Context) (int, error) {
	o.ensureSubmitted()
	select {
	case <-o.fut.done:
	case <-ctx.Done():
		if o.Cancel() {
			return 0, ctx.Err()
		}
		<-o.fut.done
	}
	return o.fut.val, o.fut.err
}

// Done is closed once the push has settled.
func (o *PushOrder) Done() <-chan struct{} {
	o.ensureSubmitted()
	return o.fut.Done()
}

func (o *PushOrder) base() *order {
	if o == nil {
		return nil
	}
	return &o.order
}

func (o *PushOrder) failure() error {
	return o.fut.err
}

func (o *PushOrder) settle(capacity int) {
	o.fut.settle(capacity, nil)
}

func (o *PushOrder) reject(err error) {
	o.fut.settle(0, err)
}

// Received is the outcome of one shift. OK is false at end-of-stream.
type Received[T any] struct {
	Value T
	OK    bool
}

// ShiftOrder is the pending outcome of one Shift.
type ShiftOrder[T any] struct {
	order
	fut *Future[Received[T]]
}

func newShiftOrder[T any](owner any) *ShiftOrder[T] {
	o := &ShiftOrder[T]{fut: newFuture[Received[T]]()}
	o.owner = owner
	o.cancelled = func() { o.fut.settle(Received[T]{}, ErrCancelled) }
	return o
}

// Wait blocks until a value arrives or the channel reports end-of-stream
// (ok == false). If ctx ends first the shift is cancelled, unless the
// engine already committed it, in which case the received value is
// returned so that nothing is lost.
func (o *ShiftOrder[T]) Wait(ctx context.Context) (T, bool, error) {
	o.ensureSubmitted()
	select {
	case <-o.fut.done:
	case <-ctx.Done():
		if o.Cancel() {
			var zero T
			return zero, false, ctx.Err()
		}
		<-o.fut.done
	}
	r := o.fut.val
	return r.Value, r.OK, o.fut.err
}

// Done is closed once the shift has settled.
func (o *ShiftOrder[T]) Done() <-chan struct{} {
	o.ensureSubmitted()
	return o.fut.Done()
}

func (o *ShiftOrder[T]) base() *order {
	if o == nil {
		return nil
	}
	return &o.order
}

func (o *ShiftOrder[T]) failure() error {
	return o.fut.err
}

func (o *ShiftOrder[T]) settle(v T, ok bool) {
	o.fut.settle(Received[T]{Value: v, OK: ok}, nil)
}
