package channel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Swind/go-channel/core"
)

type pushItem[T any] struct {
	order    *PushOrder
	value    T
	accepted bool // settled into the buffer, waiting for a shift
}

// engine owns the queues of one channel. Every view of the channel shares
// it.
type engine[T any] struct {
	cfg      config
	capacity int

	mu         sync.Mutex
	closed     bool
	last       T
	lastOK     bool
	pushes     *core.Queue[*pushItem[T]]
	shifts     *core.Queue[*ShiftOrder[T]]
	lastPassAt time.Time

	passScheduled atomic.Bool

	transferred atomic.Int64
	cancelled   atomic.Int64
	rejected    atomic.Int64
	passes      atomic.Int64
}

func (e *engine[T]) push(owner any, v T, deferred bool) *PushOrder {
	if any(v) == nil {
		e.reject("end-of-stream")
		return rejectedPush(owner, ErrPushEndOfStream)
	}

	o := newPushOrder(owner)
	item := &pushItem[T]{order: o, value: v}
	o.submit = func() { e.enqueuePush(item) }
	if !deferred {
		o.ensureSubmitted()
	}
	return o
}

func (e *engine[T]) enqueuePush(item *pushItem[T]) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.reject("closed")
		o := item.order
		o.commit(func() { o.reject(ErrPushToClosed) })
		return
	}
	e.pushes.Push(item)
	e.mu.Unlock()

	e.schedulePass()
}

// shift takes a place in the shift queue at once, unless deferred, but is
// only served once armed.
func (e *engine[T]) shift(owner any, deferred bool) *ShiftOrder[T] {
	o := newShiftOrder[T](owner)
	if deferred {
		o.submit = func() {
			o.armed.Store(true)
			e.enqueueShift(o)
		}
		return o
	}

	o.submit = func() {
		o.armed.Store(true)
		e.schedulePass()
	}
	e.mu.Lock()
	e.shifts.Push(o)
	e.mu.Unlock()
	return o
}

func (e *engine[T]) enqueueShift(o *ShiftOrder[T]) {
	e.mu.Lock()
	e.shifts.Push(o)
	e.mu.Unlock()

	e.schedulePass()
}

func (e *engine[T]) close() *Future[struct{}] {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.reject("already closed")
		return settledFuture(struct{}{}, ErrAlreadyClosed)
	}
	e.closed = true
	e.pass()
	e.mu.Unlock()

	e.cfg.logger.Debug("channel closed", core.F("channel", e.cfg.name))

	// Settle on the next turn so orders committed by the pass above are
	// observed before the close itself. A runner that has shut down has no
	// next turn.
	f := newFuture[struct{}]()
	e.cfg.runner.PostTask(func(context.Context) {
		f.settle(struct{}{}, nil)
	})
	if r, ok := e.cfg.runner.(interface{ IsClosed() bool }); ok && r.IsClosed() {
		f.settle(struct{}{}, nil)
	}
	return f
}

func (e *engine[T]) reject(reason string) {
	e.rejected.Add(1)
	e.cfg.metrics.RecordRejected(e.cfg.name, reason)
	e.cfg.logger.Debug("order rejected", core.F("channel", e.cfg.name), core.F("reason", reason))
}

// schedulePass posts a matching pass unless one is already waiting to run.
func (e *engine[T]) schedulePass() {
	if !e.passScheduled.CompareAndSwap(false, true) {
		return
	}
	e.cfg.runner.PostTask(func(context.Context) {
		e.passScheduled.Store(false)

		e.mu.Lock()
		e.pass()
		e.mu.Unlock()
	})
}

// pass pairs pushes with shifts, fills the buffer, drains shifts once the
// channel is closed and compacts both queues. Must be called with e.mu held.
func (e *engine[T]) pass() {
	start := time.Now()
	pushes, shifts := e.pushes, e.shifts
	var transferred, accepted, drained, cancelled int

	// 1. Lock-step FIFO pairing. Dead heads are skipped without consuming
	// the other side. A shift that is not armed yet holds its place and
	// ends the pairing.
	pi, si := 0, 0
	for pi < pushes.Len() && si < shifts.Len() {
		p, s := pushes.At(pi), shifts.At(si)
		if !s.ready() {
			break
		}

		if p.accepted {
			if s.commit(func() { s.settle(p.value, true) }) {
				e.last, e.lastOK = p.value, true
				transferred++
				pi++
			}
			si++
			continue
		}

		if !p.order.lock() {
			cancelled++
			pi++
			continue
		}
		if !s.lock() {
			p.order.unlock()
			si++
			continue
		}
		if p.order.inGroup(&s.order) {
			// A select never receives its own send. The shift stays queued
			// for another push.
			p.order.unlock()
			s.unlock()
			si++
			continue
		}

		pOK, sOK := preparePair(&p.order.order, &s.order)
		if !pOK {
			p.order.cancelLocked()
			s.unlock()
			cancelled++
			pi++
			continue
		}
		if !sOK {
			s.cancelLocked()
			p.order.unlock()
			si++
			continue
		}

		p.order.confirm()
		s.confirm()
		e.last, e.lastOK = p.value, true
		s.settle(p.value, true)
		p.order.settle(e.capacity)
		transferred++
		pi++
		si++
	}

	// 2. Accept up to capacity further pushes into the buffer. Accepted
	// pushes always precede the live ones that are still waiting.
	buffered := 0
	for j := pi; j < pushes.Len(); j++ {
		p := pushes.At(j)
		if p.accepted {
			buffered++
			continue
		}
		if buffered >= e.capacity {
			break
		}
		if p.order.commit(func() { p.order.settle(e.capacity) }) {
			p.accepted = true
			buffered++
			accepted++
		}
	}

	// 3. A closed channel has nothing left for waiting shifts. Pushes that
	// were never accepted stay queued. Shifts passed over in step 1 are
	// still pending, so the drain starts from the head.
	if e.closed {
		var zero T
		for i := 0; i < shifts.Len(); i++ {
			s := shifts.At(i)
			if !s.ready() {
				break
			}
			if s.commit(func() { s.settle(zero, false) }) {
				drained++
			}
		}
		if drained > 0 {
			e.last, e.lastOK = zero, false
		}
	}

	// 4. Compact. Pushes before the scan point are spent; everything else
	// that is no longer pending goes too.
	pushes.Discard(pi)
	pushes.Retain(func(p *pushItem[T]) bool {
		st := p.order.state.Load()
		if st == stateCancelled {
			cancelled++
		}
		return p.accepted || st == statePending
	})
	shifts.Retain(func(s *ShiftOrder[T]) bool {
		st := s.state.Load()
		if st == stateCancelled {
			cancelled++
		}
		return st == statePending
	})

	e.passes.Add(1)
	e.transferred.Add(int64(transferred))
	e.cancelled.Add(int64(cancelled))
	e.lastPassAt = time.Now()

	e.cfg.metrics.RecordPass(e.cfg.name, transferred, accepted, drained, time.Since(start))
	e.cfg.metrics.RecordChannelDepth(e.cfg.name, pushes.Len()-buffered, shifts.Len(), buffered)
}

func (e *engine[T]) value() (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, e.lastOK
}

func (e *engine[T]) stats() core.ChannelStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	buffered, pendingPushes := 0, 0
	for i := 0; i < e.pushes.Len(); i++ {
		p := e.pushes.At(i)
		switch {
		case p.accepted:
			buffered++
		case p.order.state.Load() == statePending:
			pendingPushes++
		}
	}
	pendingShifts := 0
	for i := 0; i < e.shifts.Len(); i++ {
		if e.shifts.At(i).state.Load() == statePending {
			pendingShifts++
		}
	}

	return core.ChannelStats{
		Name:          e.cfg.name,
		Capacity:      e.capacity,
		Closed:        e.closed,
		PendingPushes: pendingPushes,
		Buffered:      buffered,
		PendingShifts: pendingShifts,
		Transferred:   e.transferred.Load(),
		Cancelled:     e.cancelled.Load(),
		Rejected:      e.rejected.Load(),
		Passes:        e.passes.Load(),
		LastPassAt:    e.lastPassAt,
	}
}

// drain shifts from e until end-of-stream, boxing each value. It backs
// Flat and Concat, which accept channels of any element type.
func (e *engine[T]) drain(ctx context.Context, owner any, fn func(any) error) error {
	for {
		v, ok, err := e.shift(owner, false).Wait(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(v); err != nil {
			return err
		}
	}
}

// =============================================================================
// Channel and capability views
// =============================================================================

// Channel is a CSP channel: pushes and shifts rendezvous in FIFO order, with
// up to Cap() pushes accepted ahead of a receiver.
type Channel[T any] struct {
	e  *engine[T]
	ro *ReadOnly[T]
	wo *WriteOnly[T]
}

// New creates a channel with the given buffer capacity. Capacity 0 makes
// every push wait for a shift.
func New[T any](capacity int, opts ...Option) *Channel[T] {
	if capacity < 0 {
		panic("channel: capacity must be non-negative")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.runner == nil {
		cfg.runner = GlobalLoop()
	}

	c := &Channel[T]{
		e: &engine[T]{
			cfg:      cfg,
			capacity: capacity,
			pushes:   core.NewQueue[*pushItem[T]](),
			shifts:   core.NewQueue[*ShiftOrder[T]](),
		},
	}
	c.ro = &ReadOnly[T]{c: c}
	c.wo = &WriteOnly[T]{c: c}
	return c
}

// Push offers v to the channel. The order is rejected at once on a closed
// channel, or when v is a nil interface, which is reserved for
// end-of-stream.
func (c *Channel[T]) Push(v T) *PushOrder { return c.e.push(c, v, false) }

// PushCase is Push for use in Select: the order reaches the channel only
// once Select has claimed it, or on the first Wait or Done.
func (c *Channel[T]) PushCase(v T) *PushOrder { return c.e.push(c, v, true) }

// Shift asks for the next value. The shift takes its place in line at once
// and is served once it is waited on or selected.
func (c *Channel[T]) Shift() *ShiftOrder[T] { return c.e.shift(c, false) }

// ShiftCase is the deferred form of Shift: it joins the line only when it
// is waited on or selected.
func (c *Channel[T]) ShiftCase() *ShiftOrder[T] { return c.e.shift(c, true) }

// Close marks the channel closed and settles every waiting shift to
// end-of-stream. Pushes still waiting for a receiver stay queued.
func (c *Channel[T]) Close() *Future[struct{}] { return c.e.close() }

// Value returns the last value handed to a receiver. ok is false before the
// first transfer and after an end-of-stream was delivered.
func (c *Channel[T]) Value() (T, bool) { return c.e.value() }

// Cap returns the buffer capacity.
func (c *Channel[T]) Cap() int { return c.e.capacity }

// ReadOnly returns the receive-only view of c.
func (c *Channel[T]) ReadOnly() *ReadOnly[T] { return c.ro }

// WriteOnly returns the send-only view of c.
func (c *Channel[T]) WriteOnly() *WriteOnly[T] { return c.wo }

// Name returns the name used in logs and metrics.
func (c *Channel[T]) Name() string { return c.e.cfg.name }

// Stats returns a snapshot of the channel queues and counters.
func (c *Channel[T]) Stats() core.ChannelStats { return c.e.stats() }

func (c *Channel[T]) String() string { return fmt.Sprintf("Channel(%d)", c.e.capacity) }

func (c *Channel[T]) isChannel()           {}
func (c *Channel[T]) engineConfig() config { return c.e.cfg }
func (c *Channel[T]) drainAny(ctx context.Context, fn func(any) error) error {
	return c.e.drain(ctx, c, fn)
}

// ReadOnly exposes the receiving side of a channel.
type ReadOnly[T any] struct {
	c *Channel[T]
}

func (r *ReadOnly[T]) Shift() *ShiftOrder[T]     { return r.c.e.shift(r, false) }
func (r *ReadOnly[T]) ShiftCase() *ShiftOrder[T] { return r.c.e.shift(r, true) }
func (r *ReadOnly[T]) Value() (T, bool)          { return r.c.e.value() }
func (r *ReadOnly[T]) Cap() int                  { return r.c.e.capacity }
func (r *ReadOnly[T]) ReadOnly() *ReadOnly[T]    { return r }
func (r *ReadOnly[T]) Name() string              { return r.c.e.cfg.name }
func (r *ReadOnly[T]) Stats() core.ChannelStats  { return r.c.e.stats() }
func (r *ReadOnly[T]) String() string            { return r.c.String() }

func (r *ReadOnly[T]) isChannel()           {}
func (r *ReadOnly[T]) engineConfig() config { return r.c.e.cfg }
func (r *ReadOnly[T]) drainAny(ctx context.Context, fn func(any) error) error {
	return r.c.e.drain(ctx, r, fn)
}

// WriteOnly exposes the sending side of a channel.
type WriteOnly[T any] struct {
	c *Channel[T]
}

func (w *WriteOnly[T]) Push(v T) *PushOrder      { return w.c.e.push(w, v, false) }
func (w *WriteOnly[T]) PushCase(v T) *PushOrder  { return w.c.e.push(w, v, true) }
func (w *WriteOnly[T]) Close() *Future[struct{}] { return w.c.e.close() }
func (w *WriteOnly[T]) Cap() int                 { return w.c.e.capacity }
func (w *WriteOnly[T]) WriteOnly() *WriteOnly[T] { return w }
func (w *WriteOnly[T]) Name() string             { return w.c.e.cfg.name }
func (w *WriteOnly[T]) Stats() core.ChannelStats { return w.c.e.stats() }
func (w *WriteOnly[T]) String() string           { return w.c.String() }
func (w *WriteOnly[T]) isChannel()               {}
func (w *WriteOnly[T]) engineConfig() config     { return w.c.e.cfg }

// Receiver is anything values can be shifted from: a Channel or its
// ReadOnly view.
type Receiver[T any] interface {
	Shift() *ShiftOrder[T]
}

// Sender is anything values can be pushed to: a Channel or its WriteOnly
// view.
type Sender[T any] interface {
	Push(v T) *PushOrder
	Close() *Future[struct{}]
}

type channelMarker interface {
	isChannel()
}

// anyReceiver drains a channel of any element type.
type anyReceiver interface {
	drainAny(ctx context.Context, fn func(any) error) error
}

// IsChannel reports whether v is a channel or a view of one.
func IsChannel(v any) bool {
	_, ok := v.(channelMarker)
	return ok
}
