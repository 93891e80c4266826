package channel

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Swind/go-channel/core"
)

var groupSeq atomic.Uint64

// selectGroup lets exactly one of its cases commit. An engine about to
// commit a case holds the group's claim until the commit goes through or
// falls apart; a claim that goes through is final and every later claimant
// is vetoed.
type selectGroup struct {
	id      uint64
	cases   []Case
	winner  atomic.Int32 // -1 while unclaimed
	decided atomic.Bool
	claimed chan struct{}
	once    sync.Once
}

func newSelectGroup(cases []Case) *selectGroup {
	g := &selectGroup{
		id:      groupSeq.Add(1),
		cases:   cases,
		claimed: make(chan struct{}),
	}
	g.winner.Store(-1)
	return g
}

// prepare takes the claim for case i. A claim held by an engine that has
// not decided yet is waited out.
func (g *selectGroup) prepare(i int) bool {
	for {
		if g.winner.CompareAndSwap(-1, int32(i)) {
			return true
		}
		if g.decided.Load() {
			return false
		}
		runtime.Gosched()
	}
}

func (g *selectGroup) abort(i int) {
	g.winner.CompareAndSwap(int32(i), -1)
}

// confirm makes the claim of case i final and cancels its siblings. It must
// not wait on a locked sibling: it may run inside the matching pass that
// holds that sibling. A locked sibling is vetoed when its engine prepares
// it.
func (g *selectGroup) confirm(i int) {
	g.decided.Store(true)
	g.once.Do(func() { close(g.claimed) })
	for j, c := range g.cases {
		if j != i {
			c.base().tryCancel()
		}
	}
}

// member is the pre-commit hook of case i.
type member struct {
	g *selectGroup
	i int
}

func (m member) prepare() bool { return m.g.prepare(m.i) }
func (m member) confirm()      { m.g.confirm(m.i) }
func (m member) abort()        { m.g.abort(m.i) }
func (m member) rank() uint64  { return m.g.id }

// Selection is the outcome of a Select.
type Selection struct {
	g        *selectGroup
	fut      *Future[any]
	index    atomic.Int32
	stop     chan struct{}
	stopOnce sync.Once
	metrics  core.Metrics
}

// Select races cases and commits exactly one of them. The selection settles
// to the owner of the winning case (the channel or view it was issued on)
// once that case settles; if the winner failed, its error is the
// selection's error. Every other case is cancelled.
//
// A shift is not served before it is waited on or selected, so shifts from
// Shift and ShiftCase alike are safe to select. A push from Push is live as
// soon as it is made; if it already went through when Select sees it, it
// wins. PushCase holds the push back until Select has registered on it.
//
// A closed, drained channel's Shift makes a non-blocking default case.
func Select(cases ...Case) *Selection {
	s := &Selection{
		fut:     newFuture[any](),
		stop:    make(chan struct{}),
		metrics: metricsOf(cases),
	}
	s.index.Store(-1)

	g := newSelectGroup(cases)
	if err := g.join(); err != nil {
		s.g = newSelectGroup(nil)
		s.settle(-1, nil, err)
		return s
	}
	s.g = g

	var early []int
	for i, c := range cases {
		// Cancelled cases take no part.
		if c.base().registerPreCommit(member{g: g, i: i}) == stateSettled {
			early = append(early, i)
		}
	}

	// Cases that went through before Select registered on them win in
	// argument order.
	for _, i := range early {
		if g.prepare(i) {
			g.confirm(i)
			break
		}
	}

	for _, c := range cases {
		c.base().ensureSubmitted()
	}

	go s.await()
	return s
}

// SelectOf is Select for a dynamically typed argument: a []Case or a []any
// holding only cases.
func SelectOf(arg any) *Selection {
	var cases []Case
	switch v := arg.(type) {
	case []Case:
		cases = v
	case []any:
		cases = make([]Case, len(v))
		for i, item := range v {
			c, ok := item.(Case)
			if !ok {
				return failedSelection(ErrSelectInvalidCase)
			}
			cases[i] = c
		}
	default:
		return failedSelection(ErrSelectNotSlice)
	}
	return Select(cases...)
}

func failedSelection(err error) *Selection {
	s := &Selection{
		g:       newSelectGroup(nil),
		fut:     newFuture[any](),
		stop:    make(chan struct{}),
		metrics: &core.NilMetrics{},
	}
	s.index.Store(-1)
	s.settle(-1, nil, err)
	return s
}

// join marks every case as a member of g. A nil case, or one that already
// belongs to another select, leaves all cases untouched.
func (g *selectGroup) join() error {
	var joined []*order
	undo := func() {
		for _, o := range joined {
			o.mu.Lock()
			o.group = nil
			o.mu.Unlock()
		}
	}

	for _, c := range g.cases {
		if c == nil || c.base() == nil {
			undo()
			return ErrSelectInvalidCase
		}
		o := c.base()
		o.mu.Lock()
		if o.group != nil {
			o.mu.Unlock()
			undo()
			return ErrSelectInvalidCase
		}
		o.group = g
		o.mu.Unlock()
		joined = append(joined, o)
	}
	return nil
}

func metricsOf(cases []Case) core.Metrics {
	for _, c := range cases {
		if c == nil || c.base() == nil {
			continue
		}
		if e, ok := c.Owner().(interface{ engineConfig() config }); ok {
			return e.engineConfig().metrics
		}
	}
	return &core.NilMetrics{}
}

func (s *Selection) await() {
	select {
	case <-s.g.claimed:
	case <-s.stop:
	}

	if !s.g.decided.Load() {
		s.settle(-1, nil, ErrCancelled)
		return
	}
	w := int(s.g.winner.Load())

	winner := s.g.cases[w]
	<-winner.Done()
	for j, c := range s.g.cases {
		if j != w {
			c.Cancel()
		}
	}

	if err := winner.failure(); err != nil {
		s.settle(w, nil, err)
		return
	}
	s.settle(w, winner.Owner(), nil)
}

func (s *Selection) settle(index int, owner any, err error) {
	s.index.Store(int32(index))
	if !s.fut.settle(owner, err) {
		return
	}
	switch {
	case err == nil:
		s.metrics.RecordSelect("won")
	case errors.Is(err, ErrCancelled) && index < 0:
		s.metrics.RecordSelect("cancelled")
	default:
		s.metrics.RecordSelect("error")
	}
}

// Wait blocks until the selection settles. If ctx ends first the selection
// is cancelled; a case that committed in the meantime still wins.
func (s *Selection) Wait(ctx context.Context) (any, error) {
	select {
	case <-s.fut.done:
	case <-ctx.Done():
		s.Cancel()
		<-s.fut.done
		if s.Index() < 0 && errors.Is(s.fut.err, ErrCancelled) {
			return nil, ctx.Err()
		}
	}
	return s.fut.val, s.fut.err
}

// Done is closed once the selection has settled.
func (s *Selection) Done() <-chan struct{} {
	return s.fut.Done()
}

// Index returns the position of the winning case, or -1 while there is
// none.
func (s *Selection) Index() int {
	return int(s.index.Load())
}

// Cancel cancels every case. Unless one of them already committed, the
// selection settles with ErrCancelled and Cancel returns true.
func (s *Selection) Cancel() bool {
	for _, c := range s.g.cases {
		c.Cancel()
	}
	s.stopOnce.Do(func() { close(s.stop) })
	return !s.g.decided.Load()
}
