package core

import "time"

// ChannelStats is a point-in-time snapshot of a channel engine.
type ChannelStats struct {
	Name          string
	Capacity      int
	Closed        bool
	PendingPushes int // live pushes not yet matched or buffer-accepted
	Buffered      int // buffer-accepted pushes waiting for a shift
	PendingShifts int
	Transferred   int64
	Cancelled     int64
	Rejected      int64
	Passes        int64
	LastPassAt    time.Time
}

// LoopStats represents runtime observability state for a Loop.
type LoopStats struct {
	Name     string
	Pending  int
	Running  int
	Executed int64
	Panics   int64
	Rejected int64
	Closed   bool
}

// PoolStats represents runtime observability state for a worker pool.
type PoolStats struct {
	ID      string
	Workers int
	Queued  int
	Active  int
	Running bool
}
