package channel

import "errors"

// Protocol errors. The texts are part of the public contract; compare with
// errors.Is.
var (
	ErrAlreadyClosed      = errors.New("Can't close an already-closed channel.")
	ErrPushToClosed       = errors.New("Can't push to closed channel.")
	ErrPushEndOfStream    = errors.New("Can't push 'undefined' to channel, use close instead.")
	ErrPushMultipleValues = errors.New("Can't push more than one value at a time.")
	ErrReduceEmpty        = errors.New("No values in channel and initialValue wasn't provided.")
	ErrSelectInvalidCase  = errors.New("select accepts only promises returned by push & shift.")
	ErrSelectNotSlice     = errors.New("select: Argument must be an array.")
)

// ErrCancelled settles an order, or a selection, that was cancelled before
// it committed.
var ErrCancelled = errors.New("channel: order cancelled")
