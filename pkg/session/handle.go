package session

import (
	"context"
	"sync/atomic"
)

// HandleState is the state of a cancellation handle.
type HandleState int32

const (
	HandleActive HandleState = iota
	HandleCancelRequested
	HandleCompleted
)

// String returns the state name.
func (s HandleState) String() string {
	switch s {
	case HandleActive:
		return "active"
	case HandleCancelRequested:
		return "cancel_requested"
	case HandleCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Handle is the per-session cancellation handle. It is owned by the
// generation loop that created it; the registry only signals it.
//
// Transitions: Active → CancelRequested (Cancel), Active → Completed
// (finish), CancelRequested → Completed (release). Completed is final.
type Handle struct {
	ctx    context.Context
	cancel context.CancelFunc
	state  atomic.Int32
}

// NewHandle returns an active handle whose context is derived from parent.
// Cancelling parent stops the session without moving the handle to
// CancelRequested, which is how peer disconnects are told apart from
// explicit cancellation.
func NewHandle(parent context.Context) *Handle {
	ctx, cancel := context.WithCancel(parent)
	return &Handle{ctx: ctx, cancel: cancel}
}

// Context returns the context the generation loop observes.
func (h *Handle) Context() context.Context {
	return h.ctx
}

// State returns the current state.
func (h *Handle) State() HandleState {
	return HandleState(h.state.Load())
}

// Cancel moves an active handle to CancelRequested and cancels its context.
// It returns false if the handle was already cancelled or completed.
func (h *Handle) Cancel() bool {
	if !h.state.CompareAndSwap(int32(HandleActive), int32(HandleCancelRequested)) {
		return false
	}
	h.cancel()
	return true
}

// CancelRequested reports whether Cancel succeeded at some point.
func (h *Handle) CancelRequested() bool {
	return h.State() == HandleCancelRequested
}

// finish moves an active handle straight to Completed. It returns false if
// a cancel won the race, in which case the session must end as cancelled.
func (h *Handle) finish() bool {
	return h.state.CompareAndSwap(int32(HandleActive), int32(HandleCompleted))
}

// release marks the handle Completed and frees its context.
func (h *Handle) release() {
	h.state.Store(int32(HandleCompleted))
	h.cancel()
}
