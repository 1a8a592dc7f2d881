package engine

import (
	"context"
	"sync/atomic"
)

// OperationID identifies one HashDirectory invocation. Identifiers are
// supplied by the caller; the engine accepts any value and does not
// guarantee uniqueness beyond rejecting collisions with live operations.
type OperationID uint64

// opState tracks an operation through its lifecycle.
type opState int32

const (
	stateRunning opState = iota
	stateStopRequested
	stateCompleted
	stateFailed
)

// operation is one in-flight or finished directory hash. It stays in the
// operation table after finishing so a later status poll reports
// running=false instead of unknown-identifier; the table entry (and with it
// the cancellation context workers read) is only released at Terminate.
type operation struct {
	id    OperationID
	root  string
	token string // run token for diagnostic log correlation

	state  atomic.Int32
	failed atomic.Bool

	// pending counts the walk plus every dispatched hash task still
	// outstanding. The unit that drops it to zero finalizes the state.
	pending atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

// running reports whether the operation still has work in flight.
func (o *operation) running() bool {
	s := opState(o.state.Load())
	return s == stateRunning || s == stateStopRequested
}

// requestStop flips Running to StopRequested and cancels the operation
// context. Idempotent; a no-op on finished operations.
func (o *operation) requestStop() {
	o.state.CompareAndSwap(int32(stateRunning), int32(stateStopRequested))
	o.cancel()
}

// retire drops one pending unit of work. The last unit out moves the
// operation to its terminal state.
func (o *operation) retire() {
	if o.pending.Add(-1) != 0 {
		return
	}

	terminal := stateCompleted
	if o.failed.Load() {
		terminal = stateFailed
	}

	for {
		current := o.state.Load()
		if opState(current) == stateCompleted || opState(current) == stateFailed {
			return
		}
		if o.state.CompareAndSwap(current, int32(terminal)) {
			o.cancel() // release the context's resources
			return
		}
	}
}
