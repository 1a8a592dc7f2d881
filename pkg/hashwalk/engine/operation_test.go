package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestOperation() *operation {
	ctx, cancel := context.WithCancel(context.Background())
	op := &operation{id: 1, root: "/tmp", ctx: ctx, cancel: cancel}
	op.state.Store(int32(stateRunning))
	op.pending.Store(1)
	return op
}

func TestOperation_RetireFinalizes(t *testing.T) {
	op := newTestOperation()
	assert.True(t, op.running())

	op.pending.Add(2)
	op.retire()
	op.retire()
	assert.True(t, op.running(), "still one unit outstanding")

	op.retire()
	assert.False(t, op.running())
	assert.Equal(t, stateCompleted, opState(op.state.Load()))
}

func TestOperation_FailedFlagSelectsTerminalState(t *testing.T) {
	op := newTestOperation()
	op.failed.Store(true)
	op.retire()
	assert.Equal(t, stateFailed, opState(op.state.Load()))
	assert.False(t, op.running())
}

func TestOperation_RequestStopIsIdempotent(t *testing.T) {
	op := newTestOperation()

	op.requestStop()
	assert.Equal(t, stateStopRequested, opState(op.state.Load()))
	assert.True(t, op.running(), "stop-requested still counts as running")
	assert.Error(t, op.ctx.Err())

	op.requestStop()
	assert.Equal(t, stateStopRequested, opState(op.state.Load()))

	op.retire()
	assert.Equal(t, stateCompleted, opState(op.state.Load()))

	// Stopping a finished operation must not revive it.
	op.requestStop()
	assert.Equal(t, stateCompleted, opState(op.state.Load()))
}
