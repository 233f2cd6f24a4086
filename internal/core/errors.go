// ABOUTME: Error values and the turn-level error type of the orchestrator
// ABOUTME: Only stream-fatal failures surface from a turn
package core

import (
	"errors"
	"fmt"
)

var (
	// ErrTurnInProgress is returned when Submit is called while a turn is running
	ErrTurnInProgress = errors.New("a turn is already in progress")
	// ErrNoProject is returned when no project is selected
	ErrNoProject = errors.New("no project selected")
	// ErrTurnAbandoned is returned when the selection changed while a turn was running
	ErrTurnAbandoned = errors.New("turn abandoned")
	// ErrStreamIdle is returned when the model stream produced nothing for too long
	ErrStreamIdle = errors.New("model stream idle timeout")
	// ErrStreamClosed is returned when the model stream ended without a done event
	ErrStreamClosed = errors.New("model stream closed before done")
	// ErrNotStreaming is returned by StreamBuffer.Finalize outside a stream
	ErrNotStreaming = errors.New("buffer is not streaming")
)

// TurnError is a stream-fatal failure. The user message stays persisted and
// no assistant message is created.
type TurnError struct {
	Phase State
	Err   error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn failed during %s: %v", e.Phase, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}
