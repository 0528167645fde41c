package orchestrator

import (
	"errors"
	"fmt"

	"github.com/relicta-tech/relmono/internal/domain/releaseflow"
)

var (
	// ErrUnhandledState indicates a state that no handler layer claims.
	ErrUnhandledState = errors.New("unhandled state")

	// ErrDuplicateHandler indicates two layers claiming the same state.
	ErrDuplicateHandler = errors.New("state claimed by more than one handler layer")
)

// UnhandledStateError carries the name of the state nobody handles.
type UnhandledStateError struct {
	Machine string
	State   releaseflow.State
}

func (e *UnhandledStateError) Error() string {
	return fmt.Sprintf("%s: %s in %s", ErrUnhandledState, e.State, e.Machine)
}

// Unwrap returns ErrUnhandledState.
func (e *UnhandledStateError) Unwrap() error {
	return ErrUnhandledState
}
