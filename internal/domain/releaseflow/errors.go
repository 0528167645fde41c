package releaseflow

import "errors"

var (
	// ErrNoTransition indicates an action that the current state does not accept.
	ErrNoTransition = errors.New("no transition defined")

	// ErrMachineDrift indicates the interpreter landed somewhere the definition does not predict.
	ErrMachineDrift = errors.New("state machine diverged from its definition")

	// ErrInvalidDefinition indicates a structurally broken definition.
	ErrInvalidDefinition = errors.New("invalid state machine definition")
)
