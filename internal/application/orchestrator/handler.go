package orchestrator

import (
	"context"

	"github.com/relicta-tech/relmono/internal/domain/releaseflow"
)

// Outcome is what a handler asks the engine to do next: post an action or
// stop and hand control back to the user.
type Outcome struct {
	action  releaseflow.Action
	exit    bool
	message string
}

// Success posts the success action.
func Success() Outcome { return Outcome{action: releaseflow.ActionSuccess} }

// Failure posts the failure action.
func Failure() Outcome { return Outcome{action: releaseflow.ActionFailure} }

// Exit stops the run with instructions for the user.
func Exit(message string) Outcome { return Outcome{exit: true, message: message} }

// Verdict returns Success when ok is true and Failure otherwise.
func Verdict(ok bool) Outcome {
	if ok {
		return Success()
	}
	return Failure()
}

// Action returns the action to post. It is empty for exits.
func (o Outcome) Action() releaseflow.Action { return o.action }

// IsExit returns true for exits.
func (o Outcome) IsExit() bool { return o.exit }

// Message returns the exit message.
func (o Outcome) Message() string { return o.message }

// Handler performs the work of one state.
type Handler func(ctx context.Context, s *Session) (Outcome, error)

// Layer is a named set of state handlers.
type Layer struct {
	Name     string
	Handlers map[releaseflow.State]Handler
}
