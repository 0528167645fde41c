package releaseflow

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Machine is a running instance of a Definition. It is mutated only by
// posting actions and lives for a single command invocation.
type Machine struct {
	def         *Definition
	interpreter *statekit.Interpreter[FlowContext]
	history     []Transition
}

// NewMachine validates a definition, builds its interpreter and starts it
// in the initial state.
func NewMachine(def *Definition) (*Machine, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	interp, err := def.newInterpreter()
	if err != nil {
		return nil, err
	}
	interp.Start()

	m := &Machine{def: def, interpreter: interp}
	if got := m.Current(); got != def.initial {
		return nil, fmt.Errorf("%w: started in %s, want %s", ErrMachineDrift, got, def.initial)
	}
	return m, nil
}

// Definition returns the graph the machine runs.
func (m *Machine) Definition() *Definition {
	return m.def
}

// Current returns the current state.
func (m *Machine) Current() State {
	return State(m.interpreter.State().Value)
}

// Post applies an action to the current state. Undefined combinations
// return ErrNoTransition and leave the machine unchanged.
func (m *Machine) Post(action Action) (Transition, error) {
	from := m.Current()
	to, ok := m.def.Next(from, action)
	if !ok {
		return Transition{}, fmt.Errorf("%w: %s on %s", ErrNoTransition, action, from)
	}

	m.interpreter.Send(statekit.Event{Type: statekit.EventType(action)})

	if got := m.Current(); got != to {
		return Transition{}, fmt.Errorf("%w: %s on %s went to %s, want %s", ErrMachineDrift, action, from, got, to)
	}

	t := Transition{From: from, Action: action, To: to}
	m.history = append(m.history, t)
	return t, nil
}

// Done returns true once the machine is in a final state.
func (m *Machine) Done() bool {
	return m.interpreter.Done()
}

// Failed returns true if the machine is in the Failed state.
func (m *Machine) Failed() bool {
	return m.Current() == StateFailed
}

// History returns the transitions taken so far.
func (m *Machine) History() []Transition {
	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}
