package releaseflow

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Transition is one labeled edge of a definition.
type Transition struct {
	From   State
	Action Action
	To     State
}

// Definition is the declarative graph of a release workflow.
type Definition struct {
	id          string
	initial     State
	states      []State
	final       map[State]bool
	transitions map[State]map[Action]State
}

// definitionBuilder assembles a Definition in declaration order.
type definitionBuilder struct {
	def *Definition
}

func newDefinition(id string, initial State) *definitionBuilder {
	return &definitionBuilder{def: &Definition{
		id:          id,
		initial:     initial,
		final:       make(map[State]bool),
		transitions: make(map[State]map[Action]State),
	}}
}

func (b *definitionBuilder) declare(s State) {
	if _, ok := b.def.transitions[s]; ok {
		return
	}
	b.def.states = append(b.def.states, s)
	b.def.transitions[s] = make(map[Action]State)
}

// gate declares a state with success and failure targets.
func (b *definitionBuilder) gate(s State, success, failure State) *definitionBuilder {
	b.declare(s)
	b.def.transitions[s][ActionSuccess] = success
	b.def.transitions[s][ActionFailure] = failure
	return b
}

// step declares a state that only accepts success.
func (b *definitionBuilder) step(s State, success State) *definitionBuilder {
	b.declare(s)
	b.def.transitions[s][ActionSuccess] = success
	return b
}

// terminal declares states with no outgoing transitions.
func (b *definitionBuilder) terminal(states ...State) *definitionBuilder {
	for _, s := range states {
		b.declare(s)
		b.def.final[s] = true
	}
	return b
}

func (b *definitionBuilder) build() *Definition {
	return b.def
}

// ID returns the machine identifier.
func (d *Definition) ID() string {
	return d.id
}

// Initial returns the initial state.
func (d *Definition) Initial() State {
	return d.initial
}

// States returns every declared state in declaration order.
func (d *Definition) States() []State {
	out := make([]State, len(d.states))
	copy(out, d.states)
	return out
}

// HasState returns true if the state is declared.
func (d *Definition) HasState(s State) bool {
	_, ok := d.transitions[s]
	return ok
}

// IsFinal returns true if the state has no outgoing transitions.
func (d *Definition) IsFinal(s State) bool {
	return d.final[s]
}

// Next returns the state reached by posting action in from.
func (d *Definition) Next(from State, action Action) (State, bool) {
	to, ok := d.transitions[from][action]
	return to, ok
}

// Transitions returns every edge, ordered by source declaration then success before failure.
func (d *Definition) Transitions() []Transition {
	var out []Transition
	for _, s := range d.states {
		for _, a := range []Action{ActionSuccess, ActionFailure} {
			if to, ok := d.transitions[s][a]; ok {
				out = append(out, Transition{From: s, Action: a, To: to})
			}
		}
	}
	return out
}

// Reachable returns the states reachable from the initial state in breadth-first order.
func (d *Definition) Reachable() []State {
	return d.reachableFrom(d.initial)
}

func (d *Definition) reachableFrom(start State) []State {
	seen := map[State]bool{start: true}
	queue := []State{start}
	var out []State
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		out = append(out, s)
		for _, a := range []Action{ActionSuccess, ActionFailure} {
			if to, ok := d.transitions[s][a]; ok && !seen[to] {
				seen[to] = true
				queue = append(queue, to)
			}
		}
	}
	return out
}

// Validate checks that every transition targets a declared state, every
// state is reachable, and every reachable state can still reach a final state.
func (d *Definition) Validate() error {
	var errs []error

	if !d.HasState(d.initial) {
		errs = append(errs, fmt.Errorf("initial state %s is not declared", d.initial))
	}
	if !d.final[StateFailed] {
		errs = append(errs, fmt.Errorf("%s is not a final state", StateFailed))
	}

	for _, t := range d.Transitions() {
		if !d.HasState(t.To) {
			errs = append(errs, fmt.Errorf("%s --%s--> %s targets an undeclared state", t.From, t.Action, t.To))
		}
	}

	reachable := make(map[State]bool)
	for _, s := range d.Reachable() {
		reachable[s] = true
	}
	for _, s := range d.states {
		if !reachable[s] {
			errs = append(errs, fmt.Errorf("state %s is unreachable", s))
			continue
		}
		if d.final[s] {
			continue
		}
		if len(d.transitions[s]) == 0 {
			errs = append(errs, fmt.Errorf("state %s is not final but has no transitions", s))
			continue
		}
		if !d.reachesFinal(s) {
			errs = append(errs, fmt.Errorf("state %s cannot reach a final state", s))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s: %w", ErrInvalidDefinition, d.id, errors.Join(errs...))
	}
	return nil
}

// newInterpreter compiles the definition into a statekit machine with one
// event per action.
func (d *Definition) newInterpreter() (*statekit.Interpreter[FlowContext], error) {
	mb := statekit.NewMachine[FlowContext](d.id).WithInitial(statekit.StateID(d.initial))
	states := make(map[State]*statekit.StateBuilder[FlowContext], len(d.states))
	for _, s := range d.states {
		states[s] = mb.State(statekit.StateID(s))
		if d.final[s] {
			states[s].Final()
		}
	}
	for _, t := range d.Transitions() {
		states[t.From].On(statekit.EventType(t.Action)).Target(statekit.StateID(t.To))
	}

	machine, err := mb.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s state machine: %w", d.id, err)
	}
	return statekit.NewInterpreter(machine), nil
}

func (d *Definition) reachesFinal(s State) bool {
	for _, r := range d.reachableFrom(s) {
		if d.final[r] {
			return true
		}
	}
	return false
}
