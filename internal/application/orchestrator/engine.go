package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/relicta-tech/relmono/internal/domain/releaseflow"
)

type entry struct {
	layer  string
	handle Handler
}

// Engine drives a release workflow definition to completion.
type Engine struct {
	def     *releaseflow.Definition
	table   map[releaseflow.State]entry
	logger  Logger
	tracer  Tracer
	partial bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithTracer sets the transition observer.
func WithTracer(t Tracer) EngineOption {
	return func(e *Engine) { e.tracer = t }
}

// WithPartialDispatch skips the construction-time coverage check, leaving
// unclaimed states to fail when the run reaches them.
func WithPartialDispatch() EngineOption {
	return func(e *Engine) { e.partial = true }
}

// NewEngine builds the dispatch table from the union of the layers.
// A state claimed by two layers returns ErrDuplicateHandler. A reachable
// state other than Failed that no layer claims returns an *UnhandledStateError.
func NewEngine(def *releaseflow.Definition, layers []Layer, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		def:    def,
		table:  make(map[releaseflow.State]entry),
		logger: NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, layer := range layers {
		for state, h := range layer.Handlers {
			if prev, ok := e.table[state]; ok {
				return nil, fmt.Errorf("%w: %s is claimed by %q and %q", ErrDuplicateHandler, state, prev.layer, layer.Name)
			}
			e.table[state] = entry{layer: layer.Name, handle: h}
		}
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}

	if !e.partial {
		for _, state := range def.Reachable() {
			if state == releaseflow.StateFailed {
				continue
			}
			if _, ok := e.table[state]; !ok {
				return nil, &UnhandledStateError{Machine: def.ID(), State: state}
			}
		}
	}

	return e, nil
}

// Claims returns the layer that handles each state, sorted by state name.
func (e *Engine) Claims() []string {
	out := make([]string, 0, len(e.table))
	for state, en := range e.table {
		out = append(out, fmt.Sprintf("%s=%s", state, en.layer))
	}
	sort.Strings(out)
	return out
}

// RunResult describes how a run ended.
type RunResult struct {
	RunID string
	// Final is the state the run stopped in.
	Final releaseflow.State
	// Exited is true when a handler handed control back to the user.
	Exited  bool
	Message string
	History []releaseflow.Transition
}

// Failed returns true if the run ended in the Failed state.
func (r *RunResult) Failed() bool {
	return r.Final == releaseflow.StateFailed
}

// ExitCode returns the process exit code for the result.
func (r *RunResult) ExitCode() int {
	if r.Failed() {
		return 1
	}
	return 0
}

// Run executes one pass of the workflow. States are handled strictly one at
// a time; each handler's action is consumed before the next state is read.
func (e *Engine) Run(ctx context.Context, s *Session) (*RunResult, error) {
	machine, err := releaseflow.NewMachine(e.def)
	if err != nil {
		return nil, err
	}

	result := &RunResult{RunID: uuid.NewString()}
	logger := e.logger
	logger.Debug("starting workflow", "machine", e.def.ID(), "run_id", result.RunID, "unit", s.Unit())

	for {
		if err := ctx.Err(); err != nil {
			return e.finish(result, machine), err
		}

		state := machine.Current()
		en, ok := e.table[state]
		if !ok {
			if machine.Done() {
				return e.finish(result, machine), nil
			}
			return e.finish(result, machine), &UnhandledStateError{Machine: e.def.ID(), State: state}
		}

		logger.Debug("handling state", "state", state, "layer", en.layer)
		out, err := en.handle(ctx, s)
		if err != nil {
			return e.finish(result, machine), fmt.Errorf("%s: %w", state, err)
		}

		if out.IsExit() {
			result.Exited = true
			result.Message = out.Message()
			return e.finish(result, machine), nil
		}

		t, err := machine.Post(out.Action())
		if err != nil {
			return e.finish(result, machine), err
		}
		if e.tracer != nil {
			e.tracer(result.RunID, t)
		}
	}
}

func (e *Engine) finish(result *RunResult, m *releaseflow.Machine) *RunResult {
	result.Final = m.Current()
	result.History = m.History()
	return result
}

// Path renders the states visited by a run.
func (r *RunResult) Path() string {
	if len(r.History) == 0 {
		return string(r.Final)
	}
	parts := make([]string, 0, len(r.History)+1)
	parts = append(parts, string(r.History[0].From))
	for _, t := range r.History {
		parts = append(parts, string(t.To))
	}
	return strings.Join(parts, " -> ")
}
