package releaseflow

import (
	"encoding/json"
	"fmt"
	"strings"
)

// XStateJSON represents the XState JSON format for visualization.
type XStateJSON struct {
	ID      string                     `json:"id"`
	Initial string                     `json:"initial"`
	States  map[string]XStateStateJSON `json:"states"`
}

// XStateStateJSON represents a state in XState JSON format.
type XStateStateJSON struct {
	Type string                      `json:"type,omitempty"` // "final" for terminal states
	On   map[string]XStateTransition `json:"on,omitempty"`
}

// XStateTransition represents a transition in XState JSON format.
type XStateTransition struct {
	Target string `json:"target"`
}

// ExportXStateJSON exports the definition as XState-compatible JSON.
func (d *Definition) ExportXStateJSON() ([]byte, error) {
	xstate := XStateJSON{
		ID:      d.id,
		Initial: string(d.initial),
		States:  make(map[string]XStateStateJSON, len(d.states)),
	}

	for _, s := range d.states {
		if d.final[s] {
			xstate.States[string(s)] = XStateStateJSON{Type: "final"}
			continue
		}
		on := make(map[string]XStateTransition, len(d.transitions[s]))
		for action, to := range d.transitions[s] {
			on[string(action)] = XStateTransition{Target: string(to)}
		}
		xstate.States[string(s)] = XStateStateJSON{On: on}
	}

	return json.MarshalIndent(xstate, "", "  ")
}

// ExportDOT renders the definition as a Graphviz digraph. Failure edges are
// dashed, prompt states are boxes and Failed is drawn in red.
func (d *Definition) ExportDOT() string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", d.id)
	b.WriteString("  rankdir=TB;\n")
	fmt.Fprintf(&b, "  %q [shape=doublecircle];\n", d.initial)

	for _, s := range d.states {
		switch {
		case s == StateFailed:
			fmt.Fprintf(&b, "  %q [shape=octagon, color=red];\n", s)
		case s.IsPrompt():
			fmt.Fprintf(&b, "  %q [shape=box];\n", s)
		}
	}

	for _, t := range d.Transitions() {
		style := "solid"
		if t.Action == ActionFailure {
			style = "dashed"
		}
		fmt.Fprintf(&b, "  %q -> %q [label=%q, style=%s];\n", t.From, t.To, t.Action, style)
	}

	b.WriteString("}\n")
	return b.String()
}
