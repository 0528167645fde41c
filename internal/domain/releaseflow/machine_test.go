package releaseflow

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func definitions() []*Definition {
	return []*Definition{PatchRelease(), PrepRelease()}
}

// pathTo returns the actions that drive a fresh machine from Init to target.
func pathTo(t *testing.T, d *Definition, target State) []Action {
	t.Helper()
	type step struct {
		prev   State
		action Action
	}
	parent := map[State]step{}
	seen := map[State]bool{d.Initial(): true}
	queue := []State{d.Initial()}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, a := range []Action{ActionSuccess, ActionFailure} {
			to, ok := d.Next(s, a)
			if !ok || seen[to] {
				continue
			}
			seen[to] = true
			parent[to] = step{prev: s, action: a}
			queue = append(queue, to)
		}
	}
	require.True(t, seen[target], "%s unreachable", target)

	var actions []Action
	for s := target; s != d.Initial(); s = parent[s].prev {
		actions = append([]Action{parent[s].action}, actions...)
	}
	return actions
}

func TestDefinitions_Validate(t *testing.T) {
	for _, d := range definitions() {
		t.Run(d.ID(), func(t *testing.T) {
			require.NoError(t, d.Validate())
			assert.Equal(t, StateInit, d.Initial())
			assert.True(t, d.IsFinal(StateFailed))
			assert.ElementsMatch(t, d.States(), d.Reachable())
		})
	}
}

func TestDefinition_ValidateRejectsBrokenGraphs(t *testing.T) {
	orphan := newDefinition("orphan", StateInit).
		step(StateInit, StateCheckPolicy).
		gate(StateCheckPolicy, StateCheckBranchName, StateFailed).
		terminal(StateFailed).
		build()
	err := orphan.Validate()
	require.ErrorIs(t, err, ErrInvalidDefinition)
	assert.Contains(t, err.Error(), "CheckBranchName targets an undeclared state")

	loop := newDefinition("loop", StateInit).
		step(StateInit, StateCheckPolicy).
		step(StateCheckPolicy, StateInit).
		terminal(StateFailed).
		build()
	err = loop.Validate()
	require.ErrorIs(t, err, ErrInvalidDefinition)
	assert.Contains(t, err.Error(), "cannot reach a final state")
	assert.Contains(t, err.Error(), "Failed is unreachable")

	_, err = NewMachine(orphan)
	require.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestMachine_CustomDefinition(t *testing.T) {
	d := newDefinition("single-check", StateInit).
		step(StateInit, StateCheckPolicy).
		gate(StateCheckPolicy, StatePromptToRelease, StateFailed).
		terminal(StateFailed, StatePromptToRelease).
		build()

	m, err := NewMachine(d)
	require.NoError(t, err)
	_, err = m.Post(ActionSuccess)
	require.NoError(t, err)
	_, err = m.Post(ActionFailure)
	require.NoError(t, err)
	assert.True(t, m.Done())
	assert.True(t, m.Failed())
	assert.Equal(t, []Transition{
		{From: StateInit, Action: ActionSuccess, To: StateCheckPolicy},
		{From: StateCheckPolicy, Action: ActionFailure, To: StateFailed},
	}, m.History())
}

func TestMachine_FollowsDefinition(t *testing.T) {
	for _, d := range definitions() {
		for _, tr := range d.Transitions() {
			t.Run(d.ID()+"/"+tr.From.String()+"/"+tr.Action.String(), func(t *testing.T) {
				m, err := NewMachine(d)
				require.NoError(t, err)

				for _, a := range pathTo(t, d, tr.From) {
					_, err := m.Post(a)
					require.NoError(t, err)
				}
				require.Equal(t, tr.From, m.Current())

				got, err := m.Post(tr.Action)
				require.NoError(t, err)
				assert.Equal(t, tr, got)
				assert.Equal(t, tr.To, m.Current())
				assert.Equal(t, d.IsFinal(tr.To), m.Done())
			})
		}
	}
}

func TestMachine_NoTransition(t *testing.T) {
	m, err := NewMachine(PatchRelease())
	require.NoError(t, err)

	_, err = m.Post(ActionFailure)
	require.ErrorIs(t, err, ErrNoTransition)
	assert.Contains(t, err.Error(), "failure on Init")
	assert.Equal(t, StateInit, m.Current())
	assert.Empty(t, m.History())
}

func TestMachine_SkipChecksReachesDependencyAudit(t *testing.T) {
	m, err := NewMachine(PatchRelease())
	require.NoError(t, err)

	for _, a := range []Action{ActionSuccess, ActionFailure} {
		_, err := m.Post(a)
		require.NoError(t, err)
	}
	assert.Equal(t, StateCheckNoPrereleaseDependencies, m.Current())
	assert.Len(t, m.History(), 2)
}

func TestMachine_DependencyRetryLoop(t *testing.T) {
	m, err := NewMachine(PrepRelease())
	require.NoError(t, err)

	steps := []struct {
		action Action
		want   State
	}{
		{ActionSuccess, StateCheckShouldRunChecks},
		{ActionFailure, StateCheckNoPrereleaseDependencies},
		{ActionFailure, StateDoBumpReleasedDependencies},
		{ActionSuccess, StateCheckNoMorePrereleaseDependencies},
		{ActionFailure, StateCheckNoPrereleaseDependencies2},
		{ActionFailure, StateDoBumpReleasedDependencies},
		{ActionFailure, StatePromptToReleaseDeps},
	}
	for _, s := range steps {
		_, err := m.Post(s.action)
		require.NoError(t, err)
		require.Equal(t, s.want, m.Current())
	}
	assert.True(t, m.Done())
	assert.False(t, m.Failed())
}

func TestState_Classification(t *testing.T) {
	assert.True(t, StatePromptToPRBump.IsPrompt())
	assert.False(t, StateCheckPolicy.IsPrompt())
}

func TestDefinition_ExportXStateJSON(t *testing.T) {
	data, err := PatchRelease().ExportXStateJSON()
	require.NoError(t, err)

	var xs XStateJSON
	require.NoError(t, json.Unmarshal(data, &xs))
	assert.Equal(t, PatchReleaseID, xs.ID)
	assert.Equal(t, "Init", xs.Initial)
	assert.Equal(t, "final", xs.States["Failed"].Type)
	assert.Equal(t, "CheckNoPrereleaseDependencies", xs.States["CheckShouldRunChecks"].On["failure"].Target)
	assert.Len(t, xs.States, len(PatchRelease().States()))
}

func TestDefinition_ExportDOT(t *testing.T) {
	dot := PrepRelease().ExportDOT()
	assert.True(t, strings.HasPrefix(dot, `digraph "prep-release" {`))
	assert.Contains(t, dot, `"CheckInstallBuildTools" -> "DoReleaseGroupBumpMinor" [label="success", style=solid];`)
	assert.Contains(t, dot, `"CheckInstallBuildTools" -> "Failed" [label="failure", style=dashed];`)
	assert.Contains(t, dot, `"PromptToPRBump" [shape=box];`)
}
