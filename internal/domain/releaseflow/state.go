// Package releaseflow defines the state machines that drive release workflows.
package releaseflow

import "strings"

// State names a node of a release workflow.
type State string

// States shared by the patch and prep workflows.
const (
	StateInit                              State = "Init"
	StateFailed                            State = "Failed"
	StateCheckShouldRunChecks              State = "CheckShouldRunChecks"
	StateCheckValidReleaseGroup            State = "CheckValidReleaseGroup"
	StateCheckPolicy                       State = "CheckPolicy"
	StateCheckBranchName                   State = "CheckBranchName"
	StateCheckHasRemote                    State = "CheckHasRemote"
	StateCheckBranchUpToDate               State = "CheckBranchUpToDate"
	StateCheckNoPrereleaseDependencies     State = "CheckNoPrereleaseDependencies"
	StateDoBumpReleasedDependencies        State = "DoBumpReleasedDependencies"
	StateCheckNoMorePrereleaseDependencies State = "CheckNoMorePrereleaseDependencies"
	StateCheckNoPrereleaseDependencies2    State = "CheckNoPrereleaseDependencies2"
	StateCheckShouldCommitDeps             State = "CheckShouldCommitDeps"
	StateCheckShouldCommitBump             State = "CheckShouldCommitBump"
	StatePromptToPRDeps                    State = "PromptToPRDeps"
	StatePromptToCommitDeps                State = "PromptToCommitDeps"
	StatePromptToReleaseDeps               State = "PromptToReleaseDeps"
	StatePromptToPRBump                    State = "PromptToPRBump"
	StatePromptToCommitBump                State = "PromptToCommitBump"
)

// Patch workflow states.
const (
	StateCheckIfCurrentReleaseGroupIsReleased State = "CheckIfCurrentReleaseGroupIsReleased"
	StateDoReleaseGroupBumpPatch              State = "DoReleaseGroupBumpPatch"
	StatePromptToRelease                      State = "PromptToRelease"
)

// Prep workflow states.
const (
	StateCheckReleaseBranchDoesNotExist State = "CheckReleaseBranchDoesNotExist"
	StateCheckInstallBuildTools         State = "CheckInstallBuildTools"
	StateDoReleaseGroupBumpMinor        State = "DoReleaseGroupBumpMinor"
)

// String returns the state name.
func (s State) String() string {
	return string(s)
}

// IsPrompt returns true for states that hand control back to the user.
func (s State) IsPrompt() bool {
	return strings.HasPrefix(string(s), "PromptTo")
}

// Action is posted by a state handler to advance the machine.
type Action string

const (
	// ActionSuccess reports that a check passed or an operation completed.
	ActionSuccess Action = "success"
	// ActionFailure reports that a check failed or an operation did not complete.
	ActionFailure Action = "failure"
)

// String returns the action name.
func (a Action) String() string {
	return string(a)
}
