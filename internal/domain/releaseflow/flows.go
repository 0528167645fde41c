package releaseflow

// Machine identifiers.
const (
	PatchReleaseID = "patch-release"
	PrepReleaseID  = "prep-release"
)

// FlowContext is the interpreter context of a release workflow.
type FlowContext struct {
	RunID string
}

// PatchRelease returns the patch release workflow: verify the branch and
// dependencies, confirm the current version shipped, then bump the patch.
func PatchRelease() *Definition {
	return newDefinition(PatchReleaseID, StateInit).
		step(StateInit, StateCheckShouldRunChecks).
		// Failure means checks are skipped.
		gate(StateCheckShouldRunChecks, StateCheckValidReleaseGroup, StateCheckNoPrereleaseDependencies).
		gate(StateCheckValidReleaseGroup, StateCheckPolicy, StateFailed).
		gate(StateCheckPolicy, StateCheckBranchName, StateFailed).
		gate(StateCheckBranchName, StateCheckHasRemote, StateFailed).
		gate(StateCheckHasRemote, StateCheckBranchUpToDate, StateFailed).
		gate(StateCheckBranchUpToDate, StateCheckNoPrereleaseDependencies, StateFailed).
		gate(StateCheckNoPrereleaseDependencies, StateCheckIfCurrentReleaseGroupIsReleased, StateDoBumpReleasedDependencies).
		gate(StateDoBumpReleasedDependencies, StateCheckNoMorePrereleaseDependencies, StatePromptToReleaseDeps).
		gate(StateCheckNoMorePrereleaseDependencies, StateCheckShouldCommitDeps, StateCheckNoPrereleaseDependencies2).
		// Retry with whatever was released since.
		gate(StateCheckNoPrereleaseDependencies2, StateCheckShouldCommitDeps, StateDoBumpReleasedDependencies).
		gate(StateCheckShouldCommitDeps, StatePromptToPRDeps, StatePromptToCommitDeps).
		gate(StateCheckIfCurrentReleaseGroupIsReleased, StateDoReleaseGroupBumpPatch, StatePromptToRelease).
		gate(StateDoReleaseGroupBumpPatch, StateCheckShouldCommitBump, StateFailed).
		gate(StateCheckShouldCommitBump, StatePromptToPRBump, StatePromptToCommitBump).
		terminal(
			StateFailed,
			StatePromptToReleaseDeps,
			StatePromptToPRDeps,
			StatePromptToCommitDeps,
			StatePromptToRelease,
			StatePromptToPRBump,
			StatePromptToCommitBump,
		).
		build()
}

// PrepRelease returns the major/minor prep workflow: verify the branch and
// dependencies, make sure the release branch is new, then bump the minor.
func PrepRelease() *Definition {
	return newDefinition(PrepReleaseID, StateInit).
		step(StateInit, StateCheckShouldRunChecks).
		// Failure means checks are skipped.
		gate(StateCheckShouldRunChecks, StateCheckValidReleaseGroup, StateCheckNoPrereleaseDependencies).
		gate(StateCheckValidReleaseGroup, StateCheckPolicy, StateFailed).
		gate(StateCheckPolicy, StateCheckBranchName, StateFailed).
		gate(StateCheckBranchName, StateCheckHasRemote, StateFailed).
		gate(StateCheckHasRemote, StateCheckBranchUpToDate, StateFailed).
		gate(StateCheckBranchUpToDate, StateCheckNoPrereleaseDependencies, StateFailed).
		gate(StateCheckNoPrereleaseDependencies, StateCheckReleaseBranchDoesNotExist, StateDoBumpReleasedDependencies).
		gate(StateDoBumpReleasedDependencies, StateCheckNoMorePrereleaseDependencies, StatePromptToReleaseDeps).
		gate(StateCheckNoMorePrereleaseDependencies, StateCheckShouldCommitDeps, StateCheckNoPrereleaseDependencies2).
		gate(StateCheckNoPrereleaseDependencies2, StateCheckShouldCommitDeps, StateDoBumpReleasedDependencies).
		gate(StateCheckShouldCommitDeps, StatePromptToPRDeps, StatePromptToCommitDeps).
		gate(StateCheckReleaseBranchDoesNotExist, StateCheckInstallBuildTools, StateFailed).
		gate(StateCheckInstallBuildTools, StateDoReleaseGroupBumpMinor, StateFailed).
		gate(StateDoReleaseGroupBumpMinor, StateCheckShouldCommitBump, StateFailed).
		gate(StateCheckShouldCommitBump, StatePromptToPRBump, StatePromptToCommitBump).
		terminal(
			StateFailed,
			StatePromptToReleaseDeps,
			StatePromptToPRDeps,
			StatePromptToCommitDeps,
			StatePromptToPRBump,
			StatePromptToCommitBump,
		).
		build()
}
