package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/relmono/internal/application/orchestrator"
	"github.com/relicta-tech/relmono/internal/domain/monorepo"
	"github.com/relicta-tech/relmono/internal/domain/releaseflow"
	"github.com/relicta-tech/relmono/internal/domain/version"
	rperrors "github.com/relicta-tech/relmono/internal/errors"
)

// ExitError ends the process with Code. Message, when set, has already been
// explained to the user and is printed as the final error line.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Message
}

// unitFlags selects the release unit of a command.
type unitFlags struct {
	releaseGroup string
	pkg          string
}

func (f *unitFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.releaseGroup, "releaseGroup", "g", "", "release group to operate on")
	cmd.Flags().StringVarP(&f.pkg, "package", "p", "", "independently versioned package to operate on")
	cmd.MarkFlagsMutuallyExclusive("releaseGroup", "package")
}

func (f *unitFlags) unit() (monorepo.ReleaseUnit, error) {
	unit, err := monorepo.NewReleaseUnit(f.releaseGroup, f.pkg)
	if err != nil {
		return monorepo.ReleaseUnit{}, rperrors.ConfigWrap(err, "cli.unit", "--releaseGroup or --package")
	}
	return unit, nil
}

// workflowFlags holds the flags shared by the release and prep commands.
type workflowFlags struct {
	unitFlags
	bumpType      string
	versionScheme string
	skipChecks    bool
	policyCheck   bool
	branchCheck   bool
	commit        bool
	updateCheck   bool
	installCheck  bool
}

func (f *workflowFlags) register(cmd *cobra.Command, bumpHelp string) {
	f.unitFlags.register(cmd)
	cmd.Flags().StringVarP(&f.bumpType, "bumpType", "t", "", bumpHelp)
	cmd.Flags().StringVarP(&f.versionScheme, "versionScheme", "S", "", "version scheme override (semver, internal, virtualPatch)")
	cmd.Flags().BoolVar(&f.skipChecks, "skipChecks", false, "skip every check, including commits")
	cmd.Flags().BoolVar(&f.policyCheck, "policyCheck", true, "run the policy check")
	cmd.Flags().BoolVar(&f.branchCheck, "branchCheck", true, "check the branch name, upstream remote and freshness")
	cmd.Flags().BoolVar(&f.commit, "commit", true, "commit changes to a new branch")
	cmd.Flags().BoolVar(&f.updateCheck, "updateCheck", true, "resolve released dependencies through the npm registry")
	cmd.Flags().BoolVar(&f.installCheck, "installCheck", true, "install build tools before bumping")
}

// config resolves the flags into a workflow configuration. Invalid values
// fail here, before any state runs.
func (f *workflowFlags) config() (orchestrator.Config, error) {
	const op = "cli.workflowConfig"

	unit, err := f.unit()
	if err != nil {
		return orchestrator.Config{}, err
	}

	wcfg := orchestrator.Config{
		Unit:          unit,
		SkipChecks:    f.skipChecks,
		PolicyCheck:   f.policyCheck,
		BranchCheck:   f.branchCheck,
		Commit:        f.commit,
		UpdateCheck:   f.updateCheck,
		InstallCheck:  f.installCheck,
		Upstream:      cfg.Repository.Upstream,
		DefaultBranch: cfg.Repository.DefaultBranch,
	}

	if f.bumpType != "" {
		if wcfg.BumpType, err = version.ParseBumpType(f.bumpType); err != nil {
			return orchestrator.Config{}, rperrors.ConfigWrap(err, op, "--bumpType")
		}
	}
	if f.versionScheme != "" {
		if wcfg.Scheme, err = version.ParseScheme(f.versionScheme); err != nil {
			return orchestrator.Config{}, rperrors.ConfigWrap(err, op, "--versionScheme")
		}
	}
	return wcfg, nil
}

var releaseFlags workflowFlags

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Release a patch of a release group or package",
	Long: `Release a patch from the unit's release branch.

The run checks the unit, policy, branch name, upstream remote and branch
freshness, then resolves pre-release dependencies on other units. When the
current version has been released it bumps the patch version across the
unit and commits the change to a new branch. Otherwise it stops and asks
for a release build of the current version.`,
	Example: `  relmono release --releaseGroup client
  relmono release --package @fluidframework/common-utils --skipChecks`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if releaseFlags.bumpType != "" && releaseFlags.bumpType != string(version.BumpPatch) {
			return rperrors.Config("cli.release", fmt.Sprintf("release only bumps patch versions, got --bumpType %s; use prep for %s", releaseFlags.bumpType, releaseFlags.bumpType))
		}
		return runWorkflow(cmd, orchestrator.PatchWorkflow(), &releaseFlags)
	},
}

var prepFlags workflowFlags

var prepCmd = &cobra.Command{
	Use:   "prep",
	Short: "Prepare the default branch for the next major or minor release",
	Long: `Bump the unit on the default branch to its next major or minor version.

Run this after creating the release branch for the current version. The run
checks the unit, policy and branch, verifies the release branch exists,
installs build tools, bumps the unit and commits the change to a new branch.`,
	Example: `  relmono prep --releaseGroup client
  relmono prep --releaseGroup server --bumpType major`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflow(cmd, orchestrator.PrepWorkflow(), &prepFlags)
	},
}

func init() {
	releaseFlags.register(releaseCmd, "bump type (only patch is accepted)")
	prepFlags.register(prepCmd, "bump type: major or minor (default minor)")
}

// runWorkflow runs one pass of a workflow and maps its outcome to an exit code.
// A unit missing from the workspace fails before the first state runs.
func runWorkflow(cmd *cobra.Command, wf orchestrator.Workflow, flags *workflowFlags) error {
	ctx := cmd.Context()

	wcfg, err := flags.config()
	if err != nil {
		return err
	}

	engine, err := wf.NewEngine(
		orchestrator.WithLogger(logger),
		orchestrator.WithTracer(orchestrator.LogTracer(logger)),
	)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, appNeeds{git: true, registry: wcfg.ShouldCheckUpdates()})
	if err != nil {
		return err
	}
	if _, err := monorepo.Members(a.workspace, wcfg.Unit); err != nil {
		return rperrors.ConfigWrap(err, "cli.workflow", "unknown release unit")
	}

	result, err := engine.Run(ctx, a.session(wcfg))
	out := cmd.OutOrStdout()
	if result != nil {
		printRunResult(out, wf.Definition.ID(), result)
	}
	if err != nil {
		var unhandled *orchestrator.UnhandledStateError
		if errors.As(err, &unhandled) {
			printError(out, err.Error())
		}
		return err
	}
	if result.Failed() {
		return &ExitError{Code: result.ExitCode(), Message: fmt.Sprintf("%s failed at %s", wf.Definition.ID(), failedAt(result))}
	}
	return nil
}

func printRunResult(w io.Writer, machine string, result *orchestrator.RunResult) {
	printSubtle(w, result.Path())
	switch {
	case result.Exited:
		printInfo(w, result.Message)
	case result.Failed():
		printError(w, fmt.Sprintf("%s failed at %s", machine, failedAt(result)))
	case result.Final != "":
		printSuccess(w, fmt.Sprintf("%s finished in %s", machine, result.Final))
	}
}

// failedAt returns the state whose failure ended the run.
func failedAt(result *orchestrator.RunResult) releaseflow.State {
	if n := len(result.History); n > 0 {
		return result.History[n-1].From
	}
	return result.Final
}
