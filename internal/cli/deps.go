package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/relmono/internal/application/dependencies"
	"github.com/relicta-tech/relmono/internal/application/releasegraph"
	"github.com/relicta-tech/relmono/internal/domain/monorepo"
	rperrors "github.com/relicta-tech/relmono/internal/errors"
)

var (
	depsUnit     unitFlags
	depsJSON     bool
	depsReleased bool
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "List pre-release dependencies on other release units",
	Long: `List the release groups and packages that must be released before the
given unit can be, because its members depend on pre-release versions of them.

With --released each pending unit is shown with its latest release tag in
the local repository.`,
	Example: `  relmono deps --releaseGroup client
  relmono deps --releaseGroup client --released
  relmono deps --package @fluidframework/common-utils --json`,
	RunE: runDeps,
}

func init() {
	depsUnit.register(depsCmd)
	depsCmd.Flags().BoolVar(&depsJSON, "json", false, "output the report as JSON")
	depsCmd.Flags().BoolVar(&depsReleased, "released", false, "show the latest release tag of each pending unit")
}

func runDeps(cmd *cobra.Command, args []string) error {
	unit, err := depsUnit.unit()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, appNeeds{git: depsReleased})
	if err != nil {
		return err
	}

	report, err := dependencies.GetPreReleaseDependencies(a.workspace, unit)
	if err != nil {
		return err
	}

	var latest map[string]string
	if depsReleased {
		if latest, err = latestReleases(cmd.Context(), a.ops, report.Units()); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if depsJSON {
		return writeJSON(out, depsOutput{Report: report, LatestReleases: latest})
	}
	printDepsReport(out, unit, report, latest)
	return nil
}

// depsOutput is the JSON form of the deps command.
type depsOutput struct {
	dependencies.Report
	LatestReleases map[string]string `json:",omitempty"`
}

// latestReleases maps each unit to the version of its latest release tag.
// Units without a release tag are left out.
func latestReleases(ctx context.Context, ops *releasegraph.Ops, units []monorepo.ReleaseUnit) (map[string]string, error) {
	latest := make(map[string]string, len(units))
	for _, u := range units {
		tag, err := ops.LatestRelease(ctx, u)
		if err != nil {
			return nil, rperrors.GitWrap(err, "cli.deps", "reading release tags of "+u.String())
		}
		if tag != nil {
			latest[u.String()] = tag.Version().String()
		}
	}
	return latest, nil
}

func printDepsReport(w io.Writer, unit monorepo.ReleaseUnit, report dependencies.Report, latest map[string]string) {
	if report.IsEmpty() {
		printSuccess(w, fmt.Sprintf("%s has no pre-release dependencies", unit))
		return
	}

	printTitle(w, fmt.Sprintf("%s depends on unreleased versions of:", unit))
	for _, owner := range report.Units() {
		line := "  " + styles.Bold.Render(owner.String())
		if latest != nil {
			released, ok := latest[owner.String()]
			if !ok {
				released = "never released"
			} else {
				released = "latest release " + released
			}
			line += " " + styles.Subtle.Render("("+released+")")
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w)
	for _, p := range report.Pending {
		fmt.Fprintf(w, "  %s -> %s %s %s\n", p.Dependent, p.Name, p.Range, styles.Subtle.Render("(min "+p.MinVersion+")"))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
