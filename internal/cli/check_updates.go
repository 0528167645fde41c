package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/relmono/internal/application/releasegraph"
)

var checkUpdatesOpts struct {
	unit       unitFlags
	include    []string
	prerelease bool
	write      bool
	json       bool
}

var checkUpdatesCmd = &cobra.Command{
	Use:   "check-updates",
	Short: "Find newer published versions of a unit's dependencies",
	Long: `Query the npm registry for newer versions of the dependencies of every
member of a release unit. Without --write the result is advisory and no
manifest changes.`,
	Example: `  relmono check-updates --releaseGroup client
  relmono check-updates -g client --include "@fluidframework/*" --prerelease --write`,
	RunE: runCheckUpdates,
}

func init() {
	checkUpdatesOpts.unit.register(checkUpdatesCmd)
	checkUpdatesCmd.Flags().StringSliceVar(&checkUpdatesOpts.include, "include", nil, "dependency name patterns to check (default all)")
	checkUpdatesCmd.Flags().BoolVar(&checkUpdatesOpts.prerelease, "prerelease", false, "allow pre-release versions")
	checkUpdatesCmd.Flags().BoolVar(&checkUpdatesOpts.write, "write", false, "rewrite dependency ranges in place")
	checkUpdatesCmd.Flags().BoolVar(&checkUpdatesOpts.json, "json", false, "output the result as JSON")
}

func runCheckUpdates(cmd *cobra.Command, args []string) error {
	unit, err := checkUpdatesOpts.unit.unit()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, appNeeds{registry: true})
	if err != nil {
		return err
	}

	result, err := a.ops.NpmCheckUpdates(cmd.Context(), releasegraph.CheckUpdatesOptions{
		Unit:       unit,
		Include:    checkUpdatesOpts.include,
		Prerelease: checkUpdatesOpts.prerelease,
		Write:      checkUpdatesOpts.write,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if checkUpdatesOpts.json {
		return writeJSON(out, result)
	}
	printUpdates(out, result, checkUpdatesOpts.write)
	return nil
}

func printUpdates(w io.Writer, result *releasegraph.CheckUpdatesResult, written bool) {
	if len(result.Updates) == 0 {
		printSuccess(w, "all dependencies are up to date")
	}
	for _, u := range result.Updates {
		fmt.Fprintf(w, "  %s: %s %s -> %s\n", u.Package, u.Dependency, u.From, styles.Bold.Render(u.To))
	}
	for _, s := range result.Skipped {
		printWarning(w, fmt.Sprintf("%s: %s %s skipped (%s)", s.Package, s.Dependency, s.Range, s.Reason))
	}
	if len(result.Updates) > 0 {
		if written {
			printSuccess(w, fmt.Sprintf("updated %d package manifests", len(result.UpdatedPackages)))
		} else {
			printSubtle(w, "run with --write to apply")
		}
	}
}
