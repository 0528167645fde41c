package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/relmono/internal/domain/releaseflow"
	rperrors "github.com/relicta-tech/relmono/internal/errors"
)

var machineFormat string

var machineCmd = &cobra.Command{
	Use:   "machine [release|prep]",
	Short: "Print a workflow state machine",
	Long: `Print the state machine behind the release or prep command, as a
Graphviz digraph or as XState JSON.`,
	Example: `  relmono machine release | dot -Tsvg > release.svg
  relmono machine prep --format xstate`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"release", "prep"},
	RunE:      runMachine,
}

func init() {
	machineCmd.Flags().StringVarP(&machineFormat, "format", "f", "dot", "output format (dot, xstate)")
}

func runMachine(cmd *cobra.Command, args []string) error {
	const op = "cli.machine"

	var def *releaseflow.Definition
	switch args[0] {
	case "release", "patch":
		def = releaseflow.PatchRelease()
	case "prep":
		def = releaseflow.PrepRelease()
	default:
		return rperrors.Validation(op, fmt.Sprintf("unknown workflow %q (must be release or prep)", args[0]))
	}

	out := cmd.OutOrStdout()
	switch machineFormat {
	case "dot":
		_, err := fmt.Fprint(out, def.ExportDOT())
		return err
	case "xstate":
		data, err := def.ExportXStateJSON()
		if err != nil {
			return rperrors.Wrap(err, rperrors.KindInternal, op, "failed to export machine")
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	default:
		return rperrors.Validation(op, fmt.Sprintf("unknown format %q (must be dot or xstate)", machineFormat))
	}
}
