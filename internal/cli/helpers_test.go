package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/relicta-tech/relmono/internal/application/releasegraph"
	"github.com/relicta-tech/relmono/internal/config"
	"github.com/relicta-tech/relmono/internal/domain/sourcecontrol"
)

const upstream = "microsoft/FluidFramework"

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// newTestMonorepo lays out a client release group and an independent
// common-utils package, writes a config file for it and returns the root and
// the config path. extraConfig is appended to the config file.
func newTestMonorepo(t *testing.T, commonUtilsRange, commonUtilsVersion, extraConfig string) (string, string) {
	t.Helper()
	root := t.TempDir()

	writeFile(t, root, "pnpm-workspace.yaml", "packages:\n  - \"packages/*\"\n")
	writeFile(t, root, "package.json", `{"name": "client-release-group-root", "version": "2.0.1", "private": true}`)
	writeFile(t, root, "packages/container-loader/package.json", fmt.Sprintf(`{
  "name": "@fluidframework/container-loader",
  "version": "2.0.1",
  "dependencies": {
    "@fluidframework/common-utils": %q,
    "@fluidframework/runtime": "workspace:~2.0.1"
  }
}
`, commonUtilsRange))
	writeFile(t, root, "packages/runtime/package.json", `{"name": "@fluidframework/runtime", "version": "2.0.1"}`)
	writeFile(t, root, "common/lib/common-utils/package.json",
		fmt.Sprintf(`{"name": "@fluidframework/common-utils", "version": %q}`, commonUtilsVersion))

	cfgPath := filepath.Join(root, "relmono.config.yaml")
	writeFile(t, root, "relmono.config.yaml", fmt.Sprintf(`repository:
  root: %q
  upstream: %s
  default_branch: main
release_groups:
  - name: client
    directory: "."
packages:
  - "common/lib/*"
branches:
  aliases: {}
output:
  log_level: error
  color: false
%s`, root, upstream, extraConfig))

	return root, cfgPath
}

// resetFlags restores every flag of cmd and its subcommands to its default,
// so commands can run more than once in a test binary.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// executeCommand runs the root command with args and returns its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// withMemoryRepo makes commands run against repo instead of a git checkout.
func withMemoryRepo(t *testing.T, repo *sourcecontrol.MemoryRepo) {
	t.Helper()
	orig := newApp
	newApp = func(ctx context.Context, c *config.Config, needs appNeeds) (*app, error) {
		needs.git = false
		a, err := orig(ctx, c, needs)
		if err != nil {
			return nil, err
		}
		a.repo = repo
		a.ops = releasegraph.New(a.workspace, repo, a.registry)
		return a, nil
	}
	t.Cleanup(func() { newApp = orig })
}

func newMemoryRepo(branch string) *sourcecontrol.MemoryRepo {
	return sourcecontrol.NewMemoryRepo(branch, "https://github.com/"+upstream+".git")
}
