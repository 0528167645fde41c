package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/relmono/internal/application/releasegraph"
	"github.com/relicta-tech/relmono/internal/domain/monorepo"
	"github.com/relicta-tech/relmono/internal/domain/version"
)

const loaderManifest = `{
  "name": "@fluidframework/container-loader",
  "version": "2.0.1",
  "description": "Fluid container loader",
  "dependencies": {
    "@fluidframework/common-utils": "^1.1.0",
    "@fluidframework/runtime": "workspace:~2.0.1",
    "events": "^3.1.0"
  },
  "devDependencies": {
    "@fluidframework/runtime": "workspace:~2.0.1"
  }
}
`

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

// newMonorepo lays out a client release group driven by pnpm-workspace.yaml,
// a server release group with explicit globs, and one independent package.
func newMonorepo(t *testing.T) (string, Config) {
	t.Helper()
	root := t.TempDir()

	writeFile(t, root, "pnpm-workspace.yaml", "packages:\n  - \"packages/*\"\n  - \"!packages/test-*\"\n")
	writeFile(t, root, "package.json", `{"name": "client-release-group-root", "version": "2.0.1", "private": true}`)
	writeFile(t, root, "packages/container-loader/package.json", loaderManifest)
	writeFile(t, root, "packages/runtime/package.json", `{"name": "@fluidframework/runtime", "version": "2.0.1"}`)
	writeFile(t, root, "packages/test-utils/package.json", `{"name": "@fluidframework/test-utils", "version": "2.0.1", "private": true}`)
	writeFile(t, root, "packages/runtime/node_modules/left-pad/package.json", `{"name": "left-pad", "version": "1.3.0"}`)

	writeFile(t, root, "server/routerlicious/packages/lambdas/package.json",
		`{"name": "@fluidframework/server-lambdas", "version": "0.1000.1", "dependencies": {"@fluidframework/common-utils": "~1.1.0"}}`)

	writeFile(t, root, "common/lib/common-utils/package.json", `{"name": "@fluidframework/common-utils", "version": "1.1.0"}`)

	return root, Config{
		Root: root,
		ReleaseGroups: []GroupConfig{
			{Name: "client", Directory: "."},
			{Name: "server", Directory: "server/routerlicious", Packages: []string{"packages/*"}},
		},
		Packages: []string{"common/lib/*"},
	}
}

func TestLoad_DiscoversPackages(t *testing.T) {
	_, cfg := newMonorepo(t)

	ws, err := Load(context.Background(), cfg)
	require.NoError(t, err)

	pkgs := ws.Packages()
	assert.Len(t, pkgs, 4)
	assert.Equal(t, []string{"client", "server"}, ws.ReleaseGroups())

	loader := pkgs["@fluidframework/container-loader"]
	require.NotNil(t, loader)
	assert.Equal(t, "client", loader.ReleaseGroup)
	assert.Equal(t, "2.0.1", loader.Version)
	assert.Equal(t, "packages/container-loader", loader.Directory)
	assert.Equal(t, "^1.1.0", loader.Dependencies["@fluidframework/common-utils"])
	assert.Equal(t, "workspace:~2.0.1", loader.DevDependencies["@fluidframework/runtime"])

	assert.Equal(t, "server", pkgs["@fluidframework/server-lambdas"].ReleaseGroup)
	assert.False(t, pkgs["@fluidframework/common-utils"].InReleaseGroup())
	assert.NotContains(t, pkgs, "@fluidframework/test-utils")
	assert.NotContains(t, pkgs, "left-pad")
	assert.NotContains(t, pkgs, "client-release-group-root")

	ver, err := monorepo.UnitVersion(ws, monorepo.ReleaseGroup("server"))
	require.NoError(t, err)
	assert.Equal(t, "0.1000.1", ver)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, root string, cfg *Config)
		want  error
	}{
		{
			name: "duplicate package",
			setup: func(t *testing.T, root string, cfg *Config) {
				writeFile(t, root, "common/lib/runtime-copy/package.json", `{"name": "@fluidframework/runtime", "version": "1.0.0"}`)
			},
			want: ErrDuplicatePackage,
		},
		{
			name: "malformed manifest",
			setup: func(t *testing.T, root string, cfg *Config) {
				writeFile(t, root, "common/lib/broken/package.json", `{"name": "broken",`)
			},
			want: ErrInvalidManifest,
		},
		{
			name: "manifest without name",
			setup: func(t *testing.T, root string, cfg *Config) {
				writeFile(t, root, "common/lib/anonymous/package.json", `{"version": "1.0.0"}`)
			},
			want: ErrInvalidManifest,
		},
		{
			name: "missing pnpm workspace",
			setup: func(t *testing.T, root string, cfg *Config) {
				require.NoError(t, os.Remove(filepath.Join(root, "pnpm-workspace.yaml")))
			},
			want: os.ErrNotExist,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, cfg := newMonorepo(t)
			tt.setup(t, root, &cfg)

			_, err := Load(context.Background(), cfg)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWorkspace_WritesPreserveFormatting(t *testing.T) {
	root, cfg := newMonorepo(t)
	ws, err := Load(context.Background(), cfg)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, ws.WriteVersion(ctx, "@fluidframework/container-loader", "2.0.2"))
	require.NoError(t, ws.WriteDependencyRange(ctx, "@fluidframework/container-loader", "@fluidframework/runtime", "workspace:~2.0.2"))

	want := `{
  "name": "@fluidframework/container-loader",
  "version": "2.0.2",
  "description": "Fluid container loader",
  "dependencies": {
    "@fluidframework/common-utils": "^1.1.0",
    "@fluidframework/runtime": "workspace:~2.0.2",
    "events": "^3.1.0"
  },
  "devDependencies": {
    "@fluidframework/runtime": "workspace:~2.0.2"
  }
}
`
	assert.Equal(t, want, readFile(t, root, "packages/container-loader/package.json"))

	loader := ws.Packages()["@fluidframework/container-loader"]
	assert.Equal(t, "2.0.2", loader.Version)
	assert.Equal(t, "workspace:~2.0.2", loader.Dependencies["@fluidframework/runtime"])
	assert.Equal(t, "workspace:~2.0.2", loader.DevDependencies["@fluidframework/runtime"])
}

func TestWorkspace_WriteErrors(t *testing.T) {
	_, cfg := newMonorepo(t)
	ws, err := Load(context.Background(), cfg)
	require.NoError(t, err)
	ctx := context.Background()

	err = ws.WriteVersion(ctx, "@fluidframework/missing", "1.0.0")
	require.ErrorIs(t, err, monorepo.ErrPackageNotFound)

	err = ws.WriteDependencyRange(ctx, "@fluidframework/runtime", "@fluidframework/common-utils", "^1.2.0")
	require.ErrorIs(t, err, monorepo.ErrDependencyNotFound)
}

func TestWorkspace_ReloadSeesExternalEdits(t *testing.T) {
	root, cfg := newMonorepo(t)
	ws, err := Load(context.Background(), cfg)
	require.NoError(t, err)

	writeFile(t, root, "packages/runtime/package.json", `{"name": "@fluidframework/runtime", "version": "2.0.5"}`)
	assert.Equal(t, "2.0.1", ws.Packages()["@fluidframework/runtime"].Version)

	require.NoError(t, ws.Reload(context.Background()))
	assert.Equal(t, "2.0.5", ws.Packages()["@fluidframework/runtime"].Version)
}

func TestWorkspace_BumpReleaseGroupOnDisk(t *testing.T) {
	root, cfg := newMonorepo(t)
	ws, err := Load(context.Background(), cfg)
	require.NoError(t, err)
	ops := releasegraph.New(ws, nil, nil)

	result, err := ops.BumpReleaseGroup(context.Background(), version.BumpMinor, monorepo.ReleaseGroup("client"), "")
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", result.To)

	require.NoError(t, ws.Reload(context.Background()))
	assert.Equal(t, "2.1.0", ws.Packages()["@fluidframework/runtime"].Version)
	assert.Contains(t, readFile(t, root, "packages/container-loader/package.json"), `"@fluidframework/runtime": "workspace:~2.1.0"`)
}

// failingRanges fails every range write into one package.
type failingRanges struct {
	*Workspace
	failOn string
}

func (f *failingRanges) WriteDependencyRange(ctx context.Context, pkgName, dependency, rng string) error {
	if pkgName == f.failOn {
		return errors.New("disk full")
	}
	return f.Workspace.WriteDependencyRange(ctx, pkgName, dependency, rng)
}

func TestWorkspace_FailedBumpRestoresManifests(t *testing.T) {
	root, cfg := newMonorepo(t)
	ws, err := Load(context.Background(), cfg)
	require.NoError(t, err)
	runtimeBefore := readFile(t, root, "packages/runtime/package.json")
	loaderBefore := readFile(t, root, "packages/container-loader/package.json")

	ops := releasegraph.New(&failingRanges{Workspace: ws, failOn: "@fluidframework/container-loader"}, nil, nil)
	_, err = ops.BumpReleaseGroup(context.Background(), version.BumpPatch, monorepo.ReleaseGroup("client"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	assert.Equal(t, runtimeBefore, readFile(t, root, "packages/runtime/package.json"))
	assert.Equal(t, loaderBefore, readFile(t, root, "packages/container-loader/package.json"))
	pkgs := ws.Packages()
	assert.Equal(t, "2.0.1", pkgs["@fluidframework/runtime"].Version)
	assert.Equal(t, "2.0.1", pkgs["@fluidframework/container-loader"].Version)
	assert.Equal(t, "workspace:~2.0.1", pkgs["@fluidframework/container-loader"].Dependencies["@fluidframework/runtime"])
}

func TestWorkspace_Rollback(t *testing.T) {
	ctx := context.Background()
	root, cfg := newMonorepo(t)
	ws, err := Load(ctx, cfg)
	require.NoError(t, err)

	require.NoError(t, ws.Rollback(ctx), "rollback without a checkpoint is a no-op")

	ws.Checkpoint()
	require.NoError(t, ws.WriteVersion(ctx, "@fluidframework/runtime", "2.0.2"))
	require.NoError(t, ws.WriteVersion(ctx, "@fluidframework/runtime", "2.0.3"))
	require.NoError(t, ws.WriteDependencyRange(ctx, "@fluidframework/container-loader", "events", "^3.3.0"))
	require.NoError(t, ws.Rollback(ctx))

	assert.Contains(t, readFile(t, root, "packages/runtime/package.json"), `"version": "2.0.1"`)
	assert.Equal(t, loaderManifest, readFile(t, root, "packages/container-loader/package.json"))
	assert.Equal(t, "2.0.1", ws.Packages()["@fluidframework/runtime"].Version)

	// The checkpoint is closed; later writes stay.
	require.NoError(t, ws.WriteVersion(ctx, "@fluidframework/runtime", "2.0.4"))
	require.NoError(t, ws.Rollback(ctx))
	assert.Equal(t, "2.0.4", ws.Packages()["@fluidframework/runtime"].Version)
}

func TestEscapeKey(t *testing.T) {
	assert.Equal(t, `\@fluidframework\/runtime`, escapeKey("@fluidframework/runtime"))
	assert.Equal(t, `lodash\.merge`, escapeKey("lodash.merge"))
	assert.Equal(t, "left-pad", escapeKey("left-pad"))
}

func TestSetDependencyRange_DottedName(t *testing.T) {
	data := []byte(`{"dependencies": {"lodash.merge": "^4.6.0", "lodash": "^4.17.0"}}`)

	out, err := setDependencyRange(data, "lodash.merge", "^4.6.2")
	require.NoError(t, err)
	assert.Equal(t, `{"dependencies": {"lodash.merge": "^4.6.2", "lodash": "^4.17.0"}}`, string(out))
}
