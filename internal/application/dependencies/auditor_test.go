package dependencies

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/relmono/internal/domain/monorepo"
)

func clientGraph(utilsRange string) *monorepo.MemoryGraph {
	return monorepo.NewMemoryGraph(
		&monorepo.Package{
			Name:         "@fluidframework/container-loader",
			Version:      "2.1.0",
			ReleaseGroup: "client",
			Dependencies: map[string]string{
				"@fluidframework/common-utils": utilsRange,
				"@fluidframework/runtime":      "~2.1.0",
				"lodash":                       "^4.17.21-beta.1",
			},
		},
		&monorepo.Package{Name: "@fluidframework/runtime", Version: "2.1.0", ReleaseGroup: "client"},
		&monorepo.Package{Name: "@fluidframework/common-utils", Version: "2.0.0"},
	)
}

func TestGetPreReleaseDependencies_PendingPackage(t *testing.T) {
	report, err := GetPreReleaseDependencies(clientGraph("2.0.0-dev.1"), monorepo.ReleaseGroup("client"))
	require.NoError(t, err)

	assert.False(t, report.IsEmpty())
	assert.Equal(t, []string{"@fluidframework/common-utils"}, report.Packages)
	assert.Empty(t, report.ReleaseGroups)
	require.Len(t, report.Pending, 1)
	assert.Equal(t, PendingDependency{
		Dependent:  "@fluidframework/container-loader",
		Name:       "@fluidframework/common-utils",
		Range:      "2.0.0-dev.1",
		MinVersion: "2.0.0-dev.1",
		Owner:      monorepo.SinglePackage("@fluidframework/common-utils"),
	}, report.Pending[0])
}

func TestGetPreReleaseDependencies_Released(t *testing.T) {
	report, err := GetPreReleaseDependencies(clientGraph("2.0.0"), monorepo.ReleaseGroup("client"))
	require.NoError(t, err)
	assert.True(t, report.IsEmpty())
	assert.Empty(t, report.Pending)
}

func TestGetPreReleaseDependencies_AttributesReleaseGroups(t *testing.T) {
	graph := monorepo.NewMemoryGraph(
		&monorepo.Package{
			Name:            "@fluidframework/server-lambdas",
			Version:         "0.1036.1000",
			ReleaseGroup:    "server",
			Dependencies:    map[string]string{"@fluidframework/protocol-base": "^1.0.0-dev.4"},
			DevDependencies: map[string]string{"@fluidframework/build-tools": "workspace:~0.5.0-dev.2", "@fluidframework/eslint-config": "file:../eslint"},
		},
		&monorepo.Package{Name: "@fluidframework/protocol-base", Version: "1.0.0", ReleaseGroup: "common"},
		&monorepo.Package{Name: "@fluidframework/build-tools", Version: "0.5.0", ReleaseGroup: "build-tools"},
		&monorepo.Package{Name: "@fluidframework/eslint-config", Version: "1.0.0-dev.1"},
	)

	report, err := GetPreReleaseDependencies(graph, monorepo.ReleaseGroup("server"))
	require.NoError(t, err)
	assert.Equal(t, []string{"build-tools", "common"}, report.ReleaseGroups)
	assert.Empty(t, report.Packages)
	assert.Equal(t, []monorepo.ReleaseUnit{
		monorepo.ReleaseGroup("build-tools"),
		monorepo.ReleaseGroup("common"),
	}, report.Units())
}

func TestGetPreReleaseDependencies_Deterministic(t *testing.T) {
	graph := clientGraph("^2.0.0-dev.1")
	first, err := GetPreReleaseDependencies(graph, monorepo.ReleaseGroup("client"))
	require.NoError(t, err)
	second, err := GetPreReleaseDependencies(graph, monorepo.ReleaseGroup("client"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGetPreReleaseDependencies_Errors(t *testing.T) {
	_, err := GetPreReleaseDependencies(clientGraph("2.0.0"), monorepo.ReleaseGroup("azure"))
	assert.ErrorIs(t, err, monorepo.ErrUnknownUnit)

	_, err = GetPreReleaseDependencies(clientGraph(">=2.0.0 <<1"), monorepo.ReleaseGroup("client"))
	assert.Error(t, err)
}
