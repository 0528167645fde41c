package cli

import (
	"context"
	"path/filepath"

	"github.com/relicta-tech/relmono/internal/application/orchestrator"
	"github.com/relicta-tech/relmono/internal/application/releasegraph"
	"github.com/relicta-tech/relmono/internal/config"
	"github.com/relicta-tech/relmono/internal/domain/release"
	"github.com/relicta-tech/relmono/internal/domain/sourcecontrol"
	"github.com/relicta-tech/relmono/internal/infrastructure/git"
	"github.com/relicta-tech/relmono/internal/infrastructure/npm"
	"github.com/relicta-tech/relmono/internal/infrastructure/shell"
	"github.com/relicta-tech/relmono/internal/infrastructure/workspace"
)

// app holds the collaborators a command runs against.
type app struct {
	cfg       *config.Config
	root      string
	workspace *workspace.Workspace
	repo      sourcecontrol.GitRepo
	registry  releasegraph.Registry
	ops       *releasegraph.Ops
}

// appNeeds selects the collaborators newApp opens.
type appNeeds struct {
	git      bool
	registry bool
}

// newApp is a variable so tests can substitute collaborators.
var newApp = func(ctx context.Context, cfg *config.Config, needs appNeeds) (*app, error) {
	root, err := filepath.Abs(cfg.Repository.Root)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, root: root}

	if needs.git {
		repo, err := git.Open(
			git.WithRepoPath(root),
			git.WithAuthToken(cfg.Git.AuthToken),
			git.WithAuthUsername(cfg.Git.AuthUsername),
			git.WithAuthor(cfg.Git.AuthorName, cfg.Git.AuthorEmail),
		)
		if err != nil {
			return nil, err
		}
		a.repo = repo
	}

	if needs.registry {
		a.registry = npm.NewClient(npmConfig(cfg.Npm))
	}

	a.workspace, err = workspace.Load(ctx, workspaceConfig(root, cfg))
	if err != nil {
		return nil, err
	}
	a.ops = releasegraph.New(a.workspace, a.repo, a.registry)
	return a, nil
}

func workspaceConfig(root string, cfg *config.Config) workspace.Config {
	groups := make([]workspace.GroupConfig, 0, len(cfg.ReleaseGroups))
	for _, g := range cfg.ReleaseGroups {
		dir := g.Directory
		if dir == "" {
			dir = "."
		}
		groups = append(groups, workspace.GroupConfig{Name: g.Name, Directory: dir, Packages: g.Packages})
	}
	return workspace.Config{
		Root:          root,
		ReleaseGroups: groups,
		Packages:      cfg.Packages,
	}
}

func npmConfig(cfg config.NpmConfig) npm.Config {
	c := npm.DefaultConfig()
	c.Registry = cfg.Registry
	c.Token = cfg.Token
	c.Timeout = cfg.Timeout
	c.Resilience.RetryAttempts = cfg.RetryAttempts
	c.Resilience.RateLimitRPM = cfg.RateLimitRPM
	return c
}

// session builds the state shared by the handlers of one workflow run.
func (a *app) session(wcfg orchestrator.Config) *orchestrator.Session {
	predicates := orchestrator.Predicates{
		Policy: (&shell.Command{
			Name:    "policy check",
			Line:    a.cfg.Checks.PolicyCommand,
			Dir:     a.root,
			Timeout: a.cfg.Checks.Timeout,
			Logger:  logger,
		}).Run,
		InstallTools: (&shell.Command{
			Name:    "build tools install",
			Line:    a.cfg.Checks.InstallCommand,
			Dir:     a.root,
			Timeout: a.cfg.Checks.Timeout,
			Logger:  logger,
		}).Run,
	}
	namer := release.NewBranchNamer(a.cfg.Branches.Aliases)
	return orchestrator.NewSession(wcfg, a.ops, a.repo, namer, predicates, logger)
}
