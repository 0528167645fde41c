// Package workspace implements the package graph over the package.json
// manifests of a pnpm monorepo.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/relicta-tech/relmono/internal/domain/monorepo"
	rperrors "github.com/relicta-tech/relmono/internal/errors"
	"github.com/relicta-tech/relmono/internal/fileutil"
)

// ErrDuplicatePackage indicates two manifests declaring the same package name.
var ErrDuplicatePackage = errors.New("package declared more than once")

// pnpmWorkspaceFile lists the package globs of a release group when none are configured.
const pnpmWorkspaceFile = "pnpm-workspace.yaml"

// GroupConfig locates the packages of one release group.
type GroupConfig struct {
	Name string
	// Directory is the release group root, relative to the repository root.
	Directory string
	// Packages are globs relative to Directory. When empty, the globs come
	// from pnpm-workspace.yaml in Directory.
	Packages []string
}

// Config locates every package of the monorepo.
type Config struct {
	Root          string
	ReleaseGroups []GroupConfig
	// Packages are globs, relative to Root, of independently versioned packages.
	Packages []string
}

// Ensure Workspace implements PackageGraph.
var _ monorepo.PackageGraph = (*Workspace)(nil)

// Workspace is the package graph read from disk. Writes go to the manifest
// files and to the in-memory packages together.
type Workspace struct {
	cfg Config

	mu        sync.RWMutex
	packages  map[string]*monorepo.Package
	manifests map[string]string
	groups    []string
	// journal holds the original bytes of every manifest edited since
	// Checkpoint, keyed by path. Nil when no checkpoint is open.
	journal map[string][]byte
}

// Load discovers and reads every manifest under cfg.
func Load(ctx context.Context, cfg Config) (*Workspace, error) {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, rperrors.IOWrap(err, "workspace.Load", "failed to resolve root")
	}
	cfg.Root = root

	w := &Workspace{cfg: cfg}
	if err := w.Reload(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// Packages returns the full name to package map.
func (w *Workspace) Packages() map[string]*monorepo.Package {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.packages
}

// ReleaseGroups returns the configured release group names.
func (w *Workspace) ReleaseGroups() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.groups
}

// ManifestPath returns the package.json path of a package.
func (w *Workspace) ManifestPath(pkgName string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.manifests[pkgName]
	return p, ok
}

type discovered struct {
	manifest string
	group    string
}

// Reload rediscovers and rereads every manifest, replacing the in-memory graph.
func (w *Workspace) Reload(ctx context.Context) error {
	const op = "workspace.Reload"

	found, err := w.discover()
	if err != nil {
		return err
	}

	pkgs := make([]*monorepo.Package, len(found))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0) * 2)
	for i, d := range found {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pkg, err := w.readPackage(d)
			if err != nil {
				return err
			}
			pkgs[i] = pkg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	packages := make(map[string]*monorepo.Package, len(pkgs))
	manifests := make(map[string]string, len(pkgs))
	for i, pkg := range pkgs {
		if prev, ok := manifests[pkg.Name]; ok {
			return rperrors.ManifestWrap(
				fmt.Errorf("%w: %s in %s and %s", ErrDuplicatePackage, pkg.Name, prev, found[i].manifest),
				op, "invalid workspace")
		}
		packages[pkg.Name] = pkg
		manifests[pkg.Name] = found[i].manifest
	}

	groups := make([]string, 0, len(w.cfg.ReleaseGroups))
	for _, gc := range w.cfg.ReleaseGroups {
		groups = append(groups, gc.Name)
	}
	sort.Strings(groups)

	w.mu.Lock()
	w.packages = packages
	w.manifests = manifests
	w.groups = groups
	w.mu.Unlock()
	return nil
}

func (w *Workspace) readPackage(d discovered) (*monorepo.Package, error) {
	const op = "workspace.readPackage"

	data, err := fileutil.ReadLimited(d.manifest, maxManifestSize)
	if err != nil {
		return nil, rperrors.IOWrap(err, op, d.manifest)
	}
	pkg, err := parseManifest(data)
	if err != nil {
		return nil, rperrors.ManifestWrap(err, op, d.manifest)
	}
	pkg.ReleaseGroup = d.group
	rel, err := filepath.Rel(w.cfg.Root, filepath.Dir(d.manifest))
	if err != nil {
		return nil, rperrors.IOWrap(err, op, d.manifest)
	}
	pkg.Directory = filepath.ToSlash(rel)
	return pkg, nil
}

// discover returns the manifests of every configured package. A manifest
// matched by a release group is never also an independent package.
func (w *Workspace) discover() ([]discovered, error) {
	seen := make(map[string]bool)
	var out []discovered

	for _, gc := range w.cfg.ReleaseGroups {
		dir := filepath.Join(w.cfg.Root, gc.Directory)
		globs := gc.Packages
		if len(globs) == 0 {
			var err error
			if globs, err = readPnpmWorkspace(dir); err != nil {
				return nil, err
			}
		}
		manifests, err := globManifests(dir, globs)
		if err != nil {
			return nil, rperrors.ConfigWrap(err, "workspace.discover", "release group "+gc.Name)
		}
		for _, m := range manifests {
			if seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, discovered{manifest: m, group: gc.Name})
		}
	}

	manifests, err := globManifests(w.cfg.Root, w.cfg.Packages)
	if err != nil {
		return nil, rperrors.ConfigWrap(err, "workspace.discover", "independent packages")
	}
	for _, m := range manifests {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, discovered{manifest: m})
	}
	return out, nil
}

type pnpmWorkspace struct {
	Packages []string `yaml:"packages"`
}

func readPnpmWorkspace(dir string) ([]string, error) {
	const op = "workspace.readPnpmWorkspace"

	path := filepath.Join(dir, pnpmWorkspaceFile)
	data, err := fileutil.ReadLimited(path, maxManifestSize)
	if err != nil {
		return nil, rperrors.IOWrap(err, op, path)
	}
	var ws pnpmWorkspace
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return nil, rperrors.ManifestWrap(err, op, path)
	}
	if len(ws.Packages) == 0 {
		return nil, rperrors.ManifestWrap(errors.New("no packages listed"), op, path)
	}
	return ws.Packages, nil
}

// globManifests expands package directory globs under dir into package.json
// paths. Globs starting with '!' exclude directories, as in pnpm-workspace.yaml.
// Packages under node_modules are ignored.
func globManifests(dir string, globs []string) ([]string, error) {
	var include, exclude []string
	for _, g := range globs {
		g = strings.TrimSuffix(filepath.ToSlash(g), "/")
		if strings.HasPrefix(g, "!") {
			exclude = append(exclude, strings.TrimPrefix(g, "!"))
			continue
		}
		include = append(include, g)
	}
	for _, g := range append(include, exclude...) {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid package glob %q", g)
		}
	}

	fsys := os.DirFS(dir)
	var out []string
	for _, g := range include {
		pattern := g + "/package.json"
		if g == "." {
			pattern = "package.json"
		}
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			pkgDir := path.Dir(m)
			if isExcluded(pkgDir, exclude) {
				continue
			}
			out = append(out, filepath.Join(dir, filepath.FromSlash(m)))
		}
	}
	sort.Strings(out)
	return out, nil
}

func isExcluded(pkgDir string, exclude []string) bool {
	for _, segment := range strings.Split(pkgDir, "/") {
		if segment == "node_modules" {
			return true
		}
	}
	for _, pattern := range exclude {
		if doublestar.MatchUnvalidated(pattern, pkgDir) {
			return true
		}
	}
	return false
}

// WriteVersion rewrites the version field of a package manifest.
func (w *Workspace) WriteVersion(_ context.Context, pkgName, version string) error {
	return w.edit("workspace.WriteVersion", pkgName, func(data []byte) ([]byte, error) {
		return setString(data, "version", version)
	}, func(pkg *monorepo.Package) {
		pkg.Version = version
	})
}

// WriteDependencyRange rewrites a dependency range in every section of a
// package manifest that declares it.
func (w *Workspace) WriteDependencyRange(_ context.Context, pkgName, dependency, rng string) error {
	return w.edit("workspace.WriteDependencyRange", pkgName, func(data []byte) ([]byte, error) {
		return setDependencyRange(data, dependency, rng)
	}, func(pkg *monorepo.Package) {
		if _, ok := pkg.Dependencies[dependency]; ok {
			pkg.Dependencies[dependency] = rng
		}
		if _, ok := pkg.DevDependencies[dependency]; ok {
			pkg.DevDependencies[dependency] = rng
		}
	})
}

func (w *Workspace) edit(op, pkgName string, rewrite func([]byte) ([]byte, error), apply func(*monorepo.Package)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	pkg, ok := w.packages[pkgName]
	if !ok {
		return fmt.Errorf("%w: %s", monorepo.ErrPackageNotFound, pkgName)
	}
	path := w.manifests[pkgName]

	data, err := fileutil.ReadLimited(path, maxManifestSize)
	if err != nil {
		return rperrors.IOWrap(err, op, path)
	}
	if w.journal != nil {
		if _, ok := w.journal[path]; !ok {
			w.journal[path] = data
		}
	}
	updated, err := rewrite(data)
	if err != nil {
		return rperrors.ManifestWrap(err, op, path)
	}
	if err := fileutil.Replace(path, updated); err != nil {
		return rperrors.IOWrap(err, op, path)
	}
	apply(pkg)
	return nil
}

// Checkpoint starts recording the original content of every manifest the
// following writes touch.
func (w *Workspace) Checkpoint() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.journal = make(map[string][]byte)
}

// Rollback writes back the content recorded since Checkpoint and rereads the
// workspace, so neither the files nor the graph keep a partial edit.
func (w *Workspace) Rollback(ctx context.Context) error {
	const op = "workspace.Rollback"

	w.mu.Lock()
	journal := w.journal
	w.journal = nil
	paths := make([]string, 0, len(journal))
	for path := range journal {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var errs []error
	for _, path := range paths {
		if err := fileutil.Replace(path, journal[path]); err != nil {
			errs = append(errs, rperrors.IOWrap(err, op, path))
		}
	}
	w.mu.Unlock()

	if journal == nil {
		return nil
	}
	if err := w.Reload(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
