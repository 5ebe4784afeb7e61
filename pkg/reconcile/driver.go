// Package reconcile drives the two-pass reconciliation of a local
// directory tree against a resolved repository manifest: prune stale
// working copies, bulk-clone everything the manifest advertises, audit
// the tree for package descriptors, and backfill declared release
// packages that never appeared by cloning their release branches into a
// reserved _release subtree.
package reconcile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/rkent/distroclone/pkg/errors"
	"github.com/rkent/distroclone/pkg/logging"
	"github.com/rkent/distroclone/pkg/manifest"
	"github.com/rkent/distroclone/pkg/packages"
	"github.com/rkent/distroclone/pkg/vcs"
)

// ReleaseDir is the reserved subtree holding backfilled release
// packages. It is never pruned by the main pass.
const ReleaseDir = "_release"

const dirPermissions = 0o755

// Options select what to reconcile and where.
type Options struct {
	// Distro is the distribution name to resolve.
	Distro string
	// Path is the root output directory for cloned trees.
	Path string
	// ConfigFile optionally names an override file merged into the
	// manifest before cloning.
	ConfigFile string
	// MaxRepos caps the number of manifest entries processed; negative
	// means unlimited.
	MaxRepos int
}

// Resolver supplies the typed repository set for a distribution.
type Resolver interface {
	Resolve(ctx context.Context, distro, overridePath string, maxRepos int) (*manifest.RepositorySet, error)
}

// scanFunc audits a tree for package descriptors.
type scanFunc func(root string, excludes ...string) ([]packages.Package, error)

// Driver orchestrates one reconciliation run. It performs no network
// I/O itself; cloning is delegated to the importer and manifest access
// to the resolver.
type Driver struct {
	resolver Resolver
	importer vcs.Importer
	scan     scanFunc
	logger   *zerolog.Logger
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithLogger sets the driver's logger.
func WithLogger(logger *zerolog.Logger) DriverOption {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithScanner replaces the package descriptor scanner, mainly for tests.
func WithScanner(scan func(root string, excludes ...string) ([]packages.Package, error)) DriverOption {
	return func(d *Driver) {
		if scan != nil {
			d.scan = scan
		}
	}
}

// New returns a Driver using the given resolver and importer.
func New(resolver Resolver, importer vcs.Importer, opts ...DriverOption) *Driver {
	d := &Driver{
		resolver: resolver,
		importer: importer,
		scan:     packages.Find,
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Reconcile converges the tree under opts.Path toward the manifest of
// opts.Distro. Every phase is fail-fast: the first error aborts the run.
// Re-running after an interruption is safe; the run is idempotent given
// an unchanged manifest.
func (d *Driver) Reconcile(ctx context.Context, opts Options) error {
	d.logger.Info().
		Str("distro", opts.Distro).
		Str("path", opts.Path).
		Msg("cloning distribution")

	if err := os.MkdirAll(opts.Path, dirPermissions); err != nil {
		return errors.WrapIO("create", opts.Path, err)
	}

	repos, err := d.resolver.Resolve(ctx, opts.Distro, opts.ConfigFile, opts.MaxRepos)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	if err := d.prune(opts.Path, repos); err != nil {
		return fmt.Errorf("prune: %w", err)
	}

	if err := d.cloneAll(ctx, opts.Path, repos); err != nil {
		return fmt.Errorf("clone: %w", err)
	}

	found, err := d.audit(opts.Path)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}

	if err := d.backfill(ctx, opts, repos, found); err != nil {
		return fmt.Errorf("backfill: %w", err)
	}

	return nil
}

// prune removes immediate subdirectories of path not named by the
// manifest. The _release subtree is reserved and always kept.
func (d *Driver) prune(path string, repos *manifest.RepositorySet) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return errors.WrapIO("read", path, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == ReleaseDir || repos.Has(name) {
			continue
		}
		directory := filepath.Join(path, name)
		d.logger.Info().Str("directory", directory).Msg("not in manifest, removing")
		if err := os.RemoveAll(directory); err != nil {
			return errors.WrapIO("delete", directory, err)
		}
	}
	return nil
}

// cloneAll force-imports every clone-able manifest entry, then pulls the
// tree so already-present working copies are refreshed.
func (d *Driver) cloneAll(ctx context.Context, path string, repos *manifest.RepositorySet) error {
	set := vcs.NewCloneSet()
	for _, name := range repos.Names() {
		loc := repos.Get(name).CloneLocation()
		if loc == nil {
			// Neither source nor doc: the entry is not clone-able.
			continue
		}
		set.Add(name, *loc)
	}

	d.logger.Info().Int("count", set.Len()).Msg("cloning repositories")
	if err := d.importer.Import(ctx, path, set, true); err != nil {
		return err
	}

	d.logger.Info().Msg("pulling changes into repositories")
	return d.importer.Pull(ctx, path)
}

// audit scans the tree, excluding _release, for the set of package
// names actually present.
func (d *Driver) audit(path string) (map[string]struct{}, error) {
	pkgs, err := d.scan(path, filepath.Join(path, ReleaseDir))
	if err != nil {
		return nil, err
	}
	found := packages.Names(pkgs)
	d.logger.Info().Int("count", len(found)).Msg("packages found on disk")
	return found, nil
}

// backfill reclones packages declared in release metadata but missing
// from the audited set into the _release subtree, then prunes that
// subtree of packages no longer declared or present.
func (d *Driver) backfill(ctx context.Context, opts Options, repos *manifest.RepositorySet, found map[string]struct{}) error {
	releasePath := filepath.Join(opts.Path, ReleaseDir)
	if err := os.MkdirAll(releasePath, dirPermissions); err != nil {
		return errors.WrapIO("create", releasePath, err)
	}

	set := vcs.NewCloneSet()
	for _, name := range repos.Names() {
		entry := repos.Get(name)
		if entry.Release == nil || entry.Release.URL == "" {
			continue
		}
		for _, pkg := range entry.Release.Packages {
			if _, ok := found[pkg]; ok {
				continue
			}
			d.logger.Warn().Str("package", pkg).Msg("package missing after clone, scheduling reclone")
			set.Add(pkg, manifest.Location{
				Type:    "git",
				URL:     entry.Release.URL,
				Version: fmt.Sprintf("release/%s/%s", opts.Distro, pkg),
			})
			// Mark found so entries sharing a package name do not
			// request it twice.
			found[pkg] = struct{}{}
		}
	}

	if set.Len() > 0 {
		d.logger.Info().Int("count", set.Len()).Msg("recloning missing packages from release repositories")
		if err := d.importer.Import(ctx, releasePath, set, true); err != nil {
			return err
		}
		if err := d.importer.Pull(ctx, releasePath); err != nil {
			return err
		}
	} else {
		d.logger.Info().Msg("no missing packages found")
	}

	return d.pruneRelease(releasePath, found)
}

// pruneRelease removes _release subdirectories whose name is not in the
// final backfilled-or-audited package set.
func (d *Driver) pruneRelease(releasePath string, found map[string]struct{}) error {
	entries, err := os.ReadDir(releasePath)
	if err != nil {
		return errors.WrapIO("read", releasePath, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, ok := found[name]; ok {
			continue
		}
		directory := filepath.Join(releasePath, name)
		d.logger.Info().Str("directory", directory).Msg("not in current release, removing")
		if err := os.RemoveAll(directory); err != nil {
			return errors.WrapIO("delete", directory, err)
		}
	}
	return nil
}
