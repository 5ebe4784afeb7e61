package vcs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog"

	"github.com/rkent/distroclone/pkg/errors"
	"github.com/rkent/distroclone/pkg/logging"
	"github.com/rkent/distroclone/pkg/manifest"
)

const dirPermissions = 0o755

// GitImporter implements Importer with go-git. Only locations of type
// "git" (or with no declared type) are supported; any other VCS kind
// fails the run.
type GitImporter struct {
	logger *zerolog.Logger
}

// GitImporterOption configures a GitImporter.
type GitImporterOption func(*GitImporter)

// WithLogger sets the logger used for per-repository progress.
func WithLogger(logger *zerolog.Logger) GitImporterOption {
	return func(g *GitImporter) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGitImporter returns a GitImporter.
func NewGitImporter(opts ...GitImporterOption) *GitImporter {
	g := &GitImporter{logger: logging.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Import clones or refreshes every entry of set under dir. In force
// mode a malformed working copy is deleted and recloned and checkouts
// discard local changes. The first failure aborts the batch.
func (g *GitImporter) Import(ctx context.Context, dir string, set *CloneSet, force bool) error {
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}

	for _, name := range set.Names() {
		loc, _ := set.Get(name)
		if loc.Type != "" && loc.Type != "git" {
			return errors.WrapClone(name, loc.URL,
				fmt.Errorf("%s: %w", loc.Type, errors.ErrUnsupportedVCS))
		}

		g.logger.Debug().
			Str("name", name).
			Str("url", loc.URL).
			Str("version", loc.Version).
			Msg("importing repository")

		if err := g.importOne(ctx, filepath.Join(dir, name), loc, force); err != nil {
			return errors.WrapClone(name, loc.URL, err)
		}
	}
	return nil
}

// importOne brings a single working copy to the requested location.
func (g *GitImporter) importOne(ctx context.Context, path string, loc manifest.Location, force bool) error {
	repo, err := git.PlainOpen(path)
	switch {
	case err == git.ErrRepositoryNotExists:
		return g.clone(ctx, path, loc)
	case err != nil:
		if !force {
			return err
		}
		// Malformed working copy: delete and reclone.
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return errors.WrapIO("delete", path, rmErr)
		}
		return g.clone(ctx, path, loc)
	}

	if err := g.updateOrigin(repo, loc.URL); err != nil {
		return err
	}

	err = repo.FetchContext(ctx, &git.FetchOptions{Force: true, Tags: git.AllTags})
	switch err {
	case nil, git.NoErrAlreadyUpToDate:
	default:
		return err
	}

	return g.checkout(repo, loc.Version, force)
}

// clone materializes a fresh working copy. The declared version is
// tried as a branch first and as a tag second; a versionless location
// clones the remote HEAD.
func (g *GitImporter) clone(ctx context.Context, path string, loc manifest.Location) error {
	opts := &git.CloneOptions{URL: loc.URL}
	if loc.Version != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(loc.Version)
	}
	_, err := git.PlainCloneContext(ctx, path, false, opts)
	if err == nil || loc.Version == "" {
		return err
	}

	// The version is not a branch on the remote; retry as a tag.
	if rmErr := os.RemoveAll(path); rmErr != nil {
		return errors.WrapIO("delete", path, rmErr)
	}
	opts.ReferenceName = plumbing.NewTagReferenceName(loc.Version)
	_, err = git.PlainCloneContext(ctx, path, false, opts)
	return err
}

// checkout moves the worktree to version: an existing local branch, a
// remote branch (materialized as a local branch), or any revision a tag
// or hash resolves to.
func (g *GitImporter) checkout(repo *git.Repository, version string, force bool) error {
	if version == "" {
		return nil
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("unable to open worktree: %w", err)
	}

	branch := plumbing.NewBranchReferenceName(version)
	if _, err := repo.Reference(branch, true); err == nil {
		return worktree.Checkout(&git.CheckoutOptions{Branch: branch, Force: force})
	}

	if rev, err := repo.ResolveRevision(plumbing.Revision("refs/remotes/origin/" + version)); err == nil {
		return worktree.Checkout(&git.CheckoutOptions{
			Hash:   *rev,
			Branch: branch,
			Create: true,
			Force:  force,
		})
	}

	rev, err := repo.ResolveRevision(plumbing.Revision(version))
	if err != nil {
		return fmt.Errorf("cannot resolve version %q: %w", version, err)
	}
	return worktree.Checkout(&git.CheckoutOptions{Hash: *rev, Force: force})
}

// updateOrigin points the origin remote at url, creating or replacing
// it as needed.
func (g *GitImporter) updateOrigin(repo *git.Repository, url string) error {
	cfg := config.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{url},
	}

	remote, err := repo.Remote(git.DefaultRemoteName)
	switch err {
	case git.ErrRemoteNotFound:
		_, err = repo.CreateRemote(&cfg)
		return err
	case nil:
		urls := remote.Config().URLs
		if len(urls) == 1 && urls[0] == url {
			return nil
		}
		g.logger.Debug().Str("url", url).Msg("updating origin remote")
		if err := repo.DeleteRemote(git.DefaultRemoteName); err != nil {
			return err
		}
		_, err = repo.CreateRemote(&cfg)
		return err
	default:
		return err
	}
}

// Pull refreshes every working copy under dir that sits on a branch.
// Detached working copies (tag or hash checkouts) are already pinned
// and are skipped.
func (g *GitImporter) Pull(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.WrapIO("scan", dir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(dir, name)

		repo, err := git.PlainOpen(path)
		if err == git.ErrRepositoryNotExists {
			continue
		}
		if err != nil {
			return errors.WrapClone(name, "", err)
		}

		head, err := repo.Head()
		if err != nil || !head.Name().IsBranch() {
			g.logger.Debug().Str("name", name).Msg("skipping pull of detached working copy")
			continue
		}

		worktree, err := repo.Worktree()
		if err != nil {
			return errors.WrapClone(name, "", err)
		}

		err = worktree.PullContext(ctx, &git.PullOptions{
			ReferenceName: head.Name(),
			Force:         true,
		})
		switch err {
		case nil:
			g.logger.Debug().Str("name", name).Msg("pulled changes")
		case git.NoErrAlreadyUpToDate:
		default:
			return errors.WrapClone(name, "", err)
		}
	}
	return nil
}
