package vcs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/rkent/distroclone/pkg/errors"
	"github.com/rkent/distroclone/pkg/logging"
	"github.com/rkent/distroclone/pkg/manifest"
	"github.com/rkent/distroclone/pkg/vcs"
)

func TestCloneSetOrderAndDedupe(t *testing.T) {
	set := vcs.NewCloneSet()
	assert.True(t, set.Add("b", manifest.Location{URL: "url-b"}))
	assert.True(t, set.Add("a", manifest.Location{URL: "url-a"}))
	assert.False(t, set.Add("b", manifest.Location{URL: "other"}))

	assert.Equal(t, []string{"b", "a"}, set.Names())
	assert.Equal(t, 2, set.Len())

	loc, ok := set.Get("b")
	require.True(t, ok)
	assert.Equal(t, "url-b", loc.URL, "first registration wins")

	_, ok = set.Get("missing")
	assert.False(t, ok)
}

// initSourceRepo creates a local git repository usable as a clone URL.
func initSourceRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("fixture\n"), 0o644))

	worktree, err := repo.Worktree()
	require.NoError(t, err)
	_, err = worktree.Add("README.md")
	require.NoError(t, err)
	_, err = worktree.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "fixture",
			Email: "fixture@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)

	return dir
}

func TestGitImporterCloneAndRefresh(t *testing.T) {
	source := initSourceRepo(t)
	target := t.TempDir()

	importer := vcs.NewGitImporter(vcs.WithLogger(logging.NewNopLogger()))
	set := vcs.NewCloneSet()
	set.Add("fixture", manifest.Location{Type: "git", URL: source, Version: "master"})

	ctx := context.Background()
	require.NoError(t, importer.Import(ctx, target, set, true))
	assert.FileExists(t, filepath.Join(target, "fixture", "README.md"))

	// A second force import of an unchanged remote must succeed and
	// leave the working copy in place.
	require.NoError(t, importer.Import(ctx, target, set, true))
	assert.FileExists(t, filepath.Join(target, "fixture", "README.md"))

	require.NoError(t, importer.Pull(ctx, target))
}

func TestGitImporterVersionlessClone(t *testing.T) {
	source := initSourceRepo(t)
	target := t.TempDir()

	importer := vcs.NewGitImporter(vcs.WithLogger(logging.NewNopLogger()))
	set := vcs.NewCloneSet()
	set.Add("fixture", manifest.Location{Type: "git", URL: source})

	require.NoError(t, importer.Import(context.Background(), target, set, true))
	assert.DirExists(t, filepath.Join(target, "fixture"))
}

func TestGitImporterRejectsUnsupportedVCS(t *testing.T) {
	importer := vcs.NewGitImporter(vcs.WithLogger(logging.NewNopLogger()))
	set := vcs.NewCloneSet()
	set.Add("legacy", manifest.Location{Type: "hg", URL: "https://example.com/legacy"})

	err := importer.Import(context.Background(), t.TempDir(), set, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrUnsupportedVCS))
	assert.True(t, pkgerrors.IsClone(err))
}

func TestGitImporterCloneFailureAborts(t *testing.T) {
	importer := vcs.NewGitImporter(vcs.WithLogger(logging.NewNopLogger()))
	set := vcs.NewCloneSet()
	set.Add("gone", manifest.Location{Type: "git", URL: filepath.Join(t.TempDir(), "does-not-exist")})

	err := importer.Import(context.Background(), t.TempDir(), set, true)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsClone(err))
}

func TestPullSkipsNonRepositories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "not-a-repo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray-file"), []byte("x"), 0o644))

	importer := vcs.NewGitImporter(vcs.WithLogger(logging.NewNopLogger()))
	assert.NoError(t, importer.Pull(context.Background(), dir))
}

func TestPullMissingDirectory(t *testing.T) {
	importer := vcs.NewGitImporter(vcs.WithLogger(logging.NewNopLogger()))
	err := importer.Pull(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}
