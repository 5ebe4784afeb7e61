package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/rkent/distroclone/pkg/errors"
	"github.com/rkent/distroclone/pkg/logging"
)

// staticProvider serves a fixed manifest tree, standing in for the
// index/cache collaborator.
type staticProvider struct {
	repos *Value
	err   error
}

func (p *staticProvider) Repositories(_ context.Context, _ string) (*Value, error) {
	return p.repos, p.err
}

const fiveRepoManifest = `
r1:
  source: {type: git, url: "https://example.com/r1.git", version: main}
r2:
  source: {type: git, url: "https://example.com/r2.git", version: main}
r3:
  doc: {type: git, url: "https://example.com/r3.git", version: main}
r4:
  source: {type: git, url: "https://example.com/r4.git", version: main}
r5:
  source: {type: git, url: "https://example.com/r5.git", version: main}
`

func writeOverride(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestResolveUnlimited(t *testing.T) {
	provider := &staticProvider{repos: mustYAML(t, fiveRepoManifest)}
	resolver := NewResolver(provider, &logging.RecordingSink{})

	set, err := resolver.Resolve(context.Background(), "rolling", "", -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "r3", "r4", "r5"}, set.Names())

	// r3 only has a doc location; it is still clone-able through it.
	assert.NotNil(t, set.Get("r3").CloneLocation())
	assert.Equal(t, "https://example.com/r3.git", set.Get("r3").CloneLocation().URL)
}

func TestResolveTruncationPrefersOverrideKeys(t *testing.T) {
	provider := &staticProvider{repos: mustYAML(t, fiveRepoManifest)}
	resolver := NewResolver(provider, &logging.RecordingSink{})

	override := writeOverride(t, `
extra:
  source: {type: git, url: "https://example.com/extra.git", version: devel}
`)

	set, err := resolver.Resolve(context.Background(), "rolling", override, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"extra", "r1", "r2"}, set.Names())
	assert.Equal(t, "devel", set.Get("extra").Source.Version)
}

func TestResolveOverridePatchesExistingEntry(t *testing.T) {
	provider := &staticProvider{repos: mustYAML(t, fiveRepoManifest)}
	resolver := NewResolver(provider, &logging.RecordingSink{})

	override := writeOverride(t, `
r2:
  source:
    version: fix-rosdoc2
`)

	set, err := resolver.Resolve(context.Background(), "rolling", override, -1)
	require.NoError(t, err)
	// Patched field wins, untouched fields survive, order is unchanged.
	assert.Equal(t, "fix-rosdoc2", set.Get("r2").Source.Version)
	assert.Equal(t, "https://example.com/r2.git", set.Get("r2").Source.URL)
	assert.Equal(t, []string{"r1", "r2", "r3", "r4", "r5"}, set.Names())
}

func TestResolveMissingOverrideIsFatal(t *testing.T) {
	provider := &staticProvider{repos: mustYAML(t, fiveRepoManifest)}
	resolver := NewResolver(provider, &logging.RecordingSink{})

	_, err := resolver.Resolve(context.Background(), "rolling", filepath.Join(t.TempDir(), "nope.yaml"), -1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConfig(err))
}

func TestResolveUnparsableOverrideIsFatal(t *testing.T) {
	provider := &staticProvider{repos: mustYAML(t, fiveRepoManifest)}
	resolver := NewResolver(provider, &logging.RecordingSink{})

	override := writeOverride(t, "{broken: [yaml")
	_, err := resolver.Resolve(context.Background(), "rolling", override, -1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConfig(err))
}

func TestResolveScalarOverrideIsFatal(t *testing.T) {
	provider := &staticProvider{repos: mustYAML(t, fiveRepoManifest)}
	resolver := NewResolver(provider, &logging.RecordingSink{})

	override := writeOverride(t, `just a string`)
	_, err := resolver.Resolve(context.Background(), "rolling", override, -1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConfig(err))
}

func TestResolveMaxReposZero(t *testing.T) {
	provider := &staticProvider{repos: mustYAML(t, fiveRepoManifest)}
	resolver := NewResolver(provider, &logging.RecordingSink{})

	set, err := resolver.Resolve(context.Background(), "rolling", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

func TestResolveProviderErrorPropagates(t *testing.T) {
	provider := &staticProvider{err: pkgerrors.NewFetchError("https://example.com/index.yaml", 503, "down")}
	resolver := NewResolver(provider, &logging.RecordingSink{})

	_, err := resolver.Resolve(context.Background(), "rolling", "", -1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsFetch(err))
}
