package index

import (
	"context"
	"os"

	"github.com/rkent/distroclone/pkg/errors"
	"github.com/rkent/distroclone/pkg/manifest"
)

// Local serves a repository manifest from a distribution file on disk
// instead of the remote index. It implements manifest.Provider and backs
// the special "github" distribution mode, which reads
// github/distribution.yaml under the working directory.
type Local struct {
	// Path of the distribution file to read.
	Path string
}

// Repositories reads the local distribution file and returns its
// repositories mapping. The distro argument is ignored: the file already
// identifies the distribution.
func (l *Local) Repositories(_ context.Context, _ string) (*manifest.Value, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, errors.WrapFetch(l.Path, "cannot read local distribution file", err)
	}
	v, err := manifest.FromYAML(data)
	if err != nil {
		return nil, errors.WrapFetch(l.Path, "cannot parse local distribution file", err)
	}
	dist, err := v.Mapping()
	if err != nil {
		return nil, errors.WrapFetch(l.Path, "local distribution file is not a mapping", err)
	}
	repos, ok := dist.Get("repositories")
	if !ok || repos.Kind() != manifest.KindMapping {
		return nil, errors.NewFetchError(l.Path, 0, "local distribution file declares no repositories")
	}
	return repos, nil
}
