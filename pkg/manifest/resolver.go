package manifest

import (
	"context"
	"os"

	"github.com/rkent/distroclone/pkg/errors"
	"github.com/rkent/distroclone/pkg/logging"
)

// Provider supplies the raw repository manifest for a distribution as a
// nested key-value tree keyed by repository name. Implementations own
// their own caching and retry behavior; failures propagate as resolver
// errors.
type Provider interface {
	Repositories(ctx context.Context, distro string) (*Value, error)
}

// Resolver turns a distribution name into a typed RepositorySet:
// it fetches the raw manifest, optionally deep-merges a local override
// file into it, and optionally caps the number of entries.
type Resolver struct {
	provider Provider
	sink     logging.Sink
}

// NewResolver returns a Resolver using the given provider. The sink
// receives merge diagnostics; a nil sink makes merge conflicts fatal.
func NewResolver(provider Provider, sink logging.Sink) *Resolver {
	return &Resolver{provider: provider, sink: sink}
}

// Resolve fetches and decodes the manifest for distro. When
// overridePath is non-empty the file is loaded and deep-merged into the
// raw manifest; a missing or unparsable override is a fatal ConfigError
// since the caller explicitly asked for it. When maxRepos is
// non-negative the result is truncated to at most maxRepos entries,
// override keys first in override order, then remaining manifest keys
// in manifest order. Entry order is preserved throughout.
func (r *Resolver) Resolve(ctx context.Context, distro, overridePath string, maxRepos int) (*RepositorySet, error) {
	raw, err := r.provider.Repositories(ctx, distro)
	if err != nil {
		return nil, err
	}
	if _, err := raw.Mapping(); err != nil {
		return nil, errors.WrapFetch("", "manifest is not a mapping of repositories", err)
	}

	var overrideKeys []string
	if overridePath != "" {
		override, err := LoadOverride(overridePath)
		if err != nil {
			return nil, err
		}
		overrideKeys = override.Keys()
		if r.sink != nil {
			r.sink.Infof("merging override entries %v", overrideKeys)
		}
		if err := Merge(raw, override, r.sink); err != nil {
			return nil, err
		}
	}

	if maxRepos >= 0 {
		if r.sink != nil {
			r.sink.Infof("limiting cloned repository count to %d", maxRepos)
		}
		raw = truncate(raw, overrideKeys, maxRepos)
	}

	return repositorySetFromValue(raw)
}

// LoadOverride reads and decodes an override file. Any failure is a
// ConfigError: an explicitly requested override must not be silently
// skipped.
func LoadOverride(path string) (*Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError(path, "cannot read override file", err)
	}
	v, err := FromYAML(data)
	if err != nil {
		return nil, errors.NewConfigError(path, "cannot parse override file", err)
	}
	if v == nil || v.Kind() != KindMapping {
		return nil, errors.NewConfigError(path, "override file must contain a mapping of repositories", nil)
	}
	return v, nil
}

// truncate selects at most maxRepos entries from raw: keys named by the
// override first, in override order, then the remaining manifest keys
// in their original order.
func truncate(raw *Value, overrideKeys []string, maxRepos int) *Value {
	out := NewMapping()
	candidates := make([]string, 0, len(overrideKeys)+raw.Len())
	candidates = append(candidates, overrideKeys...)
	candidates = append(candidates, raw.Keys()...)

	for _, key := range candidates {
		if out.Len() >= maxRepos {
			break
		}
		if _, dup := out.Get(key); dup {
			continue
		}
		v, ok := raw.Get(key)
		if !ok {
			continue
		}
		out.Set(key, v)
	}
	return out
}
