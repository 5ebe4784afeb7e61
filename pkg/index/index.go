// Package index talks to a ROS-style distribution index: it fetches the
// index document, follows the per-distribution cache URL, and returns the
// distribution's repository manifest as a raw key-value tree. Responses
// are cached on disk with a TTL so repeated runs do not re-download an
// unchanged cache.
package index

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rkent/distroclone/pkg/errors"
	"github.com/rkent/distroclone/pkg/logging"
	"github.com/rkent/distroclone/pkg/manifest"
)

const (
	// DefaultIndexURL is the rosdistro index used when none is configured.
	DefaultIndexURL = "https://raw.githubusercontent.com/ros/rosdistro/master/index-v4.yaml"

	// IndexURLEnv overrides the index URL, mirroring rosdistro's own
	// environment convention.
	IndexURLEnv = "ROSDISTRO_INDEX_URL"

	// DefaultCacheTTL is how long downloaded documents stay fresh.
	DefaultCacheTTL = 1 * time.Hour

	defaultHTTPTimeout = 30 * time.Second
	dirPermissions     = 0o755
)

// IndexURL returns the configured index URL: the environment override
// when set, the default otherwise.
func IndexURL() string {
	if v := os.Getenv(IndexURLEnv); v != "" {
		return v
	}
	return DefaultIndexURL
}

// Client fetches distribution manifests from the index. It implements
// manifest.Provider.
type Client struct {
	indexURL string
	cacheDir string
	ttl      time.Duration
	client   *http.Client
	logger   *zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithIndexURL sets the index document URL.
func WithIndexURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.indexURL = url
		}
	}
}

// WithCacheDir sets the directory for cached downloads.
func WithCacheDir(dir string) Option {
	return func(c *Client) { c.cacheDir = dir }
}

// WithTTL sets the cache freshness window. Zero disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(c *Client) { c.ttl = ttl }
}

// WithHTTPClient sets the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

// WithLogger sets the logger for cache diagnostics.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient returns a Client with the default index URL, a cache under
// the user cache directory, and a 1h TTL.
func NewClient(opts ...Option) *Client {
	c := &Client{
		indexURL: IndexURL(),
		ttl:      DefaultCacheTTL,
		client:   &http.Client{Timeout: defaultHTTPTimeout},
		logger:   logging.Default(),
	}
	if userCache, err := os.UserCacheDir(); err == nil {
		c.cacheDir = filepath.Join(userCache, "distroclone")
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Repositories resolves distro through the index and returns its raw
// repository manifest keyed by repository name.
func (c *Client) Repositories(ctx context.Context, distro string) (*manifest.Value, error) {
	cacheURL, err := c.distributionCacheURL(ctx, distro)
	if err != nil {
		return nil, err
	}

	data, err := c.fetch(ctx, cacheURL)
	if err != nil {
		return nil, err
	}

	cache, err := manifest.FromYAML(data)
	if err != nil {
		return nil, errors.WrapFetch(cacheURL, "cannot parse distribution cache", err)
	}
	return repositoriesFromCache(cacheURL, cache)
}

// distributionCacheURL fetches the index and returns the cache URL
// declared for distro.
func (c *Client) distributionCacheURL(ctx context.Context, distro string) (string, error) {
	data, err := c.fetch(ctx, c.indexURL)
	if err != nil {
		return "", err
	}

	idx, err := manifest.FromYAML(data)
	if err != nil {
		return "", errors.WrapFetch(c.indexURL, "cannot parse index", err)
	}

	distributions, ok := idx.Get("distributions")
	if !ok || distributions.Kind() != manifest.KindMapping {
		return "", errors.NewFetchError(c.indexURL, 0, "index has no distributions mapping")
	}
	dist, ok := distributions.Get(distro)
	if !ok {
		return "", errors.WrapFetch(c.indexURL,
			fmt.Sprintf("distribution %q not in index", distro),
			&errors.NotFoundError{Resource: "distribution", ID: distro})
	}
	cacheURL := dist.StringAt("distribution_cache")
	if cacheURL == "" {
		return "", errors.NewFetchError(c.indexURL, 0,
			fmt.Sprintf("distribution %q declares no distribution_cache", distro))
	}
	return cacheURL, nil
}

// repositoriesFromCache extracts the repositories mapping from a decoded
// distribution cache. The cache carries the distribution files inline as
// a sequence; later files extend earlier ones.
func repositoriesFromCache(url string, cache *manifest.Value) (*manifest.Value, error) {
	files, ok := cache.Get("distribution_file")
	if !ok || files.Kind() != manifest.KindSequence || files.Len() == 0 {
		return nil, errors.NewFetchError(url, 0, "distribution cache has no distribution_file entries")
	}

	repos := manifest.NewMapping()
	for _, file := range files.Sequence() {
		if file.Kind() != manifest.KindMapping {
			continue
		}
		r, ok := file.Get("repositories")
		if !ok || r.Kind() != manifest.KindMapping {
			continue
		}
		for _, name := range r.Keys() {
			v, _ := r.Get(name)
			repos.Set(name, v)
		}
	}
	if repos.Len() == 0 {
		return nil, errors.NewFetchError(url, 0, "distribution cache declares no repositories")
	}
	return repos, nil
}

// fetch downloads url, consulting and refreshing the on-disk cache.
// Gzipped documents are decompressed before caching. Cache read/write
// failures degrade to warnings; download failures are fatal.
func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	cachePath := c.cachePath(url)

	if data, ok := c.readCache(cachePath); ok {
		c.logger.Debug().Str("url", url).Msg("using cached document")
		return data, nil
	}

	c.logger.Info().Str("url", url).Msg("downloading")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapFetch(url, "cannot build request", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.WrapFetch(url, "download failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewFetchError(url, resp.StatusCode, resp.Status)
	}

	var body io.Reader = resp.Body
	if strings.HasSuffix(url, ".gz") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, errors.WrapFetch(url, "cannot decompress response", err)
		}
		defer func() { _ = gz.Close() }()
		body = gz
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.WrapFetch(url, "cannot read response", err)
	}

	c.writeCache(cachePath, data)
	return data, nil
}

// cachePath derives a stable cache file name from the URL.
func (c *Client) cachePath(url string) string {
	if c.cacheDir == "" || c.ttl <= 0 {
		return ""
	}
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.cacheDir, hex.EncodeToString(sum[:8])+".yaml")
}

func (c *Client) readCache(path string) ([]byte, bool) {
	if path == "" {
		return nil, false
	}
	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) > c.ttl {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("cannot read cache file")
		return nil, false
	}
	return data, true
}

func (c *Client) writeCache(path string, data []byte) {
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("cannot create cache directory")
		return
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "fetch_*.yaml")
	if err != nil {
		c.logger.Warn().Err(err).Msg("cannot create cache temp file")
		return
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		c.logger.Warn().Err(err).Msg("cannot write cache temp file")
		return
	}
	_ = tmp.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		c.logger.Warn().Err(err).Str("path", path).Msg("cannot finalize cache file")
	}
}
