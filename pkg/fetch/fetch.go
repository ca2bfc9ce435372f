// Package fetch acquires module archives from ranked source candidates
// and materializes them in the module cache.
//
// A fetch evaluates candidates strictly in order: an explicit override
// source, the local repository, then the configured network source.
// Individual candidate failures are logged and skipped, not fatal; the
// call fails only once every candidate is exhausted.
package fetch

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kam-pm/kam/pkg/archive"
	"github.com/kam-pm/kam/pkg/cache"
	"github.com/kam-pm/kam/pkg/config"
	"github.com/kam-pm/kam/pkg/errors"
	"github.com/kam-pm/kam/pkg/logging"
	"github.com/kam-pm/kam/pkg/manifest"
)

// MarkerFileName is the completion marker written inside a cache entry
// after a successful fetch. Its presence, not the directory's mere
// existence, is what distinguishes a fully fetched module from an
// interrupted extraction.
const MarkerFileName = ".kam_origin"

// Origin records where a cached module came from.
type Origin struct {
	Kind      string `json:"kind"`
	Source    string `json:"source"`
	Timestamp int64  `json:"timestamp"`
}

// Origin kinds.
const (
	OriginOverride = "override"
	OriginLocal    = "local"
	OriginNetwork  = "network"
)

// Options adjust a single fetch.
type Options struct {
	// Override is a CLI-level source (path or URL) tried before every
	// other candidate.
	Override string

	// Force refetches even when a completed cache entry exists.
	Force bool
}

// Result describes the outcome of an Ensure call.
type Result struct {
	ID      string
	Version string
	Path    string
	Fetched bool
	Origin  string
}

// Fetcher guarantees cache entries for requested modules.
type Fetcher struct {
	cache  *cache.Cache
	cfg    *config.Config
	client *http.Client
	token  string
	logger zerolog.Logger
}

// New creates a Fetcher over the given cache and configuration.
func New(c *cache.Cache, cfg *config.Config) *Fetcher {
	return NewWithClient(c, cfg, &http.Client{})
}

// NewWithClient is New with an explicit HTTP client, used by tests.
func NewWithClient(c *cache.Cache, cfg *config.Config, client *http.Client) *Fetcher {
	return &Fetcher{
		cache:  c,
		cfg:    cfg,
		client: client,
		token:  cfg.Auth.Token,
		logger: logging.GetLogger("fetch"),
	}
}

// Cache exposes the backing cache, for callers that link fetched
// modules elsewhere.
func (f *Fetcher) Cache() *cache.Cache { return f.cache }

// IsPresent reports whether a completed cache entry exists for
// (id, version): the directory must exist and carry the completion
// marker.
func (f *Fetcher) IsPresent(id, version string) bool {
	marker := filepath.Join(f.cache.ModulePath(id, version), MarkerFileName)
	_, err := os.Stat(marker)
	return err == nil
}

// ReadOrigin returns the provenance recorded for a cached module.
func (f *Fetcher) ReadOrigin(id, version string) (*Origin, error) {
	marker := filepath.Join(f.cache.ModulePath(id, version), MarkerFileName)
	data, err := os.ReadFile(marker)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "no completion marker for %s-%s", id, version)
	}
	var origin Origin
	if err := json.Unmarshal(data, &origin); err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "malformed completion marker for %s-%s", id, version)
	}
	return &origin, nil
}

// Ensure guarantees a completed cache entry for the dependency,
// fetching it if needed. The returned result names the concrete
// version that was materialized (relevant when "latest" was asked).
func (f *Fetcher) Ensure(dep manifest.Dependency, opts Options) (*Result, error) {
	if dep.ID == "" {
		return nil, errors.New(errors.ErrInvalidInput, "empty module id")
	}

	version := dep.Version
	if version == "latest" {
		version = ""
	}

	// Latest against an already-populated cache: the lexicographically
	// greatest completed version wins, with no network involved.
	if version == "" && !opts.Force {
		if cached := f.latestCached(dep.ID); cached != "" {
			return &Result{
				ID:      dep.ID,
				Version: cached,
				Path:    f.cache.ModulePath(dep.ID, cached),
				Fetched: false,
			}, nil
		}
	}

	if version != "" && !opts.Force && f.IsPresent(dep.ID, version) {
		return &Result{
			ID:      dep.ID,
			Version: version,
			Path:    f.cache.ModulePath(dep.ID, version),
			Fetched: false,
		}, nil
	}

	return f.acquire(dep, version, opts)
}

// acquire walks the candidate chain until one yields a usable archive.
func (f *Fetcher) acquire(dep manifest.Dependency, version string, opts Options) (*Result, error) {
	var attempted []string

	type candidate struct {
		describe string
		run      func() (*Result, error)
	}

	var candidates []candidate

	explicit := opts.Override
	if explicit == "" {
		explicit = dep.Source
	}
	if explicit != "" {
		candidates = append(candidates, candidate{
			describe: "override " + explicit,
			run:      func() (*Result, error) { return f.fromOverride(dep.ID, version, explicit) },
		})
	}

	if repo := findLocalRepo(f.cfg.Sources.LocalRepo); repo != nil {
		candidates = append(candidates, candidate{
			describe: "local repository " + repo.root,
			run:      func() (*Result, error) { return f.fromLocalRepo(dep.ID, version, repo, OriginLocal) },
		})
	}

	if f.cfg.Sources.Default != "" {
		candidates = append(candidates, candidate{
			describe: "network source " + f.cfg.Sources.Default,
			run:      func() (*Result, error) { return f.fromNetwork(dep.ID, version, f.cfg.Sources.Default) },
		})
	}

	for _, cand := range candidates {
		result, err := cand.run()
		if err == nil {
			return result, nil
		}
		// A bad archive format is a property of the module itself, not
		// of the candidate; no other candidate can fix it.
		if errors.IsErrorCode(err, errors.ErrUnsupportedFormat) {
			return nil, err
		}
		f.logger.Debug().
			Str("id", dep.ID).
			Str("candidate", cand.describe).
			Err(err).
			Msg("Candidate did not yield the module")
		attempted = append(attempted, cand.describe)
	}

	return nil, errors.Newf(errors.ErrModuleNotFound,
		"module %s@%s not found after trying %d candidates", dep.ID, versionOrLatest(version), len(attempted)).
		WithDetail("attempted", attempted)
}

// fromOverride handles an explicit source: a URL is probed like a
// network source, a directory is treated as a local repository root,
// and a file is consumed as the module archive itself.
func (f *Fetcher) fromOverride(id, version, source string) (*Result, error) {
	if isURL(source) {
		return f.fromNetwork(id, version, source)
	}

	info, err := os.Stat(source)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "override source %s not accessible", source)
	}

	if info.IsDir() {
		return f.fromLocalRepo(id, version, &localRepo{root: source}, OriginOverride)
	}

	if !archive.IsFetchFormat(source) {
		return nil, errors.Newf(errors.ErrUnsupportedFormat, "override archive %s has an unsupported format", source)
	}

	resolved := version
	if resolved == "" {
		resolved = versionFromFilename(id, filepath.Base(source))
		if resolved == "" {
			return nil, errors.Newf(errors.ErrInvalidInput,
				"cannot infer version of %s from %s; pin a version", id, source)
		}
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to read archive %s", source)
	}

	return f.install(id, resolved, filepath.Base(source), data, OriginOverride, source)
}

// fromLocalRepo consults the sharded index. The index's own latest.json
// is authoritative for "latest" here.
func (f *Fetcher) fromLocalRepo(id, version string, repo *localRepo, originKind string) (*Result, error) {
	entry, err := repo.lookup(id, version)
	if err != nil {
		return nil, err
	}

	archivePath := repo.archivePath(entry)
	if !archive.IsFetchFormat(archivePath) {
		return nil, errors.Newf(errors.ErrUnsupportedFormat, "repository archive %s has an unsupported format", entry.Filename)
	}

	data, err := os.ReadFile(archivePath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to read repository archive %s", archivePath)
	}

	return f.install(entry.ID, entry.Version, entry.Filename, data, originKind, archivePath)
}

// fromNetwork probes the ranked URL candidates sequentially; the first
// success wins. Probing failures are swallowed per-candidate and only
// surface as the aggregate error.
func (f *Fetcher) fromNetwork(id, version, source string) (*Result, error) {
	if version == "" {
		return nil, errors.Newf(errors.ErrModuleNotFound,
			"cannot resolve latest %s from network source; pin a version or provide a repository index", id)
	}

	var lastErr error
	for _, url := range candidateURLs(source, id, version) {
		data, err := f.probe(url)
		if err != nil {
			f.logger.Trace().Str("url", url).Err(err).Msg("Probe missed")
			lastErr = err
			continue
		}
		return f.install(id, version, filepath.Base(url), data, OriginNetwork, url)
	}

	return nil, errors.Wrapf(lastErr, errors.ErrNetwork, "every network candidate for %s-%s failed", id, version)
}

// install extracts archive bytes straight into the deterministic cache
// path and writes the completion marker. A fresh fetch fully overwrites
// any prior entry; there is no temp-then-rename staging, so an
// interrupted extraction leaves a partial entry without a marker.
func (f *Fetcher) install(id, version, filename string, data []byte, originKind, source string) (*Result, error) {
	dest := f.cache.ModulePath(id, version)

	if err := os.RemoveAll(dest); err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to clear %s for fresh fetch", dest)
	}

	if err := archive.Extract(data, filename, dest); err != nil {
		return nil, err
	}

	origin := Origin{Kind: originKind, Source: source, Timestamp: time.Now().Unix()}
	marker, err := json.Marshal(origin)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to encode completion marker")
	}
	if err := os.WriteFile(filepath.Join(dest, MarkerFileName), marker, 0644); err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileWrite, "failed to write completion marker in %s", dest)
	}

	f.logger.Info().
		Str("id", id).
		Str("version", version).
		Str("origin", originKind).
		Msg("Module fetched")

	return &Result{
		ID:      id,
		Version: version,
		Path:    dest,
		Fetched: true,
		Origin:  originKind,
	}, nil
}

// latestCached returns the lexicographically greatest completed cached
// version of id, or "".
func (f *Fetcher) latestCached(id string) string {
	versions, err := f.cache.InstalledVersions(id)
	if err != nil {
		return ""
	}
	for i := len(versions) - 1; i >= 0; i-- {
		if f.IsPresent(id, versions[i]) {
			return versions[i]
		}
	}
	return ""
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func versionFromFilename(id, filename string) string {
	base := strings.TrimSuffix(filename, archive.Ext(filename))
	if rest, ok := strings.CutPrefix(base, id+"-"); ok && rest != "" {
		return rest
	}
	return ""
}

func versionOrLatest(version string) string {
	if version == "" {
		return "latest"
	}
	return version
}
