package fetch

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/kam-pm/kam/pkg/errors"
)

// LatestFileName is the per-id index file mirroring the newest
// version's metadata.
const LatestFileName = "latest.json"

// conventionalRepoDirs are probed, relative to the working directory,
// when no local repository path is configured.
var conventionalRepoDirs = []string{"kam-repo", filepath.Join("..", "kam-repo")}

// IndexEntry is the per-version metadata stored in a local repository
// index.
type IndexEntry struct {
	ID          string   `json:"id"`
	Version     string   `json:"version"`
	VersionCode int      `json:"versionCode"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	Provides    []string `json:"provides"`
	Filename    string   `json:"filename"`
	Timestamp   int64    `json:"timestamp"`
}

// ShardPath returns the index directory for an id, relative to the
// repository root. Sharding follows the id's length: single-character
// ids live under "1", two-character ids under "2", three-character ids
// under "3/{first}", and longer ids under two levels keyed by the
// first two character pairs.
func ShardPath(id string) string {
	switch len(id) {
	case 0:
		return ""
	case 1:
		return filepath.Join("1", id)
	case 2:
		return filepath.Join("2", id)
	case 3:
		return filepath.Join("3", id[:1], id)
	default:
		return filepath.Join(id[0:2], id[2:4], id)
	}
}

// localRepo is a sharded on-disk module repository.
type localRepo struct {
	root string
}

// findLocalRepo picks the local repository root: the configured path if
// set, otherwise the first conventional location that exists. Returns
// nil when none applies.
func findLocalRepo(configured string) *localRepo {
	if configured != "" {
		return &localRepo{root: configured}
	}
	for _, dir := range conventionalRepoDirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return &localRepo{root: dir}
		}
	}
	return nil
}

// entryDir returns the index directory for an id.
func (r *localRepo) entryDir(id string) string {
	return filepath.Join(r.root, ShardPath(id))
}

// lookup reads the metadata for (id, version). An empty or "latest"
// version trusts the index's own latest.json rather than guessing.
func (r *localRepo) lookup(id, version string) (*IndexEntry, error) {
	name := LatestFileName
	if version != "" && version != "latest" {
		name = version + ".json"
	}

	path := filepath.Join(r.entryDir(id), name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrModuleNotFound, "module %s@%s not in local repository %s", id, version, r.root)
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to read index entry %s", path)
	}

	var entry IndexEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "malformed index entry %s", path)
	}

	return &entry, nil
}

// archivePath returns the package archive location for an index entry.
// Archives sit next to the metadata in the id's directory.
func (r *localRepo) archivePath(entry *IndexEntry) string {
	return filepath.Join(r.entryDir(entry.ID), entry.Filename)
}
