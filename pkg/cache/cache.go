// Package cache implements kam's on-disk module cache: a single root
// directory with fixed subdirectories for binaries, module libraries,
// logs, shell profiles and bundled templates.
//
// The root is resolved once per Cache from an explicit override, the
// on-device platform heuristic, or an XDG data-directory fallback, and
// all addressing below it is deterministic.
package cache

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/xdg"

	"github.com/kam-pm/kam/pkg/archive"
	"github.com/kam-pm/kam/pkg/assets"
	"github.com/kam-pm/kam/pkg/errors"
	"github.com/kam-pm/kam/pkg/filesystem"
	"github.com/kam-pm/kam/pkg/logging"
)

// Environment variable names
const (
	// EnvCacheRoot overrides the cache root directory. Relative values
	// are resolved against the current working directory.
	EnvCacheRoot = "KAM_CACHE_ROOT"
)

// Cache layout constants
const (
	// PlatformProbePath, when present, marks an on-device rooted
	// environment and selects PlatformRoot as the cache root.
	PlatformProbePath = "/data/adb"

	// PlatformRoot is the cache root used on-device.
	PlatformRoot = "/data/adb/kam"

	// KamDirName is the directory name for kam-specific files under
	// the XDG data home.
	KamDirName = "kam"

	// BinDirName holds linked executables.
	BinDirName = "bin"

	// LibDirName holds cached module directories.
	LibDirName = "lib"

	// LogDirName holds log files.
	LogDirName = "log"

	// ProfileDirName holds shell profile fragments.
	ProfileDirName = "profile"

	// TmplDirName holds bundled template archives and their extracted
	// directories.
	TmplDirName = "tmpl"
)

// Subdirs are the fixed subdirectories of the cache root.
var Subdirs = []string{BinDirName, LibDirName, LogDirName, ProfileDirName, TmplDirName}

// Stats summarizes cache disk usage. Diagnostic only.
type Stats struct {
	TotalBytes int64
	FileCount  int
}

// Cache is a module cache rooted at a single directory.
type Cache struct {
	root string
	fs   filesystem.FS
}

// New resolves the cache root and returns a Cache. Resolution order:
// explicit override argument, KAM_CACHE_ROOT, the platform heuristic,
// then the XDG data directory. Nothing is created until EnsureDirs.
func New(override string, fsys filesystem.FS) (*Cache, error) {
	if fsys == nil {
		fsys = filesystem.NewOS()
	}

	root, err := resolveRoot(override, fsys)
	if err != nil {
		return nil, err
	}

	return &Cache{root: root, fs: fsys}, nil
}

func resolveRoot(override string, fsys filesystem.FS) (string, error) {
	if override == "" {
		override = os.Getenv(EnvCacheRoot)
	}
	if override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return "", errors.Wrapf(err, errors.ErrFileAccess, "failed to absolutize cache root %q", override)
		}
		return abs, nil
	}

	if info, err := fsys.Stat(PlatformProbePath); err == nil && info.IsDir() {
		return PlatformRoot, nil
	}

	if xdg.DataHome != "" {
		return filepath.Join(xdg.DataHome, KamDirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, errors.ErrFileAccess, "cannot determine cache root: no override, platform path or home directory")
	}
	return filepath.Join(home, ".local", "share", KamDirName), nil
}

// Root returns the resolved cache root.
func (c *Cache) Root() string { return c.root }

// BinDir returns the linked-executables directory.
func (c *Cache) BinDir() string { return filepath.Join(c.root, BinDirName) }

// LibDir returns the cached-modules directory.
func (c *Cache) LibDir() string { return filepath.Join(c.root, LibDirName) }

// LogDir returns the log directory.
func (c *Cache) LogDir() string { return filepath.Join(c.root, LogDirName) }

// ProfileDir returns the shell-profile directory.
func (c *Cache) ProfileDir() string { return filepath.Join(c.root, ProfileDirName) }

// TmplDir returns the bundled-templates directory.
func (c *Cache) TmplDir() string { return filepath.Join(c.root, TmplDirName) }

// ModulePath is the deterministic cache location for a module. It is a
// pure function of (id, version); no hashing is involved, so colliding
// ids from different sources share (and overwrite) one directory.
func (c *Cache) ModulePath(id, version string) string {
	return filepath.Join(c.LibDir(), id+"-"+version)
}

// TemplateArchivePath is where a bundled archive is materialized.
func (c *Cache) TemplateArchivePath(a assets.Archive) string {
	return filepath.Join(c.TmplDir(), a.Filename())
}

// TemplateDir is where a bundled archive is extracted.
func (c *Cache) TemplateDir(name string) string {
	return filepath.Join(c.TmplDir(), name)
}

// EnsureDirs creates the root and all fixed subdirectories, then
// materializes the bundled template archives: the archive file is
// written if absent and extracted if its directory is absent. The two
// checks are independent so an interrupted prior run self-heals here
// without redoing completed work.
func (c *Cache) EnsureDirs() error {
	logger := logging.GetLogger("cache")

	for _, dir := range append([]string{c.root}, c.subdirPaths()...) {
		if err := c.fs.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, errors.ErrDirCreate, "failed to create cache directory %s", dir)
		}
	}

	for _, tmpl := range assets.Templates() {
		archivePath := c.TemplateArchivePath(tmpl)
		if _, err := c.fs.Stat(archivePath); err != nil {
			if !os.IsNotExist(err) {
				return errors.Wrapf(err, errors.ErrFileAccess, "failed to check template archive %s", archivePath)
			}
			if err := c.fs.WriteFile(archivePath, tmpl.Data, 0644); err != nil {
				return errors.Wrapf(err, errors.ErrFileWrite, "failed to materialize template archive %s", archivePath)
			}
			logger.Debug().Str("archive", archivePath).Msg("Materialized bundled template archive")
		}

		extractedDir := c.TemplateDir(tmpl.Name)
		if _, err := c.fs.Stat(extractedDir); err != nil {
			if !os.IsNotExist(err) {
				return errors.Wrapf(err, errors.ErrFileAccess, "failed to check template directory %s", extractedDir)
			}
			if err := archive.Extract(tmpl.Data, tmpl.Filename(), extractedDir); err != nil {
				return err
			}
			logger.Debug().Str("dir", extractedDir).Msg("Extracted bundled template")
		}
	}

	return nil
}

// InstalledVersions lists the cached versions of a module id, sorted
// ascending lexicographically. The caller picks "latest" as the last
// element; this is explicitly not semver-aware.
func (c *Cache) InstalledVersions(id string) ([]string, error) {
	entries, err := c.fs.ReadDir(c.LibDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to read %s", c.LibDir())
	}

	prefix := id + "-"
	var versions []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if version, ok := strings.CutPrefix(entry.Name(), prefix); ok && version != "" {
			versions = append(versions, version)
		}
	}
	sort.Strings(versions)
	return versions, nil
}

// Stats walks the cache root and reports aggregate size and file count.
func (c *Cache) Stats() (Stats, error) {
	var stats Stats
	if err := c.walk(c.root, &stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func (c *Cache) walk(dir string, stats *Stats) error {
	entries, err := c.fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to read %s", dir)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if err := c.walk(path, stats); err != nil {
				return err
			}
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.FileCount++
		stats.TotalBytes += info.Size()
	}

	return nil
}

// ClearAll removes the entire cache root. A following EnsureDirs
// rebuilds the empty structure.
func (c *Cache) ClearAll() error {
	if err := c.fs.RemoveAll(c.root); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to clear cache root %s", c.root)
	}
	return nil
}

// ClearSubdir removes one fixed subdirectory's contents and recreates
// the empty directory immediately.
func (c *Cache) ClearSubdir(name string) error {
	if !isSubdir(name) {
		return errors.Newf(errors.ErrInvalidInput, "unknown cache subdirectory %q", name)
	}

	dir := filepath.Join(c.root, name)
	if err := c.fs.RemoveAll(dir); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to clear %s", dir)
	}
	if err := c.fs.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "failed to recreate %s", dir)
	}
	return nil
}

func (c *Cache) subdirPaths() []string {
	paths := make([]string, len(Subdirs))
	for i, name := range Subdirs {
		paths[i] = filepath.Join(c.root, name)
	}
	return paths
}

func isSubdir(name string) bool {
	for _, s := range Subdirs {
		if s == name {
			return true
		}
	}
	return false
}
