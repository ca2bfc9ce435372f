// Package venv builds and maintains disposable per-project execution
// environments: a bin/lib link farm over the module cache, created from
// a bundled template. An environment is owned by its project and is
// rebuilt wholesale rather than migrated.
package venv

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/kam-pm/kam/pkg/cache"
	"github.com/kam-pm/kam/pkg/errors"
	"github.com/kam-pm/kam/pkg/filesystem"
	"github.com/kam-pm/kam/pkg/logging"
)

// MarkerFileName is the hidden type marker. Its presence makes the
// environment a Development one; its absence implies Runtime. Once
// written it is authoritative for Load without any external state.
const MarkerFileName = ".kamenv"

// Type classifies an environment.
type Type string

// Environment types.
const (
	Development Type = "development"
	Runtime     Type = "runtime"
)

// Subdirectory names inside an environment.
const (
	BinDirName = "bin"
	LibDirName = "lib"
)

// Venv is a per-project linked environment.
type Venv struct {
	root   string
	typ    Type
	fs     filesystem.FS
	logger zerolog.Logger
}

// Create builds an environment at root from the bundled template,
// writing the type marker and applying placeholder substitution. The
// template is located in the cache tmpl directory by trying, in order,
// a gzip-tar archive, a plain tar, a zip, then a pre-extracted
// directory; none found is fatal with no generated fallback.
func Create(root string, typ Type, c *cache.Cache, fsys filesystem.FS) (*Venv, error) {
	if fsys == nil {
		fsys = filesystem.NewOS()
	}
	logger := logging.GetLogger("venv")

	if err := fsys.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrDirCreate, "failed to create environment root %s", root)
	}

	if typ == Development {
		marker := filepath.Join(root, MarkerFileName)
		if err := fsys.WriteFile(marker, []byte(string(typ)+"\n"), 0644); err != nil {
			return nil, errors.Wrapf(err, errors.ErrFileWrite, "failed to write type marker %s", marker)
		}
	}

	vars := TemplateVars()
	if err := materializeTemplate(root, c, fsys, vars); err != nil {
		return nil, err
	}

	// Guarantee the link-farm layout even if a custom template omits it.
	for _, sub := range []string{BinDirName, LibDirName} {
		if err := fsys.MkdirAll(filepath.Join(root, sub), 0755); err != nil {
			return nil, errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", filepath.Join(root, sub))
		}
	}

	logger.Info().Str("root", root).Str("type", string(typ)).Msg("Environment created")

	return &Venv{root: root, typ: typ, fs: fsys, logger: logger}, nil
}

// Recreate removes any existing environment at root and builds a fresh
// one. There is no incremental migration between environments.
func Recreate(root string, typ Type, c *cache.Cache, fsys filesystem.FS) (*Venv, error) {
	if fsys == nil {
		fsys = filesystem.NewOS()
	}
	if err := fsys.RemoveAll(root); err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to remove environment %s", root)
	}
	return Create(root, typ, c, fsys)
}

// Load opens an existing environment. The type is inferred from the
// marker file alone.
func Load(root string, fsys filesystem.FS) (*Venv, error) {
	if fsys == nil {
		fsys = filesystem.NewOS()
	}

	if _, err := fsys.Stat(root); err != nil {
		return nil, errors.Wrapf(err, errors.ErrVenvNotFound, "no environment at %s", root)
	}

	typ := Runtime
	if _, err := fsys.Stat(filepath.Join(root, MarkerFileName)); err == nil {
		typ = Development
	}

	return &Venv{root: root, typ: typ, fs: fsys, logger: logging.GetLogger("venv")}, nil
}

// Root returns the environment root directory.
func (v *Venv) Root() string { return v.root }

// Type returns the environment type.
func (v *Venv) Type() Type { return v.typ }

// BinDir returns the linked-binaries directory.
func (v *Venv) BinDir() string { return filepath.Join(v.root, BinDirName) }

// LibDir returns the linked-libraries directory.
func (v *Venv) LibDir() string { return filepath.Join(v.root, LibDirName) }

// LinkBinary exposes sourcePath under bin/, replacing any existing
// entry of the same name. Symlink preferred, full copy as fallback.
func (v *Venv) LinkBinary(sourcePath string) error {
	if _, err := v.fs.Stat(sourcePath); err != nil {
		return errors.Wrapf(err, errors.ErrLinkSourceMissing, "binary %s does not exist", sourcePath)
	}

	dest := filepath.Join(v.BinDir(), filepath.Base(sourcePath))
	if err := filesystem.LinkFile(v.fs, sourcePath, dest); err != nil {
		return errors.Wrapf(err, errors.ErrSymlinkCreate, "failed to link %s", sourcePath)
	}

	v.logger.Debug().Str("source", sourcePath).Str("dest", dest).Msg("Binary linked")
	return nil
}

// LinkLibrary exposes a cached module's tree under lib/, wholesale.
// The destination is keyed by id alone so relinking a different
// version replaces the previous one entirely.
func (v *Venv) LinkLibrary(id, version string, c *cache.Cache) error {
	source := c.ModulePath(id, version)
	if _, err := v.fs.Stat(source); err != nil {
		return errors.Wrapf(err, errors.ErrLinkSourceMissing, "module %s-%s is not cached", id, version)
	}

	dest := filepath.Join(v.LibDir(), id)
	if err := filesystem.LinkTree(v.fs, source, dest); err != nil {
		return errors.Wrapf(err, errors.ErrSymlinkCreate, "failed to link module %s-%s", id, version)
	}

	v.logger.Debug().Str("id", id).Str("version", version).Str("dest", dest).Msg("Library linked")
	return nil
}
