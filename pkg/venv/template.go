package venv

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kam-pm/kam/pkg/archive"
	"github.com/kam-pm/kam/pkg/assets"
	"github.com/kam-pm/kam/pkg/cache"
	"github.com/kam-pm/kam/pkg/errors"
	"github.com/kam-pm/kam/pkg/filesystem"
)

// EnvVarPrefix is the prefix for custom template substitution
// overrides: KAM_VAR_FOO populates {{foo}}.
const EnvVarPrefix = "KAM_VAR_"

// templateCandidates are the template spellings tried in order inside
// the cache tmpl directory. First found wins.
var templateCandidates = []string{
	assets.VenvTemplateName + ".tar.gz",
	assets.VenvTemplateName + ".tar",
	assets.VenvTemplateName + ".zip",
	assets.VenvTemplateName, // pre-extracted directory
}

// TemplateVars builds the placeholder substitution map: project
// metadata from the environment (id defaulting to the working
// directory's name), merged with KAM_VAR_* overrides.
func TemplateVars() map[string]string {
	id := os.Getenv("KAM_MODULE_ID")
	if id == "" {
		if cwd, err := os.Getwd(); err == nil {
			id = filepath.Base(cwd)
		}
	}

	vars := map[string]string{
		"id":      id,
		"name":    os.Getenv("KAM_MODULE_NAME"),
		"version": os.Getenv("KAM_MODULE_VERSION"),
		"author":  os.Getenv("KAM_MODULE_AUTHOR"),
	}

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if name, found := strings.CutPrefix(key, EnvVarPrefix); found && name != "" {
			vars[strings.ToLower(name)] = value
		}
	}

	return vars
}

// substitute replaces every {{key}} placeholder present in vars.
func substitute(s string, vars map[string]string) string {
	for key, value := range vars {
		s = strings.ReplaceAll(s, "{{"+key+"}}", value)
	}
	return s
}

// materializeTemplate locates the environment template and expands it
// into root, substituting placeholders in both path segments and file
// contents.
func materializeTemplate(root string, c *cache.Cache, fsys filesystem.FS, vars map[string]string) error {
	tf := archive.Transform{
		Path:    func(p string) string { return substitute(p, vars) },
		Content: func(b []byte) []byte { return []byte(substitute(string(b), vars)) },
	}

	for _, name := range templateCandidates {
		candidate := filepath.Join(c.TmplDir(), name)
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}

		if info.IsDir() {
			return copyTemplateDir(fsys, candidate, root, vars)
		}

		data, err := os.ReadFile(candidate)
		if err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "failed to read template %s", candidate)
		}
		return archive.ExtractWith(data, name, root, tf)
	}

	return errors.Newf(errors.ErrTemplateNotFound,
		"no environment template found under %s", c.TmplDir())
}

// copyTemplateDir expands a pre-extracted template directory with the
// same substitution rules as archive extraction.
func copyTemplateDir(fsys filesystem.FS, source, dest string, vars map[string]string) error {
	entries, err := fsys.ReadDir(source)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to read template directory %s", source)
	}

	if err := fsys.MkdirAll(dest, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", dest)
	}

	for _, entry := range entries {
		srcPath := filepath.Join(source, entry.Name())
		dstPath := filepath.Join(dest, substitute(entry.Name(), vars))

		if entry.IsDir() {
			if err := copyTemplateDir(fsys, srcPath, dstPath, vars); err != nil {
				return err
			}
			continue
		}

		data, err := fsys.ReadFile(srcPath)
		if err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "failed to read %s", srcPath)
		}
		data = []byte(substitute(string(data), vars))

		mode := os.FileMode(0644)
		if info, err := fsys.Stat(srcPath); err == nil {
			mode = info.Mode().Perm()
		}
		if err := fsys.WriteFile(dstPath, data, mode); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite, "failed to write %s", dstPath)
		}
	}

	return nil
}
