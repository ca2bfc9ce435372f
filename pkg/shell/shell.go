// Package shell generates and installs the profile fragment that puts
// the cache's bin directory on PATH and exports the cache root.
package shell

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kam-pm/kam/pkg/cache"
	"github.com/kam-pm/kam/pkg/errors"
	"github.com/kam-pm/kam/pkg/filesystem"
	"github.com/kam-pm/kam/pkg/logging"
)

// FragmentName is the file written into the cache profile directory.
const FragmentName = "kam.sh"

const fragmentTemplate = `# kam shell integration. Source this from your shell profile:
#   . %s
export KAM_CACHE_ROOT="%s"
case ":$PATH:" in
  *":%s:"*) ;;
  *) export PATH="%s:$PATH" ;;
esac
`

// Fragment returns the sourceable profile snippet for the cache.
func Fragment(c *cache.Cache) string {
	installed := filepath.Join(c.ProfileDir(), FragmentName)
	return fmt.Sprintf(fragmentTemplate, installed, c.Root(), c.BinDir(), c.BinDir())
}

// Install writes the fragment into the cache profile directory and
// returns its path. Installing is idempotent.
func Install(c *cache.Cache, fsys filesystem.FS) (string, error) {
	if fsys == nil {
		fsys = filesystem.NewOS()
	}

	dest := filepath.Join(c.ProfileDir(), FragmentName)
	if err := fsys.MkdirAll(c.ProfileDir(), 0755); err != nil {
		return "", errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", c.ProfileDir())
	}
	if err := fsys.WriteFile(dest, []byte(Fragment(c)), 0644); err != nil {
		return "", errors.Wrapf(err, errors.ErrFileWrite, "failed to write %s", dest)
	}

	logger := logging.GetLogger("shell")
	logger.Info().Str("path", dest).Msg("installed profile fragment")
	return dest, nil
}

// SourceLine is the single line users add to their shell profile.
func SourceLine(c *cache.Cache) string {
	return strings.TrimSpace(fmt.Sprintf(". %s", filepath.Join(c.ProfileDir(), FragmentName)))
}
