package cache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kam-pm/kam/pkg/cache"
	"github.com/kam-pm/kam/pkg/errors"
	"github.com/kam-pm/kam/pkg/filesystem"
)

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	root := t.TempDir()
	c, err := cache.New(root, filesystem.NewOS())
	require.NoError(t, err)
	return c
}

func TestRootResolution(t *testing.T) {
	t.Run("explicit override wins", func(t *testing.T) {
		root := t.TempDir()
		c, err := cache.New(root, nil)
		require.NoError(t, err)
		assert.Equal(t, root, c.Root())
	})

	t.Run("env override", func(t *testing.T) {
		root := t.TempDir()
		t.Setenv(cache.EnvCacheRoot, root)
		c, err := cache.New("", nil)
		require.NoError(t, err)
		assert.Equal(t, root, c.Root())
	})

	t.Run("relative override resolved against cwd", func(t *testing.T) {
		t.Setenv(cache.EnvCacheRoot, "rel-cache")
		c, err := cache.New("", nil)
		require.NoError(t, err)
		cwd, _ := os.Getwd()
		assert.Equal(t, filepath.Join(cwd, "rel-cache"), c.Root())
	})

	t.Run("platform heuristic", func(t *testing.T) {
		t.Setenv(cache.EnvCacheRoot, "")
		memFs := afero.NewMemMapFs()
		require.NoError(t, memFs.MkdirAll(cache.PlatformProbePath, 0755))

		c, err := cache.New("", filesystem.NewAferoFS(memFs))
		require.NoError(t, err)
		assert.Equal(t, cache.PlatformRoot, c.Root())
	})

	t.Run("home fallback without platform path", func(t *testing.T) {
		t.Setenv(cache.EnvCacheRoot, "")
		c, err := cache.New("", filesystem.NewAferoFS(afero.NewMemMapFs()))
		require.NoError(t, err)
		assert.Contains(t, c.Root(), cache.KamDirName)
		assert.True(t, filepath.IsAbs(c.Root()))
	})
}

func TestModulePathIsPure(t *testing.T) {
	c := newTestCache(t)

	first := c.ModulePath("busybox", "1.36.1")
	assert.Equal(t, filepath.Join(c.Root(), "lib", "busybox-1.36.1"), first)

	// Same inputs, same path, regardless of call order or cache state.
	require.NoError(t, c.EnsureDirs())
	_ = c.ModulePath("other", "2.0")
	assert.Equal(t, first, c.ModulePath("busybox", "1.36.1"))
}

func TestEnsureDirs(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.EnsureDirs())

	for _, sub := range cache.Subdirs {
		info, err := os.Stat(filepath.Join(c.Root(), sub))
		require.NoError(t, err, sub)
		assert.True(t, info.IsDir())
	}

	// Bundled templates are materialized both as archive and extracted dir.
	_, err := os.Stat(filepath.Join(c.TmplDir(), "venv.tar.gz"))
	assert.NoError(t, err)
	info, err := os.Stat(c.TemplateDir("venv"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestEnsureDirsIdempotent(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.EnsureDirs())

	statsBefore, err := c.Stats()
	require.NoError(t, err)

	require.NoError(t, c.EnsureDirs())

	statsAfter, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, statsBefore, statsAfter)
}

func TestEnsureDirsSelfHeals(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.EnsureDirs())

	// Simulate an interrupted run: extracted dir lost, archive kept.
	require.NoError(t, os.RemoveAll(c.TemplateDir("venv")))

	require.NoError(t, c.EnsureDirs())
	_, err := os.Stat(filepath.Join(c.TemplateDir("venv"), "env.prop"))
	assert.NoError(t, err)
}

func TestInstalledVersions(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.EnsureDirs())

	for _, v := range []string{"1.9.0", "1.10.0", "2.0.0"} {
		require.NoError(t, os.MkdirAll(c.ModulePath("busybox", v), 0755))
	}
	require.NoError(t, os.MkdirAll(c.ModulePath("other", "5.0"), 0755))

	versions, err := c.InstalledVersions("busybox")
	require.NoError(t, err)
	// Lexicographic, not semver: "1.10.0" sorts before "1.9.0".
	assert.Equal(t, []string{"1.10.0", "1.9.0", "2.0.0"}, versions)

	none, err := c.InstalledVersions("missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStats(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.EnsureDirs())

	modDir := c.ModulePath("demo", "1.0")
	require.NoError(t, os.MkdirAll(modDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(modDir, "module.prop"), []byte("id=demo\n"), 0644))

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Greater(t, stats.FileCount, 0)
	assert.Greater(t, stats.TotalBytes, int64(0))
}

func TestClearSubdir(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.EnsureDirs())

	modDir := c.ModulePath("demo", "1.0")
	require.NoError(t, os.MkdirAll(modDir, 0755))

	require.NoError(t, c.ClearSubdir(cache.LibDirName))

	// Cleared but immediately recreated empty.
	entries, err := os.ReadDir(c.LibDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClearSubdirUnknown(t *testing.T) {
	c := newTestCache(t)
	err := c.ClearSubdir("secrets")
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestClearAll(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.EnsureDirs())
	require.NoError(t, c.ClearAll())

	_, err := os.Stat(c.Root())
	assert.True(t, os.IsNotExist(err))
}
