package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kam-pm/kam/pkg/errors"
	"github.com/kam-pm/kam/pkg/manifest"
)

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  manifest.Entry
	}{
		{
			name:  "id only",
			input: "core-lib",
			want:  manifest.DepEntry(manifest.Dependency{ID: "core-lib"}),
		},
		{
			name:  "id and version",
			input: "core-lib@1.0.0",
			want:  manifest.DepEntry(manifest.Dependency{ID: "core-lib", Version: "1.0.0"}),
		},
		{
			name:  "include directive",
			input: "include:normal",
			want:  manifest.IncludeEntry("normal"),
		},
		{
			name:  "include with spaces",
			input: "include: normal",
			want:  manifest.IncludeEntry("normal"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, manifest.ParseEntry(tt.input))
		})
	}
}

func TestDependencyString(t *testing.T) {
	assert.Equal(t, "x@1.0", manifest.Dependency{ID: "x", Version: "1.0"}.String())
	assert.Equal(t, "x", manifest.Dependency{ID: "x"}.String())
	assert.Equal(t, "latest", manifest.Dependency{ID: "x"}.VersionOrLatest())
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kam.toml")
	content := `
[module]
id = "busybox-ndk"
name = "BusyBox NDK"
version = "1.36.1"
author = "osm0sis"

[dependencies]
normal = ["core-lib@1.0.0"]
dev = ["include:normal", "test-framework@3.0.0", { id = "pinned", version = "2.0", source = "https://example.com/repo" }]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	m, err := manifest.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "busybox-ndk", m.Module.ID)
	assert.Equal(t, "1.36.1", m.Module.Version)

	require.Len(t, m.Groups["normal"], 1)
	assert.Equal(t, "core-lib", m.Groups["normal"][0].Dep.ID)

	dev := m.Groups["dev"]
	require.Len(t, dev, 3)
	assert.True(t, dev[0].IsInclude())
	assert.Equal(t, "normal", dev[0].Include)
	assert.Equal(t, "test-framework", dev[1].Dep.ID)
	assert.Equal(t, "https://example.com/repo", dev[2].Dep.Source)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kam.yaml")
	content := `
module:
  id: magiskhide-props
  version: "6.1.2"
dependencies:
  normal:
    - core-lib@1.0.0
  dev:
    - "include:normal"
    - id: pinned
      version: "2.0"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	m, err := manifest.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "magiskhide-props", m.Module.ID)
	require.Len(t, m.Groups["dev"], 2)
	assert.True(t, m.Groups["dev"][0].IsInclude())
	assert.Equal(t, "pinned", m.Groups["dev"][1].Dep.ID)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := manifest.Load(filepath.Join(dir, "kam.toml"))
		assert.True(t, errors.IsErrorCode(err, errors.ErrManifestLoad))
	})

	t.Run("bad extension", func(t *testing.T) {
		path := filepath.Join(dir, "kam.json")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
		_, err := manifest.Load(path)
		assert.True(t, errors.IsErrorCode(err, errors.ErrManifestLoad))
	})

	t.Run("malformed toml", func(t *testing.T) {
		path := filepath.Join(dir, "kam.toml")
		require.NoError(t, os.WriteFile(path, []byte("[module\n"), 0644))
		_, err := manifest.Load(path)
		assert.True(t, errors.IsErrorCode(err, errors.ErrManifestLoad))
	})

	t.Run("non-string entry", func(t *testing.T) {
		path := filepath.Join(dir, "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("[dependencies]\nnormal = [42]\n"), 0644))
		_, err := manifest.Load(path)
		assert.True(t, errors.IsErrorCode(err, errors.ErrManifestLoad))
	})
}

func TestFind(t *testing.T) {
	dir := t.TempDir()

	_, err := manifest.Find(dir)
	assert.True(t, errors.IsErrorCode(err, errors.ErrManifestLoad))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "kam.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kam.toml"), []byte(""), 0644))

	// TOML wins when both spellings exist.
	path, err := manifest.Find(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "kam.toml"), path)
}
