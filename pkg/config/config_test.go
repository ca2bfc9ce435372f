package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Sources.Default)
	assert.Empty(t, cfg.Sources.LocalRepo)
	assert.False(t, cfg.UI.NonInteractive)
}

func TestLoadUserConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[sources]
default = "https://mirror.example.com/modules"

[ui]
non_interactive = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := loadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "https://mirror.example.com/modules", cfg.Sources.Default)
	assert.True(t, cfg.UI.NonInteractive)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("KAM_SOURCES_DEFAULT", "https://env.example.com")

	cfg, err := loadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.Sources.Default)
}

func TestLoadShortFormEnvVars(t *testing.T) {
	t.Setenv("KAM_LOCAL_REPO", "/srv/kam-repo")
	t.Setenv("KAM_TOKEN", "s3cret")
	t.Setenv("KAM_NON_INTERACTIVE", "1")

	cfg, err := loadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "/srv/kam-repo", cfg.Sources.LocalRepo)
	assert.Equal(t, "s3cret", cfg.Auth.Token)
	assert.True(t, cfg.UI.NonInteractive)
}

func TestLoadMalformedUserConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[sources\n"), 0644))

	_, err := loadFrom(path)
	assert.Error(t, err)
}
