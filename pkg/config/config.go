// Package config loads kam's layered configuration: embedded defaults,
// then an optional user config file, then KAM_-prefixed environment
// variables.
package config

import (
	_ "embed"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	kamerrors "github.com/kam-pm/kam/pkg/errors"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

// EnvPrefix is the environment variable prefix for config overrides,
// e.g. KAM_SOURCES_DEFAULT or KAM_AUTH_TOKEN.
const EnvPrefix = "KAM_"

// ConfigFileName is the user config file name looked up under the XDG
// config directory.
const ConfigFileName = "config.toml"

// Sources configures where modules are acquired from.
type Sources struct {
	Default   string `koanf:"default"`
	LocalRepo string `koanf:"local_repo"`
}

// Auth carries credentials for authenticated network fetches.
type Auth struct {
	Token string `koanf:"token"`
}

// UI configures interactive behavior.
type UI struct {
	NonInteractive bool `koanf:"non_interactive"`
}

// Config is the fully merged kam configuration.
type Config struct {
	Sources Sources `koanf:"sources"`
	Auth    Auth    `koanf:"auth"`
	UI      UI      `koanf:"ui"`
}

// rawBytesProvider implements koanf's provider for raw embedded bytes
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// Load builds the merged configuration. A missing user config file is
// not an error; a malformed one is.
func Load() (*Config, error) {
	return loadFrom(UserConfigPath())
}

// UserConfigPath returns the user config file location under the XDG
// config directory.
func UserConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "kam", ConfigFileName)
}

func loadFrom(userConfigPath string) (*Config, error) {
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, kamerrors.Wrap(err, kamerrors.ErrInternal, "failed to load embedded defaults")
	}

	// 2. User config file, if present
	if _, err := os.Stat(userConfigPath); err == nil {
		if err := k.Load(file.Provider(userConfigPath), toml.Parser()); err != nil {
			return nil, kamerrors.Wrapf(err, kamerrors.ErrInvalidInput, "failed to load config from %s", userConfigPath)
		}
	}

	// 3. Environment overrides: KAM_SOURCES_LOCAL_REPO -> sources.local_repo
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		parts := strings.SplitN(key, "_", 2)
		if len(parts) == 2 {
			return parts[0] + "." + parts[1]
		}
		return key
	}), nil)
	if err != nil {
		return nil, kamerrors.Wrap(err, kamerrors.ErrInternal, "failed to load environment overrides")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, kamerrors.Wrap(err, kamerrors.ErrInternal, "failed to unmarshal configuration")
	}

	// Short-form env vars kept for ergonomics on device shells.
	if repo := os.Getenv("KAM_LOCAL_REPO"); repo != "" {
		cfg.Sources.LocalRepo = repo
	}
	if token := os.Getenv("KAM_TOKEN"); token != "" {
		cfg.Auth.Token = token
	}
	if os.Getenv("KAM_NON_INTERACTIVE") != "" {
		cfg.UI.NonInteractive = true
	}

	return &cfg, nil
}
