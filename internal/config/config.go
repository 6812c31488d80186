// Package config resolves verification run configuration: where the
// audit log lives, which directory holds keys, and optional overrides
// from a verify.toml file. Adapted from the teacher's internal/config,
// which resolves a similar dotdir-plus-override shape for policy and
// log paths; here the dotdir is keyed to this tool and the override
// file is TOML instead of being absent, since nothing in the teacher's
// config needed a file format at all.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigDir = ".intoto-verify"
	DefaultLogFile   = "audit.jsonl"
	OverrideFileName = "verify.toml"
)

// Config is the resolved configuration for one verification run.
type Config struct {
	ConfigDir  string
	LogPath    string
	MaxDepth   int
	KeyringDir string
}

// fileOverrides mirrors the subset of Config a verify.toml may
// override. Zero values mean "not set, use the default".
type fileOverrides struct {
	LogPath    string `toml:"log_path"`
	MaxDepth   int    `toml:"max_depth"`
	KeyringDir string `toml:"keyring_dir"`
}

// Load resolves configuration from (in increasing priority) built-in
// defaults, a verify.toml in configDir if present, and explicit
// logPath/keyringDir overrides (typically CLI flags; empty means
// "no override").
func Load(logPath, keyringDir string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	configDir := filepath.Join(homeDir, DefaultConfigDir)
	if err := ensureDir(configDir); err != nil {
		return nil, err
	}

	cfg := &Config{
		ConfigDir:  configDir,
		LogPath:    filepath.Join(configDir, DefaultLogFile),
		MaxDepth:   16,
		KeyringDir: configDir,
	}

	overridePath := filepath.Join(configDir, OverrideFileName)
	if _, err := os.Stat(overridePath); err == nil {
		var ov fileOverrides
		if _, err := toml.DecodeFile(overridePath, &ov); err != nil {
			return nil, err
		}
		if ov.LogPath != "" {
			cfg.LogPath = ov.LogPath
		}
		if ov.MaxDepth > 0 {
			cfg.MaxDepth = ov.MaxDepth
		}
		if ov.KeyringDir != "" {
			cfg.KeyringDir = ov.KeyringDir
		}
	}

	if logPath != "" {
		cfg.LogPath = logPath
	}
	if keyringDir != "" {
		cfg.KeyringDir = keyringDir
	}

	return cfg, nil
}

func ensureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0700)
	}
	return nil
}
