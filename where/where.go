// Package where resolves application-specific filesystem paths.
package where

import (
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/vidresolve/vidresolve/constant"
	"github.com/vidresolve/vidresolve/filesystem"
)

// EnvConfigPath overrides the configuration directory.
const EnvConfigPath = "VIDRESOLVE_CONFIG_PATH"

func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config is the configuration directory. VIDRESOLVE_CONFIG_PATH takes precedence over the platform default.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base, err := os.UserConfigDir()
	if err != nil {
		base = filepath.Join(".", "config")
	}
	return ensureDir(filepath.Join(base, constant.App))
}

// Cache is the persistent cache directory.
func Cache() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(".", "cache")
	}
	return ensureDir(filepath.Join(base, constant.App))
}

// Logs is the directory holding rotated log files.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// Strategies is the directory scanned for scripted host strategies.
func Strategies() string {
	return ensureDir(filepath.Join(Config(), "strategies"))
}

// Database is the sqlite file backing the durable result cache.
func Database() string {
	return filepath.Join(Cache(), "resolver_cache.db")
}

// Targets is the stored list of embed URLs used by rescans.
func Targets() string {
	return filepath.Join(Config(), "targets.json")
}
