package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const AppName = "ocrarian"

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// Dirs holds the filesystem locations every component is constructed with.
type Dirs struct {
	ConfigDir string // client_secret.json, service_account.json, config.ini
	CacheDir  string // token cache and scratch parts
	DocsDir   string // final output
}

// ScratchDir is where intermediate part files live.
func (d Dirs) ScratchDir() string {
	return filepath.Join(d.CacheDir, "parts")
}

// TokenFile is the persisted credential cache.
func (d Dirs) TokenFile() string {
	return filepath.Join(d.CacheDir, "token.json")
}

// ResolveDirs returns the per-user directories, honouring OCRARIAN_*_DIR overrides.
func ResolveDirs() (Dirs, error) {
	userConfig, err := os.UserConfigDir()
	if err != nil {
		return Dirs{}, fmt.Errorf("failed to resolve user config dir: %w", err)
	}
	userCache, err := os.UserCacheDir()
	if err != nil {
		return Dirs{}, fmt.Errorf("failed to resolve user cache dir: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Dirs{}, fmt.Errorf("failed to resolve home dir: %w", err)
	}

	return Dirs{
		ConfigDir: GetEnv("OCRARIAN_CONFIG_DIR", filepath.Join(userConfig, AppName)),
		CacheDir:  GetEnv("OCRARIAN_CACHE_DIR", filepath.Join(userCache, AppName)),
		DocsDir:   GetEnv("OCRARIAN_DOCS_DIR", filepath.Join(home, "Documents")),
	}, nil
}

// Create makes sure every directory exists.
func (d Dirs) Create() error {
	for _, dir := range []string{d.ConfigDir, d.CacheDir, d.ScratchDir(), d.DocsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
