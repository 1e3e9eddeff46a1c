package diskstore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-memoize/memo"
	"go.uber.org/zap"
)

// Config holds the configuration for the disk-backed store.
type Config struct {
	// BaseDir is the directory cache files live in. It is created lazily
	// on Init. A leading "~/" expands to the user home directory.
	BaseDir string

	// Logger receives hit/miss/store events. Nil disables logging.
	Logger *zap.Logger
}

// DefaultConfig returns a Config rooted under the user cache directory.
func DefaultConfig() Config {
	base, err := os.UserCacheDir()
	if err != nil {
		base = ".cache"
	}
	return Config{
		BaseDir: filepath.Join(base, "go-memoize"),
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return &memo.ConfigError{Field: "BaseDir", Message: "must not be empty"}
	}
	if info, err := os.Stat(expandHome(c.BaseDir)); err == nil && !info.IsDir() {
		return &memo.ConfigError{Field: "BaseDir", Message: "exists and is not a directory"}
	}
	return nil
}

// expandHome resolves a leading "~/" against the user home directory.
// The path is returned unchanged when the home directory is unknown.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
