package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override file configuration
const (
	EnvDataDir  = "DISKINDEX_DATA_DIR"
	EnvRoot     = "DISKINDEX_ROOT"
	EnvLogLevel = "DISKINDEX_LOG_LEVEL"
	EnvDuPath   = "DISKINDEX_DU_PATH"
)

// LoadDotEnv loads variables from a .env file when one exists.
// Variables already present in the environment are not overwritten.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from DISKINDEX_* environment variables
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvRoot); v != "" {
		c.Root = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvDuPath); v != "" {
		c.DuPath = v
	}
}
