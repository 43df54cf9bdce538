package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fenilsonani/diskindex/internal/platform"
	"github.com/fenilsonani/diskindex/pkg/utils"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Root            string        `yaml:"root"`     // Scan root, "~" is expanded
	DataDir         string        `yaml:"data_dir"` // Snapshot cache location
	CacheVersion    int           `yaml:"cache_version"`
	DuPath          string        `yaml:"du_path"`
	AllFiles        bool          `yaml:"all_files"` // Pass -a so files are listed, not just directories
	Limits          Limits        `yaml:"limits"`
	Flush           FlushConfig   `yaml:"flush"`
	ExcludeSegments []string      `yaml:"exclude_segments"`
	Log             LogConfig     `yaml:"log"`
	MetricsFile     string        `yaml:"metrics_file"`
	Daemon          *DaemonConfig `yaml:"daemon,omitempty"`
}

// Limits bounds what gets tracked and persisted
type Limits struct {
	MinFileSize       string `yaml:"min_file_size"` // e.g., "1MB"
	MaxItemsPerFolder int    `yaml:"max_items_per_folder"`
	TopFilesPerDir    int    `yaml:"top_files_per_dir"`
	GlobalIndexSize   int    `yaml:"global_index_size"`
}

// FlushConfig controls when buffered scan state is written through
type FlushConfig struct {
	DirThreshold  int           `yaml:"dir_threshold"`
	ItemThreshold int           `yaml:"item_threshold"`
	Interval      time.Duration `yaml:"interval"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// DaemonConfig holds scheduled rescan settings
type DaemonConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Schedule   string `yaml:"schedule"` // Cron expression
	SkipIfBusy bool   `yaml:"skip_if_busy"`
	PidFile    string `yaml:"pid_file"`
}

// Load loads configuration from a file
func Load(configPath string) (*Config, error) {
	// If config doesn't exist, return default config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := GetDefault()
		cfg.ApplyEnv()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start from defaults so a partial file only overrides what it sets
	config := GetDefault()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save saves configuration to a file
func Save(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.CacheVersion < 1 {
		return fmt.Errorf("cache version must be >= 1")
	}
	if c.DuPath == "" {
		return fmt.Errorf("du path must not be empty")
	}

	if _, err := utils.ParseSize(c.Limits.MinFileSize); err != nil {
		return fmt.Errorf("invalid min file size: %w", err)
	}
	if c.Limits.MaxItemsPerFolder <= 0 {
		return fmt.Errorf("max items per folder must be > 0")
	}
	if c.Limits.TopFilesPerDir <= 0 {
		return fmt.Errorf("top files per dir must be > 0")
	}
	if c.Limits.GlobalIndexSize <= 0 {
		return fmt.Errorf("global index size must be > 0")
	}

	if c.Flush.DirThreshold <= 0 || c.Flush.ItemThreshold <= 0 {
		return fmt.Errorf("flush thresholds must be > 0")
	}
	if c.Flush.Interval < 0 {
		return fmt.Errorf("flush interval must be >= 0")
	}

	for _, segment := range c.ExcludeSegments {
		if segment == "" || strings.Contains(segment, "/") {
			return fmt.Errorf("invalid exclude segment %q: must be a single path component", segment)
		}
	}

	if c.DataDir != "" && !filepath.IsAbs(c.DataDir) && !strings.HasPrefix(c.DataDir, "~") {
		return fmt.Errorf("data dir must be absolute: %s", c.DataDir)
	}

	if c.Daemon != nil && c.Daemon.Enabled && c.Daemon.Schedule == "" {
		return fmt.Errorf("daemon schedule must be set when daemon is enabled")
	}

	return nil
}

// MinFileKB returns the minimum tracked size in du's kilobyte units
func (c *Config) MinFileKB() int64 {
	n, err := utils.ParseSize(c.Limits.MinFileSize)
	if err != nil {
		return DefaultMinFileKB
	}
	return int64(n / utils.KB)
}

// ResolveRoot returns the absolute scan root
func (c *Config) ResolveRoot() (string, error) {
	root := c.Root
	if root == "" {
		root = "~"
	}
	root, err := platform.ExpandHome(root)
	if err != nil {
		return "", err
	}
	return filepath.Abs(root)
}

// ResolveDataDir returns the absolute cache location
func (c *Config) ResolveDataDir() (string, error) {
	if c.DataDir == "" {
		info, err := platform.GetInfo()
		if err != nil {
			return "", err
		}
		return info.DataDir, nil
	}
	dir, err := platform.ExpandHome(c.DataDir)
	if err != nil {
		return "", err
	}
	return filepath.Abs(dir)
}

// GetConfigPath returns the default config path
func GetConfigPath() (string, error) {
	configDir, err := platform.GetUserConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "diskindex", "config.yaml"), nil
}

// EnsureConfigExists creates a default config file if it doesn't exist
func EnsureConfigExists() (string, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := Save(GetDefault(), configPath); err != nil {
			return "", err
		}
	}

	return configPath, nil
}
