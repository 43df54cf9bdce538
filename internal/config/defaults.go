package config

import (
	"time"

	"github.com/fenilsonani/diskindex/internal/platform"
)

const (
	DefaultCacheVersion      = 1
	DefaultMinFileKB         = 1024
	DefaultMaxItemsPerFolder = 200
	DefaultTopFilesPerDir    = 100
	DefaultGlobalIndexSize   = 3000
	DefaultFlushDirs         = 3
	DefaultFlushItems        = 2000
	DefaultFlushInterval     = 100 * time.Millisecond
)

// DefaultExcludeSegments are path components whose subtrees are never tracked
func DefaultExcludeSegments() []string {
	return []string{
		"node_modules",
		".git",
		".next",
		"dist",
		"coverage",
		".vscode",
		".DS_Store",
		platform.BundleID,
	}
}

// GetDefault returns the default configuration
func GetDefault() *Config {
	return &Config{
		Root:         "~",
		DataDir:      "", // Resolved per platform
		CacheVersion: DefaultCacheVersion,
		DuPath:       "du",
		AllFiles:     false,
		Limits: Limits{
			MinFileSize:       "1MB",
			MaxItemsPerFolder: DefaultMaxItemsPerFolder,
			TopFilesPerDir:    DefaultTopFilesPerDir,
			GlobalIndexSize:   DefaultGlobalIndexSize,
		},
		Flush: FlushConfig{
			DirThreshold:  DefaultFlushDirs,
			ItemThreshold: DefaultFlushItems,
			Interval:      DefaultFlushInterval,
		},
		ExcludeSegments: DefaultExcludeSegments(),
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Daemon: &DaemonConfig{
			Enabled:    false,
			Schedule:   "0 3 * * *", // Nightly rescan
			SkipIfBusy: true,
		},
	}
}
