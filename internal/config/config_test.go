package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// GetDefault Tests
// =============================================================================

func TestGetDefault(t *testing.T) {
	cfg := GetDefault()

	if cfg == nil {
		t.Fatal("GetDefault returned nil")
	}

	if cfg.CacheVersion != 1 {
		t.Errorf("expected cache version 1, got %d", cfg.CacheVersion)
	}
	if cfg.DuPath != "du" {
		t.Errorf("expected du path 'du', got %q", cfg.DuPath)
	}
	if cfg.AllFiles {
		t.Error("expected AllFiles to be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestGetDefaultLimits(t *testing.T) {
	cfg := GetDefault()

	if cfg.Limits.MaxItemsPerFolder != 200 {
		t.Errorf("expected MaxItemsPerFolder 200, got %d", cfg.Limits.MaxItemsPerFolder)
	}
	if cfg.Limits.TopFilesPerDir != 100 {
		t.Errorf("expected TopFilesPerDir 100, got %d", cfg.Limits.TopFilesPerDir)
	}
	if cfg.Limits.GlobalIndexSize != 3000 {
		t.Errorf("expected GlobalIndexSize 3000, got %d", cfg.Limits.GlobalIndexSize)
	}
	if got := cfg.MinFileKB(); got != 1024 {
		t.Errorf("expected MinFileKB 1024, got %d", got)
	}
}

func TestGetDefaultFlush(t *testing.T) {
	cfg := GetDefault()

	if cfg.Flush.DirThreshold != 3 {
		t.Errorf("expected DirThreshold 3, got %d", cfg.Flush.DirThreshold)
	}
	if cfg.Flush.ItemThreshold != 2000 {
		t.Errorf("expected ItemThreshold 2000, got %d", cfg.Flush.ItemThreshold)
	}
	if cfg.Flush.Interval != 100*time.Millisecond {
		t.Errorf("expected Interval 100ms, got %v", cfg.Flush.Interval)
	}
}

func TestGetDefaultExcludeSegments(t *testing.T) {
	cfg := GetDefault()

	want := []string{"node_modules", ".git", ".next", "dist", "coverage", ".vscode", ".DS_Store"}
	for _, segment := range want {
		found := false
		for _, s := range cfg.ExcludeSegments {
			if s == segment {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected %q in default exclude segments", segment)
		}
	}
}

// =============================================================================
// Validate Tests
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero cache version",
			mutate:  func(c *Config) { c.CacheVersion = 0 },
			wantErr: "cache version",
		},
		{
			name:    "empty du path",
			mutate:  func(c *Config) { c.DuPath = "" },
			wantErr: "du path",
		},
		{
			name:    "bad min file size",
			mutate:  func(c *Config) { c.Limits.MinFileSize = "lots" },
			wantErr: "min file size",
		},
		{
			name:    "zero folder cap",
			mutate:  func(c *Config) { c.Limits.MaxItemsPerFolder = 0 },
			wantErr: "max items per folder",
		},
		{
			name:    "zero global cap",
			mutate:  func(c *Config) { c.Limits.GlobalIndexSize = 0 },
			wantErr: "global index size",
		},
		{
			name:    "zero flush threshold",
			mutate:  func(c *Config) { c.Flush.ItemThreshold = 0 },
			wantErr: "flush thresholds",
		},
		{
			name:    "negative flush interval",
			mutate:  func(c *Config) { c.Flush.Interval = -time.Second },
			wantErr: "flush interval",
		},
		{
			name:    "exclude segment with slash",
			mutate:  func(c *Config) { c.ExcludeSegments = []string{"a/b"} },
			wantErr: "single path component",
		},
		{
			name:    "relative data dir",
			mutate:  func(c *Config) { c.DataDir = "relative/cache" },
			wantErr: "data dir must be absolute",
		},
		{
			name:   "home relative data dir",
			mutate: func(c *Config) { c.DataDir = "~/cache" },
		},
		{
			name: "daemon without schedule",
			mutate: func(c *Config) {
				c.Daemon = &DaemonConfig{Enabled: true}
			},
			wantErr: "daemon schedule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefault()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMinFileKB(t *testing.T) {
	tests := []struct {
		size string
		want int64
	}{
		{"1MB", 1024},
		{"1MiB", 1024},
		{"512KB", 512},
		{"1GB", 1024 * 1024},
		{"1M", 1024},
		{"1024K", 1024},
		{"garbage", DefaultMinFileKB},
	}

	for _, tt := range tests {
		cfg := GetDefault()
		cfg.Limits.MinFileSize = tt.size
		if got := cfg.MinFileKB(); got != tt.want {
			t.Errorf("MinFileKB(%q) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

// =============================================================================
// Load / Save Tests
// =============================================================================

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Limits.GlobalIndexSize != DefaultGlobalIndexSize {
		t.Errorf("expected default global index size, got %d", cfg.Limits.GlobalIndexSize)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := GetDefault()
	cfg.Root = "/srv/data"
	cfg.DataDir = "/var/lib/diskindex"
	cfg.AllFiles = true
	cfg.Flush.Interval = 250 * time.Millisecond
	cfg.ExcludeSegments = []string{"vendor"}

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if loaded.Root != "/srv/data" {
		t.Errorf("expected root /srv/data, got %q", loaded.Root)
	}
	if loaded.DataDir != "/var/lib/diskindex" {
		t.Errorf("expected data dir /var/lib/diskindex, got %q", loaded.DataDir)
	}
	if !loaded.AllFiles {
		t.Error("expected AllFiles to survive round trip")
	}
	if loaded.Flush.Interval != 250*time.Millisecond {
		t.Errorf("expected interval 250ms, got %v", loaded.Flush.Interval)
	}
	if len(loaded.ExcludeSegments) != 1 || loaded.ExcludeSegments[0] != "vendor" {
		t.Errorf("expected exclude segments [vendor], got %v", loaded.ExcludeSegments)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "root: /data\nlimits:\n  max_items_per_folder: 50\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Limits.MaxItemsPerFolder != 50 {
		t.Errorf("expected MaxItemsPerFolder 50, got %d", cfg.Limits.MaxItemsPerFolder)
	}
	if cfg.Flush.ItemThreshold != DefaultFlushItems {
		t.Errorf("expected default ItemThreshold, got %d", cfg.Flush.ItemThreshold)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("limits: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected parse error for invalid YAML")
	}
}

func TestLoadInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("cache_version: 0\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("expected invalid configuration error, got %v", err)
	}
}

// =============================================================================
// Environment Tests
// =============================================================================

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDataDir, "/env/data")
	t.Setenv(EnvRoot, "/env/root")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvDuPath, "/usr/local/bin/gdu")

	cfg := GetDefault()
	cfg.ApplyEnv()

	if cfg.DataDir != "/env/data" {
		t.Errorf("expected data dir from env, got %q", cfg.DataDir)
	}
	if cfg.Root != "/env/root" {
		t.Errorf("expected root from env, got %q", cfg.Root)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level from env, got %q", cfg.Log.Level)
	}
	if cfg.DuPath != "/usr/local/bin/gdu" {
		t.Errorf("expected du path from env, got %q", cfg.DuPath)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(EnvRoot+"=/dotenv/root\n"), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	// Register cleanup for the variable godotenv is about to set
	t.Setenv(EnvRoot, "")
	os.Unsetenv(EnvRoot)

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv error: %v", err)
	}
	if got := os.Getenv(EnvRoot); got != "/dotenv/root" {
		t.Errorf("expected %s=/dotenv/root, got %q", EnvRoot, got)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env should not be an error, got %v", err)
	}
}

func TestResolveRoot(t *testing.T) {
	cfg := GetDefault()
	cfg.Root = "/tmp/../tmp/scan"

	root, err := cfg.ResolveRoot()
	if err != nil {
		t.Fatalf("ResolveRoot error: %v", err)
	}
	if root != "/tmp/scan" {
		t.Errorf("expected /tmp/scan, got %q", root)
	}
}
