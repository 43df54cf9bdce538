package main

import (
	"fmt"
	"path/filepath"

	"github.com/fenilsonani/diskindex/internal/config"
	"github.com/fenilsonani/diskindex/internal/logging"
	"github.com/fenilsonani/diskindex/internal/metrics"
	"github.com/fenilsonani/diskindex/internal/scanner"
	"github.com/fenilsonani/diskindex/internal/security"
	"github.com/fenilsonani/diskindex/internal/store"
	"go.uber.org/zap"
)

// app wires the configured store and scanner for one command run
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
	store   *store.Store
	scanner *scanner.Scanner
	guard   *security.PathValidator
	root    string
}

// newApp loads configuration and builds the store and scanner. With
// silent set, log output is dropped so it cannot corrupt a full-screen UI.
func newApp(silent bool) (*app, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	log := zap.NewNop()
	if !silent {
		log, err = logging.New(logging.Config{
			Level:      cfg.Log.Level,
			Format:     cfg.Log.Format,
			OutputPath: cfg.Log.Output,
		})
		if err != nil {
			return nil, err
		}
	}

	root, err := cfg.ResolveRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scan root: %w", err)
	}
	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}

	m := metrics.New()
	st := store.New(dataDir,
		store.WithVersion(cfg.CacheVersion),
		store.WithMaxItems(cfg.Limits.MaxItemsPerFolder),
		store.WithLogger(log),
		store.WithMetrics(m),
	)
	if err := st.Init(); err != nil {
		return nil, fmt.Errorf("failed to open cache at %s: %w", dataDir, err)
	}

	sc := scanner.New(st,
		scanner.WithConfig(cfg),
		scanner.WithLogger(log),
		scanner.WithMetrics(m),
	)

	return &app{
		cfg:     cfg,
		log:     log,
		metrics: m,
		store:   st,
		scanner: sc,
		guard:   security.NewPathValidator(),
		root:    root,
	}, nil
}

// close flushes buffered log output
func (a *app) close() {
	_ = a.log.Sync()
}

// resolvePath turns an optional argument into an absolute path, falling
// back to the configured root
func (a *app) resolvePath(args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return a.root, nil
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", args[0], err)
	}
	return path, nil
}

// resolveRoot is resolvePath for a directory that du will walk
func (a *app) resolveRoot(args []string) (string, error) {
	path, err := a.resolvePath(args)
	if err != nil {
		return "", err
	}
	return a.guard.ValidateScanRoot(path)
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}

	cfgPath, err := config.GetConfigPath()
	if err != nil {
		return nil, err
	}

	return config.Load(cfgPath)
}
