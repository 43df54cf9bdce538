package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fenilsonani/diskindex/internal/config"
	"github.com/fenilsonani/diskindex/internal/logging"
	"github.com/fenilsonani/diskindex/internal/metrics"
	"github.com/fenilsonani/diskindex/internal/scanner"
	"go.uber.org/zap"
)

// ErrBusy is returned when a rescan is requested while one is running and
// skip_if_busy is set
var ErrBusy = errors.New("daemon: scan already in progress")

// Scanner is the scan entry point the daemon drives
type Scanner interface {
	Scan(ctx context.Context, root string, onProgress scanner.ProgressFunc) error
}

// Daemon rescans a root on a cron schedule
type Daemon struct {
	config    *config.Config
	root      string
	scanner   Scanner
	scheduler *Scheduler
	logger    *zap.Logger

	metrics     *metrics.Metrics
	metricsFile string
	runNow      bool

	triggered   sync.WaitGroup
	busy        atomic.Bool
	running     bool
	shutdownCtx context.Context
	cancelFunc  context.CancelFunc
	mu          sync.RWMutex
}

// Option configures a Daemon
type Option func(*Daemon)

func WithLogger(l *zap.Logger) Option {
	return func(d *Daemon) { d.logger = logging.OrNop(l) }
}

// WithMetrics writes m to path in textfile format after every run
func WithMetrics(m *metrics.Metrics, path string) Option {
	return func(d *Daemon) {
		d.metrics = m
		d.metricsFile = path
	}
}

// WithRunNow rescans once as soon as the daemon starts instead of waiting
// for the first scheduled run
func WithRunNow() Option {
	return func(d *Daemon) { d.runNow = true }
}

// New creates a new daemon instance
func New(cfg *config.Config, root string, sc Scanner, opts ...Option) (*Daemon, error) {
	if cfg.Daemon == nil || !cfg.Daemon.Enabled {
		return nil, fmt.Errorf("daemon not enabled in configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		config:      cfg,
		root:        root,
		scanner:     sc,
		logger:      zap.NewNop(),
		shutdownCtx: ctx,
		cancelFunc:  cancel,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.scheduler = NewScheduler(d)
	return d, nil
}

// Start runs the scheduler until Stop is called or SIGINT/SIGTERM arrives
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon already running")
	}
	d.running = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	d.logger.Info("starting rescan daemon", zap.String("root", d.root), zap.String("schedule", d.config.Daemon.Schedule))

	if err := d.acquireLock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer d.releaseLock()

	if err := d.writePidFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer d.removePidFile()

	ctx, stop := signal.NotifyContext(d.shutdownCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.scheduler.Start(d.config.Daemon.Schedule); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer d.scheduler.Stop()

	next, err := d.scheduler.GetNextRun(RescanJob)
	if err != nil {
		return err
	}
	d.logger.Info("daemon started", zap.Time("next_run", next))

	if d.runNow {
		d.triggered.Add(1)
		go func() {
			defer d.triggered.Done()
			if err := d.scheduler.TriggerJob(RescanJob); err != nil && !errors.Is(err, ErrBusy) {
				d.logger.Error("initial rescan failed", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()

	d.logger.Info("daemon shutting down")
	d.cancelFunc()
	d.triggered.Wait()
	return nil
}

// Stop stops the daemon. An in-flight scan is cancelled and its buffered
// results are still flushed.
func (d *Daemon) Stop() {
	if d.cancelFunc != nil {
		d.cancelFunc()
	}
}

// IsRunning returns whether the daemon is running
func (d *Daemon) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// RunScan performs one rescan of the configured root
func (d *Daemon) RunScan() error {
	if !d.busy.CompareAndSwap(false, true) {
		if d.config.Daemon.SkipIfBusy {
			d.logger.Info("skipping rescan, previous scan still running")
			return ErrBusy
		}
		for !d.busy.CompareAndSwap(false, true) {
			select {
			case <-d.shutdownCtx.Done():
				return d.shutdownCtx.Err()
			case <-time.After(time.Second):
			}
		}
	}
	defer d.busy.Store(false)

	start := time.Now()
	err := d.scanner.Scan(d.shutdownCtx, d.root, nil)

	if d.metricsFile != "" {
		if werr := d.metrics.WriteTextfile(d.metricsFile); werr != nil {
			d.logger.Warn("failed to write metrics", zap.Error(werr))
		}
	}

	if err != nil {
		return fmt.Errorf("rescan of %s failed: %w", d.root, err)
	}
	d.logger.Info("rescan finished", zap.String("root", d.root), zap.Duration("took", time.Since(start)))
	return nil
}

// acquireLock creates the lock file next to the PID file
func (d *Daemon) acquireLock() error {
	if d.config.Daemon.PidFile == "" {
		return nil
	}
	lockFile := d.config.Daemon.PidFile + ".lock"

	file, err := os.OpenFile(lockFile, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("daemon already running (lock file exists)")
		}
		return err
	}

	_, err = fmt.Fprintf(file, "%d\n", os.Getpid())
	file.Close()
	return err
}

func (d *Daemon) releaseLock() error {
	if d.config.Daemon.PidFile == "" {
		return nil
	}
	return os.Remove(d.config.Daemon.PidFile + ".lock")
}

func (d *Daemon) writePidFile() error {
	if d.config.Daemon.PidFile == "" {
		return nil
	}
	return os.WriteFile(d.config.Daemon.PidFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}

func (d *Daemon) removePidFile() error {
	if d.config.Daemon.PidFile == "" {
		return nil
	}
	return os.Remove(d.config.Daemon.PidFile)
}
