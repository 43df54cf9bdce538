// Package scanner runs du against a root directory and streams its output
// into the snapshot store.
//
// One goroutine reads du's stdout into entries and another reads its stderr
// for permission failures. The pipeline goroutine is the only owner of the
// in-flight ScanState; it ingests entries, checks the flush thresholds at
// most once per flush interval, and at the end force-flushes what remains
// and persists the global index.
package scanner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fenilsonani/diskindex/internal/config"
	"github.com/fenilsonani/diskindex/internal/logging"
	"github.com/fenilsonani/diskindex/internal/metrics"
	"github.com/fenilsonani/diskindex/internal/store"
	"github.com/fenilsonani/diskindex/pkg/utils"
	"go.uber.org/zap"
)

const (
	// entryBuffer lets stdout parsing run ahead while a flush is writing
	entryBuffer = 4096
	// maxLineSize bounds a single du output line
	maxLineSize = 1024 * 1024
	// exitTailSize is how much stderr is logged for an abnormal exit
	exitTailSize = 1000
	// waitDelay is how long du gets to exit after SIGINT before it is killed
	waitDelay = 5 * time.Second
)

// ProgressFunc receives the path most recently ingested and a heap usage label
type ProgressFunc func(path, memory string)

// CommandFunc builds the size-listing command
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Scanner indexes directory trees into a Store
type Scanner struct {
	store   *store.Store
	cfg     *config.Config
	parser  *Parser
	command CommandFunc
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Scanner
type Option func(*Scanner)

func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) { s.log = logging.OrNop(l) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// WithCommand replaces how the du process is built
func WithCommand(fn CommandFunc) Option {
	return func(s *Scanner) { s.command = fn }
}

// WithConfig sets du flags, parser filters, flush thresholds and caps
func WithConfig(cfg *config.Config) Option {
	return func(s *Scanner) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// New creates a scanner writing into st
func New(st *store.Store, opts ...Option) *Scanner {
	s := &Scanner{
		store:   st,
		cfg:     config.GetDefault(),
		command: exec.CommandContext,
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.parser = NewParser(s.cfg.MinFileKB(), s.cfg.ExcludeSegments)
	s.parser.metrics = s.metrics
	return s
}

// Scan indexes root. onProgress may be nil.
//
// A du exit code other than 0 or 1 is logged but does not fail the scan.
// On any error the buffered state is still force-flushed, so partial
// results survive; the global index is only replaced by a scan that
// completed.
func (s *Scanner) Scan(ctx context.Context, root string, onProgress ProgressFunc) error {
	start := s.now()
	root = filepath.Clean(root)
	s.log.Info("scan started", zap.String("root", root))

	indexed, err := s.scan(ctx, root, onProgress)

	elapsed := s.now().Sub(start)
	s.metrics.ScanFinished(elapsed, indexed, err)
	if err != nil {
		s.log.Error("scan failed", zap.String("root", root), zap.Duration("took", elapsed), zap.Error(err))
		return err
	}
	s.log.Info("scan complete",
		zap.String("root", root),
		zap.Int("indexed", indexed),
		zap.Duration("took", elapsed))
	return nil
}

func (s *Scanner) scan(ctx context.Context, root string, onProgress ProgressFunc) (int, error) {
	if err := s.store.Init(); err != nil {
		return 0, fmt.Errorf("failed to initialize store: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	state := NewScanState(s.cfg.Limits.GlobalIndexSize)
	flusher := s.newFlusher()

	scanErr := s.run(ctx, cancel, root, state, flusher, onProgress)

	if _, err := flusher.MaybeFlush(state, true); err != nil {
		return 0, errors.Join(scanErr, fmt.Errorf("final flush: %w", err))
	}
	if scanErr != nil {
		return 0, scanErr
	}

	top := state.Top()
	if err := s.store.SaveGlobalIndex(top); err != nil {
		return 0, fmt.Errorf("failed to save global index: %w", err)
	}
	return len(top), nil
}

// run starts du and streams it until both pipes are drained or the pipeline
// fails, then reaps the process.
func (s *Scanner) run(ctx context.Context, cancel context.CancelFunc, root string, state *ScanState, flusher *Flusher, onProgress ProgressFunc) error {
	cmd := s.command(ctx, s.cfg.DuPath, s.args(root)...)
	if cmd.Cancel != nil {
		cmd.Cancel = func() error {
			return cmd.Process.Signal(os.Interrupt)
		}
	}
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", s.cfg.DuPath, err)
	}

	tracker := NewTracker()
	pipeErr := s.index(ctx, stdout, stderr, tracker, state, flusher, onProgress)
	if pipeErr != nil {
		// Interrupts du; Wait escalates to a kill after waitDelay
		cancel()
	}

	waitErr := cmd.Wait()
	if pipeErr != nil {
		return pipeErr
	}
	s.checkExit(waitErr, tracker)
	return nil
}

func (s *Scanner) args(root string) []string {
	args := []string{"-k", "-x", "-P"}
	if s.cfg.AllFiles {
		args = append(args, "-a")
	}
	return append(args, root)
}

func (s *Scanner) newFlusher() *Flusher {
	f := NewFlusher(s.store)
	f.dirThreshold = s.cfg.Flush.DirThreshold
	f.itemThreshold = s.cfg.Flush.ItemThreshold
	f.perDir = s.cfg.Limits.TopFilesPerDir
	f.log = s.log
	f.metrics = s.metrics
	f.now = s.now
	return f
}

// checkExit logs du exit statuses other than 0 and 1
func (s *Scanner) checkExit(waitErr error, tracker *Tracker) {
	if waitErr == nil {
		return
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if acceptableExit(exitErr.ExitCode()) {
			return
		}
		e := &ExitError{Code: exitErr.ExitCode(), Stderr: tracker.Tail(exitTailSize)}
		s.log.Warn("size listing exited abnormally, keeping partial results",
			zap.Error(e),
			zap.String("stderr", e.Stderr))
		return
	}

	s.log.Warn("size listing did not exit cleanly", zap.Error(waitErr))
}

// index consumes both streams until they are exhausted. ScanState is only
// touched from this goroutine.
func (s *Scanner) index(ctx context.Context, stdout, stderr io.Reader, tracker *Tracker, state *ScanState, flusher *Flusher, onProgress ProgressFunc) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	entries := make(chan Entry, entryBuffer)
	restrictions := make(chan Restriction, 64)
	readErrs := make(chan error, 2)

	go func() { readErrs <- s.readEntries(ctx, stdout, entries) }()
	go func() { readErrs <- readRestrictions(ctx, stderr, tracker, restrictions) }()

	// Zero so the first entry always reports progress
	var lastCheck time.Time
	for entries != nil || restrictions != nil {
		select {
		case <-ctx.Done():
			return fmt.Errorf("scan interrupted: %w", ctx.Err())

		case e, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			state.Ingest(e)

			now := s.now()
			if now.Sub(lastCheck) < s.cfg.Flush.Interval {
				continue
			}
			lastCheck = now
			if _, err := flusher.MaybeFlush(state, false); err != nil {
				return err
			}
			if onProgress != nil {
				onProgress(e.Path, heapLabel())
			}

		case r, ok := <-restrictions:
			if !ok {
				restrictions = nil
				continue
			}
			state.Restrict(r)
			s.metrics.Restricted(r.Reason.MetricLabel())
			s.log.Debug("restricted path", zap.String("path", r.Entry.Path), zap.Stringer("reason", r.Reason))
		}
	}

	for range 2 {
		if err := <-readErrs; err != nil {
			return err
		}
	}
	return nil
}

func (s *Scanner) readEntries(ctx context.Context, r io.Reader, out chan<- Entry) error {
	defer close(out)

	sc := newLineScanner(r)
	for sc.Scan() {
		e, ok := s.parser.Parse(sc.Text())
		if !ok {
			continue
		}
		select {
		case out <- e:
		case <-ctx.Done():
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read du output: %w", err)
	}
	return nil
}

// readRestrictions never fails on content; only a broken pipe is reported
func readRestrictions(ctx context.Context, r io.Reader, tracker *Tracker, out chan<- Restriction) error {
	defer close(out)

	sc := newLineScanner(r)
	for sc.Scan() {
		restriction, ok := tracker.Track(sc.Text())
		if !ok {
			continue
		}
		select {
		case out <- restriction:
		case <-ctx.Done():
			return nil
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, bufio.ErrTooLong) {
		return fmt.Errorf("failed to read du diagnostics: %w", err)
	}
	return nil
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	return sc
}

func heapLabel() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return utils.FormatBytes(m.HeapAlloc)
}
