package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fenilsonani/diskindex/internal/config"
	"github.com/fenilsonani/diskindex/internal/metrics"
	"github.com/fenilsonani/diskindex/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScanner struct {
	calls   atomic.Int32
	release chan struct{}
	started chan struct{}
	err     error
}

func (f *fakeScanner) Scan(ctx context.Context, root string, _ scanner.ProgressFunc) error {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func enabledConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.GetDefault()
	cfg.Daemon.Enabled = true
	cfg.Daemon.Schedule = "@every 1h"
	return cfg
}

func TestNew_RequiresEnabled(t *testing.T) {
	cfg := config.GetDefault()
	_, err := New(cfg, "/r", &fakeScanner{})
	assert.Error(t, err)

	cfg.Daemon = nil
	_, err = New(cfg, "/r", &fakeScanner{})
	assert.Error(t, err)
}

func TestRunScan(t *testing.T) {
	fs := &fakeScanner{}
	m := metrics.New()
	metricsFile := filepath.Join(t.TempDir(), "diskindex.prom")

	d, err := New(enabledConfig(t), "/r", fs, WithMetrics(m, metricsFile))
	require.NoError(t, err)

	require.NoError(t, d.RunScan())
	assert.Equal(t, int32(1), fs.calls.Load())
	assert.FileExists(t, metricsFile)
}

func TestRunScan_PropagatesError(t *testing.T) {
	fs := &fakeScanner{err: errors.New("boom")}
	d, err := New(enabledConfig(t), "/r", fs)
	require.NoError(t, err)

	err = d.RunScan()
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.err)
}

func TestRunScan_SkipIfBusy(t *testing.T) {
	fs := &fakeScanner{release: make(chan struct{}), started: make(chan struct{}, 1)}
	d, err := New(enabledConfig(t), "/r", fs)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- d.RunScan() }()
	<-fs.started

	assert.ErrorIs(t, d.RunScan(), ErrBusy)

	close(fs.release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), fs.calls.Load())
}

func TestStartStop_PidFile(t *testing.T) {
	cfg := enabledConfig(t)
	cfg.Daemon.PidFile = filepath.Join(t.TempDir(), "diskindex.pid")

	d, err := New(cfg, "/r", &fakeScanner{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- d.Start() }()

	require.Eventually(t, func() bool {
		next, err := d.scheduler.GetNextRun(RescanJob)
		return err == nil && !next.IsZero()
	}, 5*time.Second, 10*time.Millisecond)

	assert.FileExists(t, cfg.Daemon.PidFile)
	assert.True(t, d.IsRunning())

	d.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("daemon did not stop")
	}

	assert.NoFileExists(t, cfg.Daemon.PidFile)
	assert.NoFileExists(t, cfg.Daemon.PidFile+".lock")
	assert.False(t, d.IsRunning())
}

func TestStart_LockHeld(t *testing.T) {
	cfg := enabledConfig(t)
	cfg.Daemon.PidFile = filepath.Join(t.TempDir(), "diskindex.pid")
	require.NoError(t, os.WriteFile(cfg.Daemon.PidFile+".lock", []byte("1\n"), 0644))

	d, err := New(cfg, "/r", &fakeScanner{})
	require.NoError(t, err)

	err = d.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestScheduler_RescanJob(t *testing.T) {
	fs := &fakeScanner{}
	d, err := New(enabledConfig(t), "/r", fs)
	require.NoError(t, err)
	s := d.scheduler

	// Nothing is registered before Start
	_, err = s.GetNextRun(RescanJob)
	assert.Error(t, err)
	assert.Error(t, s.TriggerJob(RescanJob))

	require.NoError(t, s.Start("@every 1h"))
	defer s.Stop()
	assert.Error(t, s.Start("@every 1h"), "already running")

	next, err := s.GetNextRun(RescanJob)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), next, time.Minute)

	require.NoError(t, s.TriggerJob(RescanJob))
	assert.Equal(t, int32(1), fs.calls.Load())

	assert.Error(t, s.TriggerJob("unknown"))
	_, err = s.GetNextRun("unknown")
	assert.Error(t, err)
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	d, err := New(enabledConfig(t), "/r", &fakeScanner{})
	require.NoError(t, err)

	assert.Error(t, d.scheduler.Start("not a schedule"))
}

func TestStart_RunNow(t *testing.T) {
	fs := &fakeScanner{started: make(chan struct{}, 1)}
	d, err := New(enabledConfig(t), "/r", fs, WithRunNow())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- d.Start() }()

	select {
	case <-fs.started:
	case <-time.After(5 * time.Second):
		t.Fatal("no rescan at startup")
	}

	d.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("daemon did not stop")
	}
	assert.Equal(t, int32(1), fs.calls.Load())
}

func TestStart_WithoutRunNowWaitsForSchedule(t *testing.T) {
	fs := &fakeScanner{}
	d, err := New(enabledConfig(t), "/r", fs)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- d.Start() }()

	require.Eventually(t, d.IsRunning, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		_, err := d.scheduler.GetNextRun(RescanJob)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	d.Stop()
	require.NoError(t, <-done)
	assert.Zero(t, fs.calls.Load())
}
