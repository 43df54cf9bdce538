package daemon

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RescanJob is the name of the configured periodic rescan
const RescanJob = "rescan"

// Scheduler manages scheduled rescans
type Scheduler struct {
	daemon  *Daemon
	cron    *cron.Cron
	jobs    map[string]cron.EntryID
	jobsMu  sync.RWMutex
	running bool
}

// NewScheduler creates a new scheduler
func NewScheduler(daemon *Daemon) *Scheduler {
	parser := cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)

	c := cron.New(cron.WithParser(parser), cron.WithChain(
		cron.Recover(cron.DefaultLogger),
	))

	return &Scheduler{
		daemon: daemon,
		cron:   c,
		jobs:   make(map[string]cron.EntryID),
	}
}

// Start registers the rescan job on schedule and starts cron
func (s *Scheduler) Start(schedule string) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if err := s.addJobInternal(RescanJob, schedule); err != nil {
		return fmt.Errorf("failed to add schedule %s: %w", schedule, err)
	}

	s.cron.Start()
	s.running = true

	s.daemon.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Second):
		s.daemon.logger.Warn("scheduler stop timed out")
	}

	s.running = false
	s.daemon.logger.Info("scheduler stopped")
}

// addJobInternal adds a job (internal, no lock)
func (s *Scheduler) addJobInternal(name, schedule string) error {
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	id, err := s.cron.AddFunc(schedule, func() {
		s.daemon.logger.Info("executing scheduled job", zap.String("job", name))
		if err := s.daemon.RunScan(); err != nil && !errors.Is(err, ErrBusy) {
			s.daemon.logger.Error("job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.jobs[name] = id
	s.daemon.logger.Info("added job",
		zap.String("job", name),
		zap.String("schedule", schedule),
		zap.Time("next_run", s.cron.Entry(id).Next))
	return nil
}

// GetNextRun returns the next run time for a job
func (s *Scheduler) GetNextRun(name string) (time.Time, error) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	id, exists := s.jobs[name]
	if !exists {
		return time.Time{}, fmt.Errorf("job %s not found", name)
	}

	return s.cron.Entry(id).Next, nil
}

// TriggerJob runs a job immediately, outside its schedule
func (s *Scheduler) TriggerJob(name string) error {
	s.jobsMu.RLock()
	_, exists := s.jobs[name]
	s.jobsMu.RUnlock()

	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.daemon.logger.Info("manually triggering job", zap.String("job", name))
	return s.daemon.RunScan()
}
