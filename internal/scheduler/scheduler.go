// Package scheduler runs the recurring maintenance jobs of the trading bot:
// session keep-alive and the daily risk counter reset.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SessionKeeper renews the exchange session token
type SessionKeeper interface {
	KeepAlive(ctx context.Context) error
}

// DailyResetter zeroes daily trading counters
type DailyResetter interface {
	ResetDaily()
}

// Scheduler manages the bot's recurring jobs
type Scheduler struct {
	cron            *cron.Cron
	logger          *logrus.Logger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	gracefulTimeout time.Duration
}

// NewScheduler creates a scheduler. Jobs run in the given location so the
// daily reset lines up with the exchange's trading day.
func NewScheduler(loc *time.Location, logger *logrus.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(loc)),
		logger:          logger,
		jobIDs:          make([]cron.EntryID, 0),
		gracefulTimeout: 30 * time.Second,
	}
}

// ScheduleKeepAlive renews the session on the given interval. The interval
// must stay under the exchange's session lifetime; the Italian exchange
// expires sessions after 20 minutes.
func (s *Scheduler) ScheduleKeepAlive(keeper SessionKeeper, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if interval <= 0 || interval >= 20*time.Minute {
		return fmt.Errorf("keep-alive interval %v must be positive and under the 20 minute session lifetime", interval)
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := keeper.KeepAlive(ctx); err != nil {
			s.logger.WithError(err).Error("Scheduled session keep-alive failed")
			return
		}
		s.logger.Debug("Session keep-alive succeeded")
	}

	entryID, err := s.cron.AddFunc(fmt.Sprintf("@every %ds", int(interval.Seconds())), jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add keep-alive job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("interval", interval).Info("Scheduled session keep-alive")

	return nil
}

// ScheduleDailyReset zeroes the daily P&L at midnight in the scheduler's
// location.
func (s *Scheduler) ScheduleDailyReset(resetter DailyResetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc("0 0 * * *", func() {
		s.logger.Info("Running daily risk counter reset")
		resetter.ResetDaily()
	})
	if err != nil {
		return fmt.Errorf("failed to add daily reset job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.Info("Scheduled daily risk reset at midnight")

	return nil
}

// ScheduleFunc registers an arbitrary job with a cron expression
func (s *Scheduler) ScheduleFunc(cronExpression string, name string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(cronExpression, fn)
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"job":  name,
		"cron": cronExpression,
	}).Info("Scheduled job")

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(s.gracefulTimeout):
		s.logger.Warn("Scheduler stop timed out waiting for running jobs")
	}

	s.isRunning = false
	s.logger.Info("Scheduler stopped")

	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}

	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}

	return entries
}
