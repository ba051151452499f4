package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
)

// SweepRequester enqueues a sweep. SweepService implements it.
type SweepRequester interface {
	RequestSweep(ctx context.Context) (*model.Sweep, error)
}

// SweepScheduler requests sweeps on a cron schedule, e.g. "0 */6 * * *" or
// "@every 6h".
type SweepScheduler struct {
	requester SweepRequester
	schedule  string
	cron      *cron.Cron
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewSweepScheduler creates a scheduler. An empty schedule disables it.
func NewSweepScheduler(requester SweepRequester, schedule string, logger *slog.Logger) *SweepScheduler {
	return &SweepScheduler{
		requester: requester,
		schedule:  schedule,
		cron:      cron.New(),
		logger:    logger.With("component", "sweep_scheduler"),
	}
}

// Start registers the job and starts the cron loop. It stops when ctx is done.
func (s *SweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("sweep schedule not configured, skipping scheduler")
		return nil
	}
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule sweeps: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("sweep scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the scheduler and waits for a running job to return.
func (s *SweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("sweep scheduler stopped")
}

// IsRunning reports whether the cron loop is active.
func (s *SweepScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *SweepScheduler) runOnce(ctx context.Context) {
	sweep, err := s.requester.RequestSweep(ctx)
	if err != nil {
		s.logger.Error("scheduled sweep request failed", "error", err)
		return
	}
	s.logger.Info("scheduled sweep requested", "sweep_id", sweep.ID.String())
}
