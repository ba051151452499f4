package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
	"github.com/hszk-dev/mediarelay/internal/domain/repository"
)

const (
	// DefaultMaxRetries is the default number of sweep attempts before the
	// sweep is marked failed.
	DefaultMaxRetries = 3
)

// ErrSweepsDisabled is returned when no queue or store is configured.
var ErrSweepsDisabled = errors.New("sweeps are disabled")

// SweepServiceConfig holds configuration for SweepService.
type SweepServiceConfig struct {
	// MaxRetries is the number of failed attempts after which a sweep is FAILED.
	MaxRetries int
}

// DefaultSweepServiceConfig returns the default configuration.
func DefaultSweepServiceConfig() SweepServiceConfig {
	return SweepServiceConfig{
		MaxRetries: DefaultMaxRetries,
	}
}

// SweepService runs full accessibility sweeps asynchronously.
type SweepService interface {
	// RequestSweep stores a PENDING sweep and enqueues it for a worker.
	RequestSweep(ctx context.Context) (*model.Sweep, error)

	// ProcessTask runs a queued sweep and stores its report.
	// Returns nil on success or permanent failure (max retries exceeded).
	// Returns error for transient failures that should trigger a retry.
	ProcessTask(ctx context.Context, task repository.SweepTask) error

	// GetSweep retrieves a stored sweep. Returns repository.ErrSweepNotFound
	// if it does not exist.
	GetSweep(ctx context.Context, id uuid.UUID) (*model.Sweep, error)
}

type sweepService struct {
	repo        repository.SweepRepository
	queue       repository.MessageQueue
	diagnostics DiagnosticsService

	maxRetries int
}

// NewSweepService creates a new SweepService instance.
func NewSweepService(
	repo repository.SweepRepository,
	queue repository.MessageQueue,
	diagnostics DiagnosticsService,
	cfg SweepServiceConfig,
) SweepService {
	return &sweepService{
		repo:        repo,
		queue:       queue,
		diagnostics: diagnostics,
		maxRetries:  cfg.MaxRetries,
	}
}

func (s *sweepService) RequestSweep(ctx context.Context) (*model.Sweep, error) {
	sweep := model.NewSweep()

	if err := s.repo.Create(ctx, sweep); err != nil {
		return nil, fmt.Errorf("create sweep: %w", err)
	}

	if err := s.queue.PublishSweepTask(ctx, repository.SweepTask{SweepID: sweep.ID}); err != nil {
		// Leave a record explaining why the sweep never ran.
		if failErr := sweep.Fail("could not be enqueued"); failErr == nil {
			if updErr := s.repo.Update(ctx, sweep); updErr != nil {
				slog.Error("failed to mark unqueued sweep as failed",
					"sweep_id", sweep.ID,
					"error", updErr,
				)
			}
		}
		return nil, fmt.Errorf("publish sweep task: %w", err)
	}

	return sweep, nil
}

func (s *sweepService) ProcessTask(ctx context.Context, task repository.SweepTask) error {
	logger := slog.With("sweep_id", task.SweepID, "retry_count", task.RetryCount)

	if task.RetryCount >= s.maxRetries {
		if err := s.markFailed(ctx, task.SweepID, "max retries exceeded"); err != nil {
			// Ack anyway; the sweep stays RUNNING for manual investigation.
			logger.Error("failed to mark sweep as failed", "error", err)
		}
		return nil
	}

	sweep, err := s.repo.GetByID(ctx, task.SweepID)
	if err != nil {
		if errors.Is(err, repository.ErrSweepNotFound) {
			logger.Warn("dropping task for unknown sweep")
			return nil
		}
		return fmt.Errorf("get sweep: %w", err)
	}

	if sweep.IsFinished() {
		return nil
	}

	if sweep.Status == model.SweepPending {
		if err := sweep.TransitionTo(model.SweepRunning); err != nil {
			return fmt.Errorf("transition to running: %w", err)
		}
		if err := s.repo.Update(ctx, sweep); err != nil {
			return fmt.Errorf("update sweep: %w", err)
		}
	}

	logger.Info("sweep started")
	report := s.diagnostics.CheckAll(ctx)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("sweep interrupted: %w", err)
	}

	if err := sweep.Complete(report); err != nil {
		return fmt.Errorf("transition to completed: %w", err)
	}
	if err := s.repo.Update(ctx, sweep); err != nil {
		return fmt.Errorf("update sweep: %w", err)
	}

	logger.Info("sweep completed",
		"working_videos", report.Summary.WorkingVideos,
		"total_videos", report.Summary.TotalVideos,
		"working_audio", report.Summary.WorkingAudio,
		"total_audio", report.Summary.TotalAudio,
	)
	return nil
}

func (s *sweepService) GetSweep(ctx context.Context, id uuid.UUID) (*model.Sweep, error) {
	return s.repo.GetByID(ctx, id)
}

// markFailed moves a non-terminal sweep to FAILED.
func (s *sweepService) markFailed(ctx context.Context, id uuid.UUID, reason string) error {
	sweep, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get sweep: %w", err)
	}

	if sweep.IsFinished() {
		return nil
	}

	if err := sweep.Fail(reason); err != nil {
		return fmt.Errorf("transition to failed: %w", err)
	}

	if err := s.repo.Update(ctx, sweep); err != nil {
		return fmt.Errorf("update sweep: %w", err)
	}

	return nil
}
