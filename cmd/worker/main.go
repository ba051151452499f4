package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/hszk-dev/mediarelay/internal/app"
	"github.com/hszk-dev/mediarelay/internal/config"
	"github.com/hszk-dev/mediarelay/internal/domain/repository"
	"github.com/hszk-dev/mediarelay/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Sweep.Enabled {
		return errors.New("worker requires SWEEP_ENABLED=true")
	}

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	services, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer services.Close()

	scheduler := usecase.NewSweepScheduler(services.Sweeps, cfg.Sweep.Schedule, logger)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// WaitGroup to track in-flight sweeps
	var wg sync.WaitGroup

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting worker, consuming sweep tasks")
		err := services.Queue.ConsumeSweepTasks(ctx, func(task repository.SweepTask) error {
			wg.Add(1)
			defer wg.Done()

			logger.Info("processing sweep",
				slog.String("sweep_id", task.SweepID.String()),
				slog.Int("retry_count", task.RetryCount),
			)

			if err := services.Sweeps.ProcessTask(ctx, task); err != nil {
				logger.Error("sweep processing failed",
					slog.String("sweep_id", task.SweepID.String()),
					slog.Int("retry_count", task.RetryCount),
					slog.String("error", err.Error()),
				)
				return err
			}

			logger.Info("sweep completed", slog.String("sweep_id", task.SweepID.String()))
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("consumer error: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Stop consuming; a sweep in flight sees the cancellation through its probes.
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all in-flight sweeps completed")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, some sweeps may not have completed")
	}

	logger.Info("worker stopped")
	return nil
}
