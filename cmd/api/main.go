package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hszk-dev/mediarelay/internal/api"
	"github.com/hszk-dev/mediarelay/internal/api/handler"
	"github.com/hszk-dev/mediarelay/internal/api/middleware"
	"github.com/hszk-dev/mediarelay/internal/app"
	"github.com/hszk-dev/mediarelay/internal/config"
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

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	services, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer services.Close()

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORS.AllowedOrigins
	cors.MaxAge = cfg.CORS.MaxAge

	r := api.NewRouter(api.Deps{
		Logger:      logger,
		Registry:    services.Registry,
		Streams:     services.Streams,
		Diagnostics: services.Diagnostics,
		Sweeps:      services.Sweeps,
		Media: handler.MediaHandlerConfig{
			CacheMaxAge: cfg.Media.CacheMaxAge,
			ETagSecret:  cfg.Media.ETagSecret,
		},
		CORS:    cors,
		Metrics: cfg.Metrics.Enabled,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			slog.Int("port", cfg.Server.Port),
			slog.String("upstream", cfg.Upstream.Backend),
			slog.Bool("sweeps", services.Sweeps != nil),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		// Open media streams outlived the grace period; cut them off.
		cancel()
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
