// Package app wires configuration to the relay's services. Both binaries
// build the same service graph through Build.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/mediarelay/internal/config"
	"github.com/hszk-dev/mediarelay/internal/domain/repository"
	"github.com/hszk-dev/mediarelay/internal/infrastructure/cache"
	"github.com/hszk-dev/mediarelay/internal/infrastructure/postgres"
	"github.com/hszk-dev/mediarelay/internal/infrastructure/queue"
	"github.com/hszk-dev/mediarelay/internal/infrastructure/storage"
	"github.com/hszk-dev/mediarelay/internal/infrastructure/upstream"
	"github.com/hszk-dev/mediarelay/internal/registry"
	"github.com/hszk-dev/mediarelay/internal/usecase"
)

// Services is the assembled service graph.
type Services struct {
	Registry    *registry.Registry
	Fetcher     *upstream.Client
	Streams     usecase.StreamService
	Diagnostics usecase.DiagnosticsService
	// Sweeps and Queue are nil unless sweeps are enabled.
	Sweeps usecase.SweepService
	Queue  *queue.Client

	closers []func() error
}

// Build connects to the configured backends and assembles the services.
// On error every connection opened so far is closed.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *Services, err error) {
	s := &Services{}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	var pg *postgres.Client
	if cfg.Registry.Source == config.RegistryPostgres || cfg.Sweep.Enabled {
		pg, err = postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		s.closers = append(s.closers, func() error { pg.Close(); return nil })
		logger.Info("connected to PostgreSQL")
	}

	s.Registry, err = openRegistry(ctx, cfg.Registry, pg)
	if err != nil {
		return nil, err
	}
	logger.Info("media registry loaded",
		slog.String("source", cfg.Registry.Source),
		slog.Int("entries", s.Registry.Len()),
	)

	resolver, err := newResolver(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s.Fetcher = upstream.NewClient(upstream.ClientConfig{
		UserAgent:    cfg.Upstream.UserAgent,
		MaxRedirects: cfg.Upstream.MaxRedirects,
		MaxBytes:     cfg.Upstream.MaxContentBytes,
	})
	s.closers = append(s.closers, func() error { s.Fetcher.CloseIdleConnections(); return nil })

	s.Streams = usecase.NewStreamService(s.Registry, resolver, s.Fetcher, usecase.StreamServiceConfig{
		VideoTimeout: cfg.Upstream.VideoTimeout,
		AudioTimeout: cfg.Upstream.AudioTimeout,
	})

	prober := usecase.NewProber(resolver, s.Fetcher)
	if cfg.Redis.Enabled {
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.closers = append(s.closers, rc.Close)
		if err = rc.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("connected to Redis")
		prober = usecase.NewCachedProber(prober, cache.NewRedisProbeCache(rc), usecase.CachedProberConfig{
			TTL: cfg.Probe.CacheTTL,
		})
	}

	sample, err := cfg.Probe.Sample()
	if err != nil {
		return nil, err
	}
	s.Diagnostics = usecase.NewDiagnosticsService(s.Registry, prober, usecase.DiagnosticsServiceConfig{
		ProbeTimeout:      cfg.Probe.Timeout,
		SweepProbeTimeout: cfg.Probe.SweepTimeout,
		Concurrency:       cfg.Probe.SweepConcurrency,
		Sample:            sample,
	})

	if cfg.Sweep.Enabled {
		s.Queue, err = queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		s.closers = append(s.closers, s.Queue.Close)
		logger.Info("connected to RabbitMQ")

		s.Sweeps = usecase.NewSweepService(
			postgres.NewSweepRepository(pg.Pool()),
			s.Queue,
			s.Diagnostics,
			usecase.SweepServiceConfig{MaxRetries: cfg.Sweep.MaxRetries},
		)
	}

	return s, nil
}

// Close releases every backend connection in reverse order of opening.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func openRegistry(ctx context.Context, cfg config.RegistryConfig, pg *postgres.Client) (*registry.Registry, error) {
	switch cfg.Source {
	case config.RegistryFile:
		return registry.LoadFile(cfg.File)
	case config.RegistryPostgres:
		return registry.FromRepository(ctx, postgres.NewMediaEntryRepository(pg.Pool()))
	default:
		return registry.Builtin(), nil
	}
}

func newResolver(ctx context.Context, cfg *config.Config) (repository.UpstreamResolver, error) {
	if cfg.Upstream.Backend == config.BackendMinIO {
		r, err := storage.NewPresignResolver(ctx, storage.ClientConfig{
			Endpoint:       cfg.MinIO.Endpoint,
			PublicEndpoint: cfg.MinIO.PublicEndpoint,
			AccessKey:      cfg.MinIO.AccessKey,
			SecretKey:      cfg.MinIO.SecretKey,
			Bucket:         cfg.MinIO.Bucket,
			Region:         cfg.MinIO.Region,
			UseSSL:         cfg.MinIO.UseSSL,
			PresignTTL:     cfg.MinIO.PresignTTL,
			VerifyOnNew:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
		}
		return r, nil
	}

	r, err := upstream.NewDriveResolver(cfg.Upstream.DriveBaseURL)
	if err != nil {
		return nil, err
	}
	return r, nil
}
