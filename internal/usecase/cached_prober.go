package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
	"github.com/hszk-dev/mediarelay/internal/infrastructure/cache"
	"github.com/hszk-dev/mediarelay/internal/infrastructure/metrics"
)

// CachedProberConfig holds configuration for the caching Prober decorator.
type CachedProberConfig struct {
	// TTL is how long a probe result is reused.
	TTL time.Duration
}

// DefaultCachedProberConfig returns the default configuration.
func DefaultCachedProberConfig() CachedProberConfig {
	return CachedProberConfig{
		TTL: 30 * time.Second,
	}
}

// cachedProber wraps a Prober with a shared result cache.
// Concurrent probes of the same media and timeout collapse into one
// upstream HEAD.
type cachedProber struct {
	delegate Prober
	cache    cache.ProbeCache
	sfGroup  singleflight.Group

	ttl time.Duration
}

// NewCachedProber creates a Prober that consults probeCache before delegate.
func NewCachedProber(delegate Prober, probeCache cache.ProbeCache, cfg CachedProberConfig) Prober {
	return &cachedProber{
		delegate: delegate,
		cache:    probeCache,
		ttl:      cfg.TTL,
	}
}

func (p *cachedProber) Probe(ctx context.Context, entry model.MediaEntry, timeout time.Duration) model.ProbeResult {
	ref := entry.Ref()
	key := ref.String() + "|" + timeout.String()

	// The shared flight must not inherit the cancellation of whichever
	// caller started it; each caller only stops waiting on its own ctx.
	flightCtx := context.WithoutCancel(ctx)
	ch := p.sfGroup.DoChan(key, func() (any, error) {
		return p.probeWithCache(flightCtx, entry, timeout), nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
		} else {
			metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
		}
		return res.Val.(model.ProbeResult)
	case <-ctx.Done():
		return model.ProbeResult{
			Kind:      entry.Kind,
			ID:        entry.ShortID,
			Status:    model.ProbeError,
			Error:     "probe cancelled",
			CheckedAt: time.Now().UTC(),
		}
	}
}

// probeWithCache implements the cache-aside pattern. Cache failures are
// logged and never fail the probe. ctx carries no caller cancellation, so
// the stored result always describes the upstream.
func (p *cachedProber) probeWithCache(ctx context.Context, entry model.MediaEntry, timeout time.Duration) model.ProbeResult {
	ref := entry.Ref()

	cached, err := p.cache.Get(ctx, ref)
	if err != nil {
		slog.Warn("probe cache get failed, probing upstream",
			"ref", ref.String(),
			"error", err,
		)
	}
	if cached != nil {
		return *cached
	}

	probeCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		probeCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	result := p.delegate.Probe(probeCtx, entry, timeout)
	cancel()

	if err := p.cache.Set(ctx, &result, p.ttl); err != nil {
		slog.Warn("failed to cache probe result",
			"ref", ref.String(),
			"error", err,
		)
	}

	return result
}
