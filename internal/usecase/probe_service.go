package usecase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
	"github.com/hszk-dev/mediarelay/internal/domain/repository"
	"github.com/hszk-dev/mediarelay/internal/infrastructure/metrics"
	"github.com/hszk-dev/mediarelay/internal/infrastructure/upstream"
)

// Prober checks whether one registered entry is reachable upstream.
// Every upstream failure is captured in the result; Probe never fails.
type Prober interface {
	Probe(ctx context.Context, entry model.MediaEntry, timeout time.Duration) model.ProbeResult
}

type headProber struct {
	resolver repository.UpstreamResolver
	fetcher  Fetcher
	now      func() time.Time
}

// NewProber creates a Prober that issues an upstream HEAD per check.
func NewProber(resolver repository.UpstreamResolver, fetcher Fetcher) Prober {
	return &headProber{
		resolver: resolver,
		fetcher:  fetcher,
		now:      time.Now,
	}
}

func (p *headProber) Probe(ctx context.Context, entry model.MediaEntry, timeout time.Duration) model.ProbeResult {
	result := model.ProbeResult{
		Kind: entry.Kind,
		ID:   entry.ShortID,
	}
	defer func() {
		if result.Accessible {
			metrics.ProbesTotal.WithLabelValues(metrics.ProbeAccessible).Inc()
		} else {
			metrics.ProbesTotal.WithLabelValues(metrics.ProbeInaccessible).Inc()
		}
	}()

	target, err := p.resolver.Resolve(ctx, entry.UpstreamObjectID)
	if err != nil {
		result.Status = model.ProbeError
		result.Error = "upstream object cannot be addressed"
		result.CheckedAt = p.now().UTC()
		return result
	}

	resp, err := p.fetcher.Head(ctx, upstream.Request{URL: target, Timeout: timeout})
	result.CheckedAt = p.now().UTC()
	if err != nil {
		result.Status = model.ProbeError
		result.Error = probeErrorMessage(err)
		if ue, ok := upstream.AsError(err); ok {
			result.StatusCode = ue.StatusCode
			if ue.Kind == upstream.KindTooLarge {
				size := ue.ContentLength
				result.ContentLength = &size
			}
		}
		return result
	}
	defer func() { _ = resp.Close() }()

	result.Accessible = true
	result.Status = model.ProbeOK
	result.StatusCode = resp.StatusCode
	result.ContentType = resp.ContentType
	result.LastModified = resp.LastModified
	if resp.ContentLength >= 0 {
		size := resp.ContentLength
		result.ContentLength = &size
	}
	return result
}

// probeErrorMessage describes a failed probe without echoing raw upstream
// error strings, which may carry signed URLs.
func probeErrorMessage(err error) string {
	ue, ok := upstream.AsError(err)
	if !ok {
		return "upstream request failed"
	}
	switch ue.Kind {
	case upstream.KindTimeout:
		return "upstream timeout"
	case upstream.KindRejected:
		text := ue.StatusText
		if text == "" {
			text = http.StatusText(ue.StatusCode)
		}
		return fmt.Sprintf("upstream returned %d %s", ue.StatusCode, text)
	case upstream.KindTooLarge:
		return "upstream content exceeds size limit"
	default:
		return "upstream unreachable"
	}
}
