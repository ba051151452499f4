package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
)

// DiagnosticsServiceConfig holds configuration for DiagnosticsService.
type DiagnosticsServiceConfig struct {
	// ProbeTimeout bounds a single on-demand probe.
	ProbeTimeout time.Duration
	// SweepProbeTimeout bounds each probe of the health sample and full sweep.
	SweepProbeTimeout time.Duration
	// Concurrency caps the number of in-flight probes during CheckAll.
	Concurrency int
	// Sample lists the media probed by CheckSample.
	Sample []model.MediaRef
}

// DefaultHealthSample is the first ID of each kind.
var DefaultHealthSample = []model.MediaRef{
	{Kind: model.KindVideo, ShortID: "v1"},
	{Kind: model.KindEnglishAudio, ShortID: "a1"},
	{Kind: model.KindHindiAudio, ShortID: "a1"},
}

// DefaultDiagnosticsServiceConfig returns the default configuration.
func DefaultDiagnosticsServiceConfig() DiagnosticsServiceConfig {
	return DiagnosticsServiceConfig{
		ProbeTimeout:      15 * time.Second,
		SweepProbeTimeout: 10 * time.Second,
		Concurrency:       4,
		Sample:            DefaultHealthSample,
	}
}

// FileListing is the set of registered short IDs grouped by kind.
type FileListing struct {
	Videos       []string       `json:"videos"`
	EnglishAudio []string       `json:"englishAudio"`
	HindiAudio   []string       `json:"hindiAudio"`
	Counts       map[string]int `json:"counts"`
	TotalFiles   int            `json:"totalFiles"`
}

// DiagnosticsService answers accessibility questions about the registry.
// Probe failures are reported inside results; only lookups can fail.
type DiagnosticsService interface {
	// CheckOne probes one media. Returns repository.ErrMediaNotFound if the
	// ref is not registered.
	CheckOne(ctx context.Context, ref model.MediaRef) (*model.ProbeResult, error)

	// CheckSample probes the configured health sample.
	CheckSample(ctx context.Context) *model.HealthReport

	// CheckAll probes every registered media with bounded parallelism.
	CheckAll(ctx context.Context) *model.SweepReport

	// ListFiles returns every registered short ID grouped by kind.
	ListFiles() *FileListing
}

type diagnosticsService struct {
	registry MediaLookup
	prober   Prober

	probeTimeout      time.Duration
	sweepProbeTimeout time.Duration
	concurrency       int
	sample            []model.MediaRef
}

// NewDiagnosticsService creates a new DiagnosticsService instance.
func NewDiagnosticsService(registry MediaLookup, prober Prober, cfg DiagnosticsServiceConfig) DiagnosticsService {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &diagnosticsService{
		registry:          registry,
		prober:            prober,
		probeTimeout:      cfg.ProbeTimeout,
		sweepProbeTimeout: cfg.SweepProbeTimeout,
		concurrency:       concurrency,
		sample:            cfg.Sample,
	}
}

func (s *diagnosticsService) CheckOne(ctx context.Context, ref model.MediaRef) (*model.ProbeResult, error) {
	entry, err := s.registry.Lookup(ref.Kind, ref.ShortID)
	if err != nil {
		return nil, err
	}
	result := s.prober.Probe(ctx, entry, s.probeTimeout)
	return &result, nil
}

func (s *diagnosticsService) CheckSample(ctx context.Context) *model.HealthReport {
	report := &model.HealthReport{
		Status:    model.HealthOK,
		Timestamp: time.Now().UTC(),
		Media:     s.counts(),
		Tests:     make(map[string]string, len(s.sample)),
	}

	results := make([]string, len(s.sample))
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, ref := range s.sample {
		entry, err := s.registry.Lookup(ref.Kind, ref.ShortID)
		if err != nil {
			results[i] = "error: not registered"
			continue
		}
		g.Go(func() error {
			result := s.prober.Probe(ctx, entry, s.sweepProbeTimeout)
			if result.Accessible {
				results[i] = "accessible"
			} else {
				results[i] = fmt.Sprintf("error: %s", result.Error)
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, ref := range s.sample {
		report.Tests[ref.String()] = results[i]
		if results[i] != "accessible" {
			report.Status = model.HealthDegraded
		}
	}
	return report
}

func (s *diagnosticsService) CheckAll(ctx context.Context) *model.SweepReport {
	report := model.NewSweepReport()
	entries := s.registry.Entries()

	// Each goroutine owns one slot, so no locking is needed.
	results := make([]model.ProbeResult, len(entries))
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, entry := range entries {
		g.Go(func() error {
			results[i] = s.prober.Probe(ctx, entry, s.sweepProbeTimeout)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		report.Add(r)
	}
	report.FinishedAt = time.Now()
	return report
}

func (s *diagnosticsService) ListFiles() *FileListing {
	listing := &FileListing{
		Videos:       s.registry.ListIDs(model.KindVideo),
		EnglishAudio: s.registry.ListIDs(model.KindEnglishAudio),
		HindiAudio:   s.registry.ListIDs(model.KindHindiAudio),
		Counts:       s.counts(),
	}
	listing.TotalFiles = len(listing.Videos) + len(listing.EnglishAudio) + len(listing.HindiAudio)
	return listing
}

func (s *diagnosticsService) counts() map[string]int {
	counts := make(map[string]int, len(model.Kinds))
	for kind, n := range s.registry.Counts() {
		counts[kind.CollectionKey()] = n
	}
	return counts
}
