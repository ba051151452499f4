package usecase

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
	"github.com/hszk-dev/mediarelay/internal/domain/repository"
	"github.com/hszk-dev/mediarelay/internal/infrastructure/upstream"
	"github.com/hszk-dev/mediarelay/internal/registry"
)

// testRegistry builds a small registry with two IDs per kind.
func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]model.MediaEntry{
		{Kind: model.KindVideo, ShortID: "v1", UpstreamObjectID: "obj-v1"},
		{Kind: model.KindVideo, ShortID: "v2", UpstreamObjectID: "obj-v2"},
		{Kind: model.KindEnglishAudio, ShortID: "a1", UpstreamObjectID: "obj-en-a1"},
		{Kind: model.KindEnglishAudio, ShortID: "a2", UpstreamObjectID: "obj-en-a2"},
		{Kind: model.KindHindiAudio, ShortID: "a1", UpstreamObjectID: "obj-hi-a1"},
		{Kind: model.KindHindiAudio, ShortID: "a2", UpstreamObjectID: "obj-hi-a2"},
	})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

// mockResolver provides a configurable mock for UpstreamResolver.
type mockResolver struct {
	resolveFn func(ctx context.Context, objectID string) (*url.URL, error)
}

func (m *mockResolver) Resolve(ctx context.Context, objectID string) (*url.URL, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, objectID)
	}
	return &url.URL{Scheme: "http", Host: "upstream.test", Path: "/" + objectID}, nil
}

// mockFetcher provides a configurable mock for Fetcher.
type mockFetcher struct {
	getFn  func(ctx context.Context, req upstream.Request) (*upstream.Response, error)
	headFn func(ctx context.Context, req upstream.Request) (*upstream.Response, error)
}

func (m *mockFetcher) Get(ctx context.Context, req upstream.Request) (*upstream.Response, error) {
	if m.getFn != nil {
		return m.getFn(ctx, req)
	}
	return nil, &upstream.Error{Kind: upstream.KindTransport}
}

func (m *mockFetcher) Head(ctx context.Context, req upstream.Request) (*upstream.Response, error) {
	if m.headFn != nil {
		return m.headFn(ctx, req)
	}
	return nil, &upstream.Error{Kind: upstream.KindTransport}
}

// mockProber provides a configurable mock for Prober.
type mockProber struct {
	mu      sync.Mutex
	calls   int
	probeFn func(ctx context.Context, entry model.MediaEntry, timeout time.Duration) model.ProbeResult
}

func (m *mockProber) Probe(ctx context.Context, entry model.MediaEntry, timeout time.Duration) model.ProbeResult {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.probeFn != nil {
		return m.probeFn(ctx, entry, timeout)
	}
	return model.ProbeResult{Kind: entry.Kind, ID: entry.ShortID, Accessible: true, Status: model.ProbeOK}
}

func (m *mockProber) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockProbeCache provides a configurable mock for ProbeCache.
type mockProbeCache struct {
	getFn    func(ctx context.Context, ref model.MediaRef) (*model.ProbeResult, error)
	setFn    func(ctx context.Context, result *model.ProbeResult, ttl time.Duration) error
	deleteFn func(ctx context.Context, ref model.MediaRef) error
}

func (m *mockProbeCache) Get(ctx context.Context, ref model.MediaRef) (*model.ProbeResult, error) {
	if m.getFn != nil {
		return m.getFn(ctx, ref)
	}
	return nil, nil
}

func (m *mockProbeCache) Set(ctx context.Context, result *model.ProbeResult, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, result, ttl)
	}
	return nil
}

func (m *mockProbeCache) Delete(ctx context.Context, ref model.MediaRef) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ref)
	}
	return nil
}

// mockSweepRepository provides a configurable mock for SweepRepository.
type mockSweepRepository struct {
	createFn  func(ctx context.Context, sweep *model.Sweep) error
	getByIDFn func(ctx context.Context, id uuid.UUID) (*model.Sweep, error)
	updateFn  func(ctx context.Context, sweep *model.Sweep) error
}

func (m *mockSweepRepository) Create(ctx context.Context, sweep *model.Sweep) error {
	if m.createFn != nil {
		return m.createFn(ctx, sweep)
	}
	return nil
}

func (m *mockSweepRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Sweep, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrSweepNotFound
}

func (m *mockSweepRepository) Update(ctx context.Context, sweep *model.Sweep) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, sweep)
	}
	return nil
}

// mockMessageQueue provides a configurable mock for MessageQueue.
type mockMessageQueue struct {
	publishSweepTaskFn  func(ctx context.Context, task repository.SweepTask) error
	consumeSweepTasksFn func(ctx context.Context, handler func(task repository.SweepTask) error) error
}

func (m *mockMessageQueue) PublishSweepTask(ctx context.Context, task repository.SweepTask) error {
	if m.publishSweepTaskFn != nil {
		return m.publishSweepTaskFn(ctx, task)
	}
	return nil
}

func (m *mockMessageQueue) ConsumeSweepTasks(ctx context.Context, handler func(task repository.SweepTask) error) error {
	if m.consumeSweepTasksFn != nil {
		return m.consumeSweepTasksFn(ctx, handler)
	}
	return nil
}

func (m *mockMessageQueue) Close() error {
	return nil
}

// mockDiagnosticsService provides a configurable mock for DiagnosticsService.
type mockDiagnosticsService struct {
	checkAllFn func(ctx context.Context) *model.SweepReport
}

func (m *mockDiagnosticsService) CheckOne(ctx context.Context, ref model.MediaRef) (*model.ProbeResult, error) {
	return nil, repository.ErrMediaNotFound
}

func (m *mockDiagnosticsService) CheckSample(ctx context.Context) *model.HealthReport {
	return &model.HealthReport{Status: model.HealthOK}
}

func (m *mockDiagnosticsService) CheckAll(ctx context.Context) *model.SweepReport {
	if m.checkAllFn != nil {
		return m.checkAllFn(ctx)
	}
	return model.NewSweepReport()
}

func (m *mockDiagnosticsService) ListFiles() *FileListing {
	return &FileListing{}
}
