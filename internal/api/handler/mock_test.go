package handler

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
	"github.com/hszk-dev/mediarelay/internal/domain/repository"
	"github.com/hszk-dev/mediarelay/internal/infrastructure/upstream"
	"github.com/hszk-dev/mediarelay/internal/registry"
	"github.com/hszk-dev/mediarelay/internal/usecase"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]model.MediaEntry{
		{Kind: model.KindVideo, ShortID: "v1", UpstreamObjectID: "obj-v1"},
		{Kind: model.KindEnglishAudio, ShortID: "a1", UpstreamObjectID: "obj-en-a1"},
		{Kind: model.KindHindiAudio, ShortID: "a1", UpstreamObjectID: "obj-hi-a1"},
	})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

type staticResolver struct{}

func (staticResolver) Resolve(_ context.Context, objectID string) (*url.URL, error) {
	return &url.URL{Scheme: "http", Host: "upstream.test", Path: "/" + objectID}, nil
}

// mockFetcher provides a configurable mock for usecase.Fetcher.
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

func bodyResponse(status int, contentType, body string) *upstream.Response {
	return &upstream.Response{
		StatusCode:    status,
		ContentLength: int64(len(body)),
		ContentType:   contentType,
		Body:          io.NopCloser(strings.NewReader(body)),
	}
}

// failingReader returns data once, then err.
type failingReader struct {
	data string
	err  error
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, r.err
	}
	r.done = true
	return copy(p, r.data), nil
}

// mockDiagnosticsService provides a configurable mock for usecase.DiagnosticsService.
type mockDiagnosticsService struct {
	checkOneFn    func(ctx context.Context, ref model.MediaRef) (*model.ProbeResult, error)
	checkSampleFn func(ctx context.Context) *model.HealthReport
	checkAllFn    func(ctx context.Context) *model.SweepReport
	listFilesFn   func() *usecase.FileListing
}

func (m *mockDiagnosticsService) CheckOne(ctx context.Context, ref model.MediaRef) (*model.ProbeResult, error) {
	if m.checkOneFn != nil {
		return m.checkOneFn(ctx, ref)
	}
	return nil, repository.ErrMediaNotFound
}

func (m *mockDiagnosticsService) CheckSample(ctx context.Context) *model.HealthReport {
	if m.checkSampleFn != nil {
		return m.checkSampleFn(ctx)
	}
	return &model.HealthReport{Status: model.HealthOK}
}

func (m *mockDiagnosticsService) CheckAll(ctx context.Context) *model.SweepReport {
	if m.checkAllFn != nil {
		return m.checkAllFn(ctx)
	}
	return model.NewSweepReport()
}

func (m *mockDiagnosticsService) ListFiles() *usecase.FileListing {
	if m.listFilesFn != nil {
		return m.listFilesFn()
	}
	return &usecase.FileListing{}
}

// mockSweepService provides a configurable mock for usecase.SweepService.
type mockSweepService struct {
	requestSweepFn func(ctx context.Context) (*model.Sweep, error)
	getSweepFn     func(ctx context.Context, id uuid.UUID) (*model.Sweep, error)
}

func (m *mockSweepService) RequestSweep(ctx context.Context) (*model.Sweep, error) {
	if m.requestSweepFn != nil {
		return m.requestSweepFn(ctx)
	}
	return model.NewSweep(), nil
}

func (m *mockSweepService) ProcessTask(ctx context.Context, task repository.SweepTask) error {
	return nil
}

func (m *mockSweepService) GetSweep(ctx context.Context, id uuid.UUID) (*model.Sweep, error) {
	if m.getSweepFn != nil {
		return m.getSweepFn(ctx, id)
	}
	return nil, repository.ErrSweepNotFound
}
