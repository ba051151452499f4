package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
)

func TestCachedProber_CacheHit(t *testing.T) {
	entry := model.MediaEntry{Kind: model.KindVideo, ShortID: "v1", UpstreamObjectID: "obj-v1"}
	cached := &model.ProbeResult{Kind: model.KindVideo, ID: "v1", Accessible: true, Status: model.ProbeOK, StatusCode: 200}

	delegate := &mockProber{}
	probeCache := &mockProbeCache{
		getFn: func(ctx context.Context, ref model.MediaRef) (*model.ProbeResult, error) {
			if ref != entry.Ref() {
				t.Errorf("cache key = %v, want %v", ref, entry.Ref())
			}
			return cached, nil
		},
		setFn: func(ctx context.Context, result *model.ProbeResult, ttl time.Duration) error {
			t.Error("Set called on cache hit")
			return nil
		},
	}

	prober := NewCachedProber(delegate, probeCache, DefaultCachedProberConfig())
	got := prober.Probe(context.Background(), entry, time.Second)

	if got.StatusCode != 200 || !got.Accessible {
		t.Errorf("Probe() = %+v, want cached result", got)
	}
	if delegate.callCount() != 0 {
		t.Errorf("delegate called %d times on cache hit", delegate.callCount())
	}
}

func TestCachedProber_CacheMiss(t *testing.T) {
	entry := model.MediaEntry{Kind: model.KindHindiAudio, ShortID: "a3", UpstreamObjectID: "obj"}

	var stored *model.ProbeResult
	var storedTTL time.Duration
	delegate := &mockProber{
		probeFn: func(ctx context.Context, e model.MediaEntry, timeout time.Duration) model.ProbeResult {
			return model.ProbeResult{Kind: e.Kind, ID: e.ShortID, Accessible: false, Status: model.ProbeError, Error: "upstream timeout"}
		},
	}
	probeCache := &mockProbeCache{
		setFn: func(ctx context.Context, result *model.ProbeResult, ttl time.Duration) error {
			stored = result
			storedTTL = ttl
			return nil
		},
	}

	prober := NewCachedProber(delegate, probeCache, CachedProberConfig{TTL: 45 * time.Second})
	got := prober.Probe(context.Background(), entry, time.Second)

	if got.Accessible {
		t.Error("Probe() should report delegate result")
	}
	if delegate.callCount() != 1 {
		t.Errorf("delegate called %d times, want 1", delegate.callCount())
	}
	if stored == nil || stored.Ref() != entry.Ref() {
		t.Fatalf("stored = %+v, want result for %s", stored, entry.Ref())
	}
	if storedTTL != 45*time.Second {
		t.Errorf("TTL = %v, want 45s", storedTTL)
	}
}

func TestCachedProber_CacheErrorsAreNotFatal(t *testing.T) {
	entry := model.MediaEntry{Kind: model.KindVideo, ShortID: "v1", UpstreamObjectID: "obj-v1"}
	delegate := &mockProber{}
	probeCache := &mockProbeCache{
		getFn: func(ctx context.Context, ref model.MediaRef) (*model.ProbeResult, error) {
			return nil, errors.New("redis: connection refused")
		},
		setFn: func(ctx context.Context, result *model.ProbeResult, ttl time.Duration) error {
			return errors.New("redis: connection refused")
		},
	}

	prober := NewCachedProber(delegate, probeCache, DefaultCachedProberConfig())
	got := prober.Probe(context.Background(), entry, time.Second)

	if !got.Accessible {
		t.Errorf("Probe() = %+v, want delegate result", got)
	}
	if delegate.callCount() != 1 {
		t.Errorf("delegate called %d times, want 1", delegate.callCount())
	}
}

func TestCachedProber_CancelledCallerDoesNotCutProbe(t *testing.T) {
	entry := model.MediaEntry{Kind: model.KindVideo, ShortID: "v1", UpstreamObjectID: "obj-v1"}
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	stored := make(chan model.ProbeResult, 1)
	delegate := &mockProber{
		probeFn: func(ctx context.Context, e model.MediaEntry, timeout time.Duration) model.ProbeResult {
			<-release
			if err := ctx.Err(); err != nil {
				t.Errorf("delegate ctx error = %v, want live context", err)
			}
			return model.ProbeResult{Kind: e.Kind, ID: e.ShortID, Accessible: true, Status: model.ProbeOK}
		},
	}
	probeCache := &mockProbeCache{
		setFn: func(ctx context.Context, result *model.ProbeResult, ttl time.Duration) error {
			stored <- *result
			return nil
		},
	}

	prober := NewCachedProber(delegate, probeCache, DefaultCachedProberConfig())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	got := prober.Probe(ctx, entry, time.Second)
	if got.Accessible || got.Error != "probe cancelled" {
		t.Errorf("Probe() = %+v, want cancelled result", got)
	}

	close(release)
	select {
	case r := <-stored:
		if !r.Accessible {
			t.Errorf("stored = %+v, want upstream result", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("probe result was never cached")
	}
}

func TestCachedProber_CancelledCallerLeavesOthersUnaffected(t *testing.T) {
	entry := model.MediaEntry{Kind: model.KindEnglishAudio, ShortID: "a1", UpstreamObjectID: "obj-en-a1"}

	started := make(chan struct{})
	var once sync.Once
	delegate := &mockProber{
		probeFn: func(ctx context.Context, e model.MediaEntry, timeout time.Duration) model.ProbeResult {
			once.Do(func() { close(started) })
			select {
			case <-ctx.Done():
				return model.ProbeResult{Kind: e.Kind, ID: e.ShortID, Status: model.ProbeError, Error: "upstream unreachable"}
			case <-time.After(200 * time.Millisecond):
				return model.ProbeResult{Kind: e.Kind, ID: e.ShortID, Accessible: true, Status: model.ProbeOK}
			}
		},
	}
	prober := NewCachedProber(delegate, &mockProbeCache{}, DefaultCachedProberConfig())

	first, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan model.ProbeResult, 1)
	go func() { firstDone <- prober.Probe(first, entry, time.Second) }()

	<-started
	secondDone := make(chan model.ProbeResult, 1)
	go func() { secondDone <- prober.Probe(context.Background(), entry, time.Second) }()

	time.Sleep(20 * time.Millisecond)
	cancelFirst()

	if r := <-firstDone; r.Accessible {
		t.Errorf("cancelled caller got %+v, want cancelled result", r)
	}
	r := <-secondDone
	if !r.Accessible {
		t.Errorf("uncancelled caller got accessible=false error=%q", r.Error)
	}
	if delegate.callCount() != 1 {
		t.Errorf("delegate called %d times, want 1", delegate.callCount())
	}
}

func TestCachedProber_TimeoutIsPartOfKey(t *testing.T) {
	entry := model.MediaEntry{Kind: model.KindVideo, ShortID: "v1", UpstreamObjectID: "obj-v1"}

	release := make(chan struct{})
	var mu sync.Mutex
	seen := map[time.Duration]int{}
	delegate := &mockProber{
		probeFn: func(ctx context.Context, e model.MediaEntry, timeout time.Duration) model.ProbeResult {
			mu.Lock()
			seen[timeout]++
			mu.Unlock()
			<-release
			return model.ProbeResult{Kind: e.Kind, ID: e.ShortID, Accessible: true, Status: model.ProbeOK}
		},
	}
	prober := NewCachedProber(delegate, &mockProbeCache{}, DefaultCachedProberConfig())

	var wg sync.WaitGroup
	for _, timeout := range []time.Duration{15 * time.Second, 10 * time.Second} {
		wg.Add(1)
		go func(timeout time.Duration) {
			defer wg.Done()
			prober.Probe(context.Background(), entry, timeout)
		}(timeout)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if delegate.callCount() != 2 {
		t.Errorf("delegate called %d times, want one per timeout", delegate.callCount())
	}
	if seen[15*time.Second] != 1 || seen[10*time.Second] != 1 {
		t.Errorf("timeouts seen = %v, want each budget honoured", seen)
	}
}

func TestCachedProber_Singleflight(t *testing.T) {
	entry := model.MediaEntry{Kind: model.KindVideo, ShortID: "v1", UpstreamObjectID: "obj-v1"}

	release := make(chan struct{})
	delegate := &mockProber{
		probeFn: func(ctx context.Context, e model.MediaEntry, timeout time.Duration) model.ProbeResult {
			<-release
			return model.ProbeResult{Kind: e.Kind, ID: e.ShortID, Accessible: true, Status: model.ProbeOK}
		},
	}

	prober := NewCachedProber(delegate, &mockProbeCache{}, DefaultCachedProberConfig())

	const concurrency = 10
	var wg sync.WaitGroup
	results := make([]model.ProbeResult, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = prober.Probe(context.Background(), entry, time.Second)
		}(i)
	}

	// Give the goroutines time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if delegate.callCount() != 1 {
		t.Errorf("delegate called %d times, want 1", delegate.callCount())
	}
	for i, r := range results {
		if !r.Accessible {
			t.Errorf("results[%d] = %+v", i, r)
		}
	}
}
