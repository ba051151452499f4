package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
	"github.com/hszk-dev/mediarelay/internal/domain/repository"
	"github.com/hszk-dev/mediarelay/internal/infrastructure/metrics"
	"github.com/hszk-dev/mediarelay/internal/infrastructure/upstream"
)

// pipeBufferSize is the read size of the copy loop. Each read waits for the
// previous write to finish, so a slow client slows the upstream read.
const pipeBufferSize = 32 << 10

// flushEvery bounds how many full chunks may sit in the response buffer
// while the upstream keeps up.
const flushEvery = 8

var (
	// ErrClientAborted is returned by Pipe when the client went away.
	ErrClientAborted = errors.New("client aborted stream")

	// ErrStreamFault is returned by Pipe when the upstream body failed mid-transfer.
	ErrStreamFault = errors.New("upstream stream fault")
)

// MediaLookup is the read side of the media registry.
type MediaLookup interface {
	Lookup(kind model.Kind, shortID string) (model.MediaEntry, error)
	ListIDs(kind model.Kind) []string
	Entries() []model.MediaEntry
	Counts() map[model.Kind]int
}

// Fetcher issues upstream requests. *upstream.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, req upstream.Request) (*upstream.Response, error)
	Head(ctx context.Context, req upstream.Request) (*upstream.Response, error)
}

// StreamServiceConfig holds configuration for StreamService.
type StreamServiceConfig struct {
	// VideoTimeout bounds the wait for upstream headers on video requests.
	VideoTimeout time.Duration
	// AudioTimeout bounds the wait for upstream headers on audio requests.
	AudioTimeout time.Duration
}

// DefaultStreamServiceConfig returns the default configuration.
func DefaultStreamServiceConfig() StreamServiceConfig {
	return StreamServiceConfig{
		VideoTimeout: 60 * time.Second,
		AudioTimeout: 30 * time.Second,
	}
}

// StreamService forwards range requests to the upstream blob store.
type StreamService interface {
	// Lookup validates a (kind, short ID) pair against the registry.
	// Returns repository.ErrMediaNotFound for unregistered media.
	Lookup(kind model.Kind, shortID string) (model.MediaEntry, error)

	// Open resolves entry and issues the upstream GET, forwarding rangeHeader
	// when non-empty. Cancelling ctx releases the upstream connection.
	// Errors are *upstream.Error for upstream failures.
	Open(ctx context.Context, entry model.MediaEntry, rangeHeader string) (*Stream, error)

	// Head fetches upstream headers for entry without a body.
	Head(ctx context.Context, entry model.MediaEntry) (*upstream.Response, error)
}

type streamService struct {
	registry MediaLookup
	resolver repository.UpstreamResolver
	fetcher  Fetcher

	videoTimeout time.Duration
	audioTimeout time.Duration
}

// NewStreamService creates a new StreamService instance.
func NewStreamService(
	registry MediaLookup,
	resolver repository.UpstreamResolver,
	fetcher Fetcher,
	cfg StreamServiceConfig,
) StreamService {
	return &streamService{
		registry:     registry,
		resolver:     resolver,
		fetcher:      fetcher,
		videoTimeout: cfg.VideoTimeout,
		audioTimeout: cfg.AudioTimeout,
	}
}

func (s *streamService) Lookup(kind model.Kind, shortID string) (model.MediaEntry, error) {
	return s.registry.Lookup(kind, shortID)
}

func (s *streamService) Open(ctx context.Context, entry model.MediaEntry, rangeHeader string) (*Stream, error) {
	st := newStream(entry, rangeHeader)

	st.transition(model.StreamResolvingUpstream)
	target, err := s.resolver.Resolve(ctx, entry.UpstreamObjectID)
	if err != nil {
		st.fail(err)
		return nil, fmt.Errorf("resolve upstream: %w", err)
	}

	st.transition(model.StreamAwaitingHeaders)
	resp, err := s.fetcher.Get(ctx, upstream.Request{
		URL:     target,
		Range:   rangeHeader,
		Timeout: s.timeoutFor(entry.Kind),
	})
	if err != nil {
		if ctx.Err() != nil {
			st.finish(model.StreamAborted, err)
		} else {
			st.fail(err)
		}
		return nil, err
	}

	st.upstream = resp
	st.transition(model.StreamStreaming)
	metrics.ActiveStreams.WithLabelValues(entry.Kind.String()).Inc()
	return st, nil
}

func (s *streamService) Head(ctx context.Context, entry model.MediaEntry) (*upstream.Response, error) {
	target, err := s.resolver.Resolve(ctx, entry.UpstreamObjectID)
	if err != nil {
		return nil, fmt.Errorf("resolve upstream: %w", err)
	}
	return s.fetcher.Head(ctx, upstream.Request{
		URL:     target,
		Timeout: s.timeoutFor(entry.Kind),
	})
}

func (s *streamService) timeoutFor(kind model.Kind) time.Duration {
	if kind.IsAudio() {
		return s.audioTimeout
	}
	return s.videoTimeout
}

// Stream is one open upstream response being relayed to one client.
// It is not safe for concurrent use.
type Stream struct {
	Entry model.MediaEntry
	Range string

	upstream  *upstream.Response
	state     model.StreamState
	logger    *slog.Logger
	started   time.Time
	bytes     int64
	closeOnce sync.Once
}

func newStream(entry model.MediaEntry, rangeHeader string) *Stream {
	return &Stream{
		Entry:   entry,
		Range:   rangeHeader,
		state:   model.StreamIdle,
		started: time.Now(),
		logger: slog.With(
			"kind", entry.Kind.String(),
			"id", entry.ShortID,
			"range", rangeHeader,
		),
	}
}

// Upstream returns the upstream response headers.
func (s *Stream) Upstream() *upstream.Response {
	return s.upstream
}

// Partial reports whether the response must be 206: the client asked for a
// range and the upstream honoured it.
func (s *Stream) Partial() bool {
	return s.Range != "" && s.upstream != nil && s.upstream.ContentRange != ""
}

// State returns the current lifecycle state.
func (s *Stream) State() model.StreamState {
	return s.state
}

// BytesWritten returns the number of body bytes delivered to the client.
func (s *Stream) BytesWritten() int64 {
	return s.bytes
}

// Pipe copies the upstream body to w until EOF, a write failure or ctx
// cancellation. If w implements Flush, it is flushed after a short read
// and otherwise once per flushEvery full chunks.
// Returned errors wrap ErrClientAborted or ErrStreamFault.
func (s *Stream) Pipe(ctx context.Context, w io.Writer) (int64, error) {
	if s.state != model.StreamStreaming {
		return 0, fmt.Errorf("pipe in state %s", s.state)
	}

	flusher, _ := w.(interface{ Flush() })
	buf := make([]byte, pipeBufferSize)
	unflushed := 0

	for {
		if err := ctx.Err(); err != nil {
			s.finish(model.StreamAborted, err)
			return s.bytes, fmt.Errorf("%w: %v", ErrClientAborted, err)
		}

		n, rerr := s.upstream.Body.Read(buf)
		if n > 0 {
			wn, werr := w.Write(buf[:n])
			s.bytes += int64(wn)
			if werr == nil && wn < n {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				s.finish(model.StreamAborted, werr)
				return s.bytes, fmt.Errorf("%w: %v", ErrClientAborted, werr)
			}
			if flusher != nil {
				unflushed++
				if n < len(buf) || unflushed >= flushEvery {
					flusher.Flush()
					unflushed = 0
				}
			}
		}

		if rerr == io.EOF {
			s.finish(model.StreamCompleted, nil)
			return s.bytes, nil
		}
		if rerr != nil {
			// A cancelled request context surfaces as a read error on the body.
			if ctx.Err() != nil {
				s.finish(model.StreamAborted, rerr)
				return s.bytes, fmt.Errorf("%w: %v", ErrClientAborted, rerr)
			}
			s.finish(model.StreamFailed, rerr)
			return s.bytes, fmt.Errorf("%w: %w", ErrStreamFault, rerr)
		}
	}
}

// Close releases the upstream connection. A stream closed before Pipe
// reached EOF is recorded as aborted. Close is idempotent.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.state == model.StreamStreaming {
			s.finish(model.StreamAborted, nil)
		}
		if s.upstream != nil {
			err = s.upstream.Close()
		}
	})
	return err
}

func (s *Stream) transition(next model.StreamState) {
	if !s.state.CanTransitionTo(next) {
		s.logger.Error("invalid stream transition", "from", s.state.String(), "to", next.String())
		return
	}
	s.state = next
}

func (s *Stream) fail(err error) {
	s.finish(model.StreamFailed, err)
}

// finish moves the stream to a terminal state and records its outcome.
func (s *Stream) finish(state model.StreamState, cause error) {
	if s.state.IsTerminal() {
		return
	}
	wasStreaming := s.state == model.StreamStreaming
	s.transition(state)
	if s.state != state {
		return
	}

	kind := s.Entry.Kind.String()
	if wasStreaming {
		metrics.ActiveStreams.WithLabelValues(kind).Dec()
	}
	metrics.StreamedBytesTotal.WithLabelValues(kind).Add(float64(s.bytes))

	attrs := []any{
		"state", state.String(),
		"bytes", s.bytes,
		"duration", time.Since(s.started),
	}
	switch state {
	case model.StreamCompleted:
		metrics.StreamsTotal.WithLabelValues(kind, metrics.OutcomeCompleted).Inc()
		s.logger.Info("stream completed", attrs...)
	case model.StreamAborted:
		metrics.StreamsTotal.WithLabelValues(kind, metrics.OutcomeAborted).Inc()
		if cause != nil {
			attrs = append(attrs, "cause", cause.Error())
		}
		s.logger.Info("client disconnected", attrs...)
	case model.StreamFailed:
		metrics.StreamsTotal.WithLabelValues(kind, metrics.OutcomeFailed).Inc()
		if cause != nil {
			attrs = append(attrs, "error", cause)
		}
		s.logger.Warn("stream failed", attrs...)
	}
}
