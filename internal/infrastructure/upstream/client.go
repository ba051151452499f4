// Package upstream fetches media bytes from the backing blob store.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hszk-dev/mediarelay/internal/infrastructure/metrics"
)

// DefaultUserAgent is a desktop browser string; some blob hosts serve
// interstitial pages to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// ClientConfig holds configuration for the upstream client.
type ClientConfig struct {
	UserAgent    string
	MaxRedirects int
	// MaxBytes is the response size ceiling. Zero disables the check.
	MaxBytes int64
	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		UserAgent:    DefaultUserAgent,
		MaxRedirects: 5,
		MaxBytes:     200 << 20,
	}
}

// Request describes one upstream call.
type Request struct {
	URL *url.URL
	// Range is forwarded verbatim when non-empty.
	Range string
	// Timeout bounds the wait for response headers. Zero means no bound.
	Timeout time.Duration
}

// Response is an upstream response owned by exactly one proxied call.
// The caller must Close it.
type Response struct {
	StatusCode int
	// ContentLength is -1 when the upstream did not declare it.
	ContentLength int64
	ContentType   string
	ContentRange  string
	LastModified  string
	Body          io.ReadCloser
}

// Close releases the upstream connection.
func (r *Response) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// Client issues upstream GET and HEAD requests.
type Client struct {
	http      *http.Client
	userAgent string
	maxBytes  int64
}

// NewClient creates a new upstream Client.
func NewClient(cfg ClientConfig) *Client {
	transport := cfg.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.MaxIdleConnsPerHost = 10
		t.DisableCompression = true
		transport = t
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	maxRedirects := cfg.MaxRedirects

	return &Client{
		http: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  cfg.MaxBytes,
	}
}

// Get opens a streaming GET. On success the body is bounded by the size
// ceiling and is released when closed or when ctx is cancelled.
func (c *Client) Get(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.do(ctx, http.MethodGet, req)
	recordRequest(http.MethodGet, err)
	return resp, err
}

// Head issues a HEAD request. The returned Response has an empty body.
func (c *Client) Head(ctx context.Context, req Request) (*Response, error) {
	req.Range = ""
	resp, err := c.do(ctx, http.MethodHead, req)
	recordRequest(http.MethodHead, err)
	if err != nil {
		return nil, err
	}
	_ = resp.Body.Close()
	resp.Body = http.NoBody
	return resp, nil
}

// CloseIdleConnections closes idle keep-alive connections to the upstream.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

func (c *Client) do(parent context.Context, method string, req Request) (*Response, error) {
	ctx, cancel := context.WithCancel(parent)

	// The timer only guards the header phase; it is stopped as soon as
	// Do returns so long bodies are not cut off.
	var timedOut atomic.Bool
	var timer *time.Timer
	if req.Timeout > 0 {
		timer = time.AfterFunc(req.Timeout, func() {
			timedOut.Store(true)
			cancel()
		})
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL.String(), nil)
	if err != nil {
		stopTimer(timer)
		cancel()
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "*/*")
	// identity keeps byte offsets meaningful for Range requests.
	httpReq.Header.Set("Accept-Encoding", "identity")
	if req.Range != "" {
		httpReq.Header.Set("Range", req.Range)
	}

	resp, err := c.http.Do(httpReq)
	stopped := stopTimer(timer)
	if err != nil {
		cancel()
		if timedOut.Load() {
			return nil, &Error{Kind: KindTimeout, Err: err}
		}
		if parentErr := parent.Err(); parentErr != nil {
			return nil, &Error{Kind: KindTransport, Err: parentErr}
		}
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	if !stopped {
		_ = resp.Body.Close()
		cancel()
		return nil, &Error{Kind: KindTimeout, Err: context.DeadlineExceeded}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		cancel()
		return nil, &Error{
			Kind:       KindRejected,
			StatusCode: resp.StatusCode,
			StatusText: statusText(resp),
		}
	}

	if c.maxBytes > 0 && resp.ContentLength > c.maxBytes {
		_ = resp.Body.Close()
		cancel()
		return nil, &Error{Kind: KindTooLarge, ContentLength: resp.ContentLength}
	}

	return &Response{
		StatusCode:    resp.StatusCode,
		ContentLength: resp.ContentLength,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentRange:  resp.Header.Get("Content-Range"),
		LastModified:  resp.Header.Get("Last-Modified"),
		Body:          &boundedBody{rc: resp.Body, limit: c.maxBytes, cancel: cancel},
	}, nil
}

// stopTimer reports whether the timer was stopped before it fired.
func stopTimer(t *time.Timer) bool {
	if t == nil {
		return true
	}
	return t.Stop()
}

// statusText returns the reason phrase the upstream sent, falling back to
// the standard text for the code.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func recordRequest(method string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		if ue, ok := AsError(err); ok {
			result = ue.Kind.String()
		}
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(method, result).Inc()
}

// boundedBody enforces the size ceiling while streaming and cancels the
// request context on Close.
type boundedBody struct {
	rc     io.ReadCloser
	limit  int64
	read   int64
	cancel context.CancelFunc
	closed atomic.Bool
}

func (b *boundedBody) Read(p []byte) (int, error) {
	if b.limit > 0 {
		remaining := b.limit - b.read
		if remaining <= 0 {
			var probe [1]byte
			n, err := b.rc.Read(probe[:])
			if n > 0 {
				return 0, ErrSizeExceeded
			}
			return 0, err
		}
		if int64(len(p)) > remaining {
			p = p[:remaining]
		}
	}
	n, err := b.rc.Read(p)
	b.read += int64(n)
	return n, err
}

func (b *boundedBody) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := b.rc.Close()
	b.cancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
