package upstream

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed upstream call.
type ErrorKind int

const (
	// KindTransport covers connection, DNS and protocol failures.
	KindTransport ErrorKind = iota + 1
	// KindTimeout means no response headers arrived within the budget.
	KindTimeout
	// KindRejected means the upstream answered with a non-2xx status.
	KindRejected
	// KindTooLarge means the upstream declared a body above the size ceiling.
	KindTooLarge
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindRejected:
		return "rejected"
	case KindTooLarge:
		return "too_large"
	default:
		return "unknown"
	}
}

// ErrSizeExceeded is returned by a response body that streams past the ceiling.
var ErrSizeExceeded = errors.New("upstream body exceeds size limit")

// Error is the typed result of a failed upstream fetch.
type Error struct {
	Kind ErrorKind
	// StatusCode and StatusText are set for KindRejected.
	StatusCode int
	StatusText string
	// ContentLength is set for KindTooLarge.
	ContentLength int64
	Err           error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRejected:
		return fmt.Sprintf("upstream rejected request: %d %s", e.StatusCode, e.StatusText)
	case KindTooLarge:
		return fmt.Sprintf("upstream content length %d exceeds limit", e.ContentLength)
	}
	if e.Err != nil {
		return fmt.Sprintf("upstream %s: %v", e.Kind, e.Err)
	}
	return "upstream " + e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var ue *Error
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
