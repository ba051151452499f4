package model

// StreamState is the lifecycle state of a single proxied media request.
type StreamState string

const (
	StreamIdle              StreamState = "IDLE"
	StreamResolvingUpstream StreamState = "RESOLVING_UPSTREAM"
	StreamAwaitingHeaders   StreamState = "AWAITING_UPSTREAM_HEADERS"
	StreamStreaming         StreamState = "STREAMING"
	StreamCompleted         StreamState = "COMPLETED"
	StreamAborted           StreamState = "ABORTED"
	StreamFailed            StreamState = "FAILED"
)

// Valid stream transitions:
// IDLE -> RESOLVING_UPSTREAM -> AWAITING_UPSTREAM_HEADERS -> STREAMING -> COMPLETED
//                          \-> FAILED                 \-> FAILED    \-> ABORTED
//                                                     \-> ABORTED   \-> FAILED
var validStreamTransitions = map[StreamState][]StreamState{
	StreamIdle:              {StreamResolvingUpstream},
	StreamResolvingUpstream: {StreamAwaitingHeaders, StreamFailed},
	StreamAwaitingHeaders:   {StreamStreaming, StreamFailed, StreamAborted},
	StreamStreaming:         {StreamCompleted, StreamAborted, StreamFailed},
	StreamCompleted:         {},
	StreamAborted:           {},
	StreamFailed:            {},
}

func (s StreamState) CanTransitionTo(next StreamState) bool {
	for _, state := range validStreamTransitions[s] {
		if state == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s StreamState) IsTerminal() bool {
	return s == StreamCompleted || s == StreamAborted || s == StreamFailed
}

func (s StreamState) String() string {
	return string(s)
}
