package broadcast

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// CloseSource labels why a connection was closed.
type CloseSource string

const (
	SourceIdleTimeout    CloseSource = "IDLE_TIMEOUT"
	SourceServerShutdown CloseSource = "SERVER_SHUTDOWN"
	SourceClientClose    CloseSource = "CLIENT_CLOSE"
	SourcePolicy         CloseSource = "POLICY"
	SourceError          CloseSource = "ERROR"
)

// Close codes used on the wire.
const (
	CloseNormal      = websocket.CloseNormalClosure    // 1000, client-initiated
	CloseGoingAway   = websocket.CloseGoingAway        // 1001, reserved for idle timeout and shutdown
	ClosePolicy      = websocket.ClosePolicyViolation  // 1008, auth/validation
	CloseUnexpected  = websocket.CloseInternalServerErr // 1011, unexpected error
)

// CloseEvent records one connection close.
type CloseEvent struct {
	Code   int         `json:"code"`
	Reason string      `json:"reason"`
	Source CloseSource `json:"source"`
	At     time.Time   `json:"at"`
}

// Valid enforces the pairing invariant: the going-away code may only be
// paired with IDLE_TIMEOUT or SERVER_SHUTDOWN.
func (e CloseEvent) Valid() bool {
	if e.Code != CloseGoingAway {
		return true
	}
	return e.Source == SourceIdleTimeout || e.Source == SourceServerShutdown
}

// closeLog retains recent close events for inspection and invariant
// scanning.
type closeLog struct {
	mu     sync.Mutex
	events []CloseEvent
	max    int
}

func newCloseLog(max int) *closeLog {
	if max <= 0 {
		max = 1024
	}
	return &closeLog{max: max}
}

func (l *closeLog) record(e CloseEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	if len(l.events) > l.max {
		l.events = l.events[len(l.events)-l.max:]
	}
}

func (l *closeLog) snapshot() []CloseEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]CloseEvent, len(l.events))
	copy(out, l.events)
	return out
}
