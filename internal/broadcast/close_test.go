package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloseEvent_Valid(t *testing.T) {
	tests := []struct {
		name  string
		event CloseEvent
		valid bool
	}{
		{"going away with idle timeout", CloseEvent{Code: CloseGoingAway, Source: SourceIdleTimeout}, true},
		{"going away with shutdown", CloseEvent{Code: CloseGoingAway, Source: SourceServerShutdown}, true},
		{"going away with client close", CloseEvent{Code: CloseGoingAway, Source: SourceClientClose}, false},
		{"going away with policy", CloseEvent{Code: CloseGoingAway, Source: SourcePolicy}, false},
		{"going away with error", CloseEvent{Code: CloseGoingAway, Source: SourceError}, false},
		{"normal close any source", CloseEvent{Code: CloseNormal, Source: SourceClientClose}, true},
		{"policy close any source", CloseEvent{Code: ClosePolicy, Source: SourcePolicy}, true},
		{"unexpected close any source", CloseEvent{Code: CloseUnexpected, Source: SourceError}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.event.Valid())
		})
	}
}

func TestCloseLog_RetainsBounded(t *testing.T) {
	l := newCloseLog(3)

	for i := 0; i < 5; i++ {
		l.record(CloseEvent{Code: CloseNormal, Reason: string(rune('a' + i)), Source: SourceClientClose})
	}

	events := l.snapshot()
	assert.Len(t, events, 3)
	assert.Equal(t, "c", events[0].Reason)
	assert.Equal(t, "e", events[2].Reason)
}
