package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeNetError struct{ timeout bool }

func (e *fakeNetError) Error() string   { return "fake net error" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return false }

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ""},
		{"app error", NewRateLimitError("quota"), ErrorTypeRateLimit},
		{"wrapped app error", fmt.Errorf("call: %w", NewValidationError("bad")), ErrorTypeValidation},
		{"deadline exceeded", context.DeadlineExceeded, ErrorTypeTimeoutGate},
		{"wrapped deadline", fmt.Errorf("gate: %w", context.DeadlineExceeded), ErrorTypeTimeoutGate},
		{"net timeout", &fakeNetError{timeout: true}, ErrorTypeTimeoutGate},
		{"net error", &fakeNetError{}, ErrorTypeNetwork},
		{"plain error", errors.New("boom"), ErrorTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(tt.err, ErrorTypeTimeoutGate))
		})
	}
}

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewNetworkError("provider call failed", inner)

	assert.Equal(t, "NETWORK_ERROR: provider call failed: connection refused", err.Error())
	assert.ErrorIs(t, err, inner)

	bare := NewShutdownError("draining")
	assert.Equal(t, "SERVER_SHUTDOWN: draining", bare.Error())
}
