package availability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
	apperrors "github.com/obafela/venuescout/backend/pkg/errors"
)

func matchServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/match", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookup_Found(t *testing.T) {
	srv := matchServer(t, http.StatusOK, `{"found":true,"url":"https://reserve.example.com/p1"}`)
	p := NewHTTPProvider("tablecheck", srv.URL, "test-key", srv.Client())

	patch, err := p.Lookup(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "tablecheck", patch.Provider)
	assert.Equal(t, "p1", patch.PlaceID)
	assert.Equal(t, entities.PatchFound, patch.Status)
	assert.Equal(t, "https://reserve.example.com/p1", patch.URL)
	assert.False(t, patch.UpdatedAt.IsZero())
}

func TestLookup_MissIsNotFoundPatch(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http 404", http.StatusNotFound, ""},
		{"no match", http.StatusOK, `{"found":false}`},
		{"empty url", http.StatusOK, `{"found":true,"url":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := matchServer(t, tt.status, tt.body)
			p := NewHTTPProvider("tablecheck", srv.URL, "test-key", srv.Client())

			patch, err := p.Lookup(context.Background(), "p1")
			require.NoError(t, err)
			assert.Equal(t, entities.PatchNotFound, patch.Status)
			assert.Empty(t, patch.URL)
		})
	}
}

func TestLookup_QuotaMapsToRateLimit(t *testing.T) {
	srv := matchServer(t, http.StatusTooManyRequests, "")
	p := NewHTTPProvider("tablecheck", srv.URL, "test-key", srv.Client())

	_, err := p.Lookup(context.Background(), "p1")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeRateLimit, apperrors.TypeOf(err, apperrors.ErrorTypeUnknown))
}

func TestLookup_ServerErrorIsNetworkError(t *testing.T) {
	srv := matchServer(t, http.StatusBadGateway, "")
	p := NewHTTPProvider("tablecheck", srv.URL, "test-key", srv.Client())

	_, err := p.Lookup(context.Background(), "p1")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNetwork, apperrors.TypeOf(err, apperrors.ErrorTypeUnknown))
}
