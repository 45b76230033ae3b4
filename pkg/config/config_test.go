package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.ListenAddr())
	assert.Equal(t, "localhost:6379", cfg.Redis.RedisAddr())
	assert.Equal(t, "google", cfg.Places.Provider)
	assert.Equal(t, SearchLanguagePolicyRegion, cfg.Pipeline.SearchLanguagePolicy)
	assert.Equal(t, "JP", cfg.Pipeline.DefaultRegion)
	assert.Equal(t, 10*time.Minute, cfg.Pipeline.ResultCacheTTL)
	assert.Equal(t, 2*time.Minute, cfg.Pipeline.OpenNowCacheTTL)
	assert.Equal(t, 90*time.Second, cfg.Broadcast.IdleTimeout)
	assert.Equal(t, 50, cfg.Broadcast.BacklogPerKey)
	assert.Equal(t, 15*time.Minute, cfg.Broadcast.OwnershipTTL)
	assert.Equal(t, "tablecheck", cfg.Enrichment.Provider)
	assert.Equal(t, 4, cfg.Enrichment.Workers)
	assert.False(t, cfg.OTEL.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SEARCH_LANGUAGE_POLICY", "mirror")
	t.Setenv("RESULT_CACHE_TTL", "30s")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, SearchLanguagePolicyMirror, cfg.Pipeline.SearchLanguagePolicy)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.ResultCacheTTL)
	assert.True(t, cfg.OTEL.Enabled)
}

func TestLoad_InvalidLanguagePolicy(t *testing.T) {
	t.Setenv("SEARCH_LANGUAGE_POLICY", "loudest")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEARCH_LANGUAGE_POLICY")
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	t.Setenv("WS_IDLE_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 90*time.Second, cfg.Broadcast.IdleTimeout)
}
