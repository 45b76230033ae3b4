package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// SearchLanguagePolicy selects how the provider-facing search language is
// derived. "region" uses the region default table; "mirror" follows the
// detected query language when it is in the supported allow-list.
type SearchLanguagePolicy string

const (
	SearchLanguagePolicyRegion SearchLanguagePolicy = "region"
	SearchLanguagePolicyMirror SearchLanguagePolicy = "mirror"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	Places     PlacesConfig
	Typesense  TypesenseConfig
	LLM        LLMConfig
	Broadcast  BroadcastConfig
	Pipeline   PipelineConfig
	Enrichment EnrichmentConfig
	OTEL       OTELConfig
	Env        string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// PlacesConfig holds external place-search provider configuration
type PlacesConfig struct {
	Provider string // "google", "typesense" or "mock"
	APIKey   string
	Timeout  time.Duration
}

// TypesenseConfig holds Typesense configuration for the self-hosted
// place-search backend
type TypesenseConfig struct {
	URL        string
	APIKey     string
	Collection string
}

// LLMConfig holds text-generation provider configuration
type LLMConfig struct {
	APIKey         string
	Model          string
	Timeout        time.Duration
	RateLimitRPM   int
	RateLimitBurst int
}

// BroadcastConfig holds broadcast manager configuration
type BroadcastConfig struct {
	IdleTimeout    time.Duration
	PingInterval   time.Duration
	BacklogPerKey  int
	BacklogTTL     time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
	OwnershipTTL   time.Duration
}

// PipelineConfig holds orchestrator configuration
type PipelineConfig struct {
	SearchLanguagePolicy SearchLanguagePolicy
	DefaultRegion        string
	ResultCacheTTL       time.Duration
	OpenNowCacheTTL      time.Duration
	StageTimeout         time.Duration
	JobTTL               time.Duration
}

// EnrichmentConfig holds enrichment worker configuration
type EnrichmentConfig struct {
	Provider      string
	BaseURL       string
	APIKey        string
	Workers       int
	LockTTL       time.Duration
	PatchTTL      time.Duration
	LookupTimeout time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	policy := SearchLanguagePolicy(getEnv("SEARCH_LANGUAGE_POLICY", string(SearchLanguagePolicyRegion)))
	if policy != SearchLanguagePolicyRegion && policy != SearchLanguagePolicyMirror {
		return nil, fmt.Errorf("invalid SEARCH_LANGUAGE_POLICY: %q", policy)
	}

	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Places: PlacesConfig{
			Provider: getEnv("PLACES_PROVIDER", "google"),
			APIKey:   getEnv("PLACES_API_KEY", ""),
			Timeout:  getEnvAsDuration("PLACES_TIMEOUT", 8*time.Second),
		},
		Typesense: TypesenseConfig{
			URL:        getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:     getEnv("TYPESENSE_API_KEY", "xyz"),
			Collection: getEnv("TYPESENSE_COLLECTION", "places"),
		},
		LLM: LLMConfig{
			APIKey:         getEnv("LLM_API_KEY", ""),
			Model:          getEnv("LLM_MODEL", "gpt-4o-mini"),
			Timeout:        getEnvAsDuration("LLM_TIMEOUT", 12*time.Second),
			RateLimitRPM:   getEnvAsInt("LLM_RATE_LIMIT_RPM", 120),
			RateLimitBurst: getEnvAsInt("LLM_RATE_LIMIT_BURST", 10),
		},
		Broadcast: BroadcastConfig{
			IdleTimeout:    getEnvAsDuration("WS_IDLE_TIMEOUT", 90*time.Second),
			PingInterval:   getEnvAsDuration("WS_PING_INTERVAL", 30*time.Second),
			BacklogPerKey:  getEnvAsInt("WS_BACKLOG_PER_KEY", 50),
			BacklogTTL:     getEnvAsDuration("WS_BACKLOG_TTL", 2*time.Minute),
			WriteTimeout:   getEnvAsDuration("WS_WRITE_TIMEOUT", 10*time.Second),
			MaxMessageSize: int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 64*1024)),
			OwnershipTTL:   getEnvAsDuration("WS_OWNERSHIP_TTL", 15*time.Minute),
		},
		Pipeline: PipelineConfig{
			SearchLanguagePolicy: policy,
			DefaultRegion:        getEnv("DEFAULT_REGION", "JP"),
			ResultCacheTTL:       getEnvAsDuration("RESULT_CACHE_TTL", 10*time.Minute),
			OpenNowCacheTTL:      getEnvAsDuration("OPEN_NOW_CACHE_TTL", 2*time.Minute),
			StageTimeout:         getEnvAsDuration("PIPELINE_STAGE_TIMEOUT", 15*time.Second),
			JobTTL:               getEnvAsDuration("JOB_TTL", 15*time.Minute),
		},
		Enrichment: EnrichmentConfig{
			Provider:      getEnv("AVAILABILITY_PROVIDER", "tablecheck"),
			BaseURL:       getEnv("AVAILABILITY_BASE_URL", ""),
			APIKey:        getEnv("AVAILABILITY_API_KEY", ""),
			Workers:       getEnvAsInt("ENRICHMENT_WORKERS", 4),
			LockTTL:       getEnvAsDuration("ENRICHMENT_LOCK_TTL", 30*time.Second),
			PatchTTL:      getEnvAsDuration("ENRICHMENT_PATCH_TTL", 72*time.Hour),
			LookupTimeout: getEnvAsDuration("ENRICHMENT_LOOKUP_TIMEOUT", 10*time.Second),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "venuescout"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Env: getEnv("APP_ENV", "development"),
	}, nil
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ListenAddr returns the HTTP listen address
func (c *ServerConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
