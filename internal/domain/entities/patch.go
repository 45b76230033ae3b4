package entities

import "time"

// PatchStatus is the resolution outcome of an enrichment lookup.
type PatchStatus string

const (
	PatchFound    PatchStatus = "FOUND"
	PatchNotFound PatchStatus = "NOT_FOUND"
)

// ProviderPatch is an incremental, provider-scoped update to a single
// result's enrichment state. Cached with a long TTL and published once per
// resolution.
type ProviderPatch struct {
	Provider  string      `json:"provider"`
	PlaceID   string      `json:"place_id"`
	Status    PatchStatus `json:"status"`
	URL       string      `json:"url,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// EnrichmentJob identifies one availability lookup. At most one live job
// exists per (provider, placeId) pair, guaranteed by a distributed lock.
type EnrichmentJob struct {
	Provider  string `json:"provider"`
	PlaceID   string `json:"place_id"`
	RequestID string `json:"request_id"`
}

// LockKey returns the mutual-exclusion key for this job.
func (j EnrichmentJob) LockKey() string {
	return "enrich:lock:" + j.Provider + ":" + j.PlaceID
}

// CacheKey returns the patch cache key for this job.
func (j EnrichmentJob) CacheKey() string {
	return "enrich:patch:" + j.Provider + ":" + j.PlaceID
}
