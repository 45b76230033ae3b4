package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
	"github.com/obafela/venuescout/backend/internal/domain/providers"
	redisclient "github.com/obafela/venuescout/backend/internal/infrastructure/clients/redis"
	"github.com/redis/go-redis/v9"
)

const (
	jobKeyPrefix  = "job:"
	runningSetKey = "jobs:running"
)

// RedisStore is the shared JobStore backend. Job records are JSON blobs
// under job:<requestId> with a running-set index for ListRunning; terminal
// jobs get the completed-job TTL applied via EXPIRE.
type RedisStore struct {
	client *redisclient.Client
	ttl    time.Duration
	now    func() time.Time
}

var _ providers.JobStore = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed job store with a completed-job TTL.
func NewRedisStore(client *redisclient.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func (s *RedisStore) load(ctx context.Context, requestID string) (*entities.SearchJob, error) {
	data, err := s.client.Client().Get(ctx, jobKeyPrefix+requestID).Bytes()
	if err == redis.Nil {
		return nil, providers.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}

	var job entities.SearchJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &job, nil
}

func (s *RedisStore) save(ctx context.Context, job *entities.SearchJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	key := jobKeyPrefix + job.RequestID
	pipe := s.client.Client().TxPipeline()
	if job.Status.Terminal() {
		pipe.Set(ctx, key, data, s.ttl)
		pipe.SRem(ctx, runningSetKey, job.RequestID)
	} else {
		pipe.Set(ctx, key, data, 0)
		pipe.SAdd(ctx, runningSetKey, job.RequestID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// Create registers a new RUNNING job for the request
func (s *RedisStore) Create(ctx context.Context, requestID string) (*entities.SearchJob, error) {
	now := s.now()
	job := &entities.SearchJob{
		RequestID: requestID,
		Status:    entities.JobRunning,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// SetProgress updates progress on a running job
func (s *RedisStore) SetProgress(ctx context.Context, requestID string, progress int) error {
	job, err := s.load(ctx, requestID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return providers.ErrJobTerminal
	}

	job.Progress = clampProgress(progress)
	job.UpdatedAt = s.now()
	return s.save(ctx, job)
}

// SetDone marks the job terminal with a result
func (s *RedisStore) SetDone(ctx context.Context, requestID string, status entities.JobStatus, result *entities.SearchResponse) error {
	job, err := s.load(ctx, requestID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return providers.ErrJobTerminal
	}

	job.Status = status
	job.Progress = 100
	job.Result = result
	job.UpdatedAt = s.now()
	return s.save(ctx, job)
}

// SetError marks the job DONE_FAILED with an error code and message
func (s *RedisStore) SetError(ctx context.Context, requestID string, code, message string) error {
	job, err := s.load(ctx, requestID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return providers.ErrJobTerminal
	}

	job.Status = entities.JobDoneFailed
	job.ErrorCode = code
	job.ErrorMessage = message
	job.UpdatedAt = s.now()
	return s.save(ctx, job)
}

// Get returns the job for a request
func (s *RedisStore) Get(ctx context.Context, requestID string) (*entities.SearchJob, error) {
	return s.load(ctx, requestID)
}

// ListRunning enumerates all non-terminal jobs
func (s *RedisStore) ListRunning(ctx context.Context) ([]*entities.SearchJob, error) {
	ids, err := s.client.Client().SMembers(ctx, runningSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list running jobs: %w", err)
	}

	var running []*entities.SearchJob
	for _, id := range ids {
		job, err := s.load(ctx, id)
		if err == providers.ErrJobNotFound {
			// Stale index entry for an expired record
			_ = s.client.Client().SRem(ctx, runningSetKey, id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		if !job.Status.Terminal() {
			running = append(running, job)
		}
	}
	return running, nil
}

// Close is a no-op; the shared Redis connection is owned by the caller.
func (s *RedisStore) Close() error {
	return nil
}
