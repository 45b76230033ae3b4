package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
	"github.com/obafela/venuescout/backend/internal/domain/providers"
)

// MemoryStore is the in-process JobStore backend. Completed jobs are swept
// after the configured TTL; RUNNING jobs never expire and are only
// terminated by their pipeline or the shutdown drain.
type MemoryStore struct {
	mu     sync.RWMutex
	jobs   map[string]*entities.SearchJob
	ttl    time.Duration
	stop   chan struct{}
	stopMu sync.Once
	now    func() time.Time
}

var _ providers.JobStore = (*MemoryStore)(nil)

// NewMemoryStore creates a memory-backed job store with a completed-job TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		jobs: make(map[string]*entities.SearchJob),
		ttl:  ttl,
		stop: make(chan struct{}),
		now:  time.Now,
	}
	if ttl > 0 {
		go s.sweep()
	}
	return s
}

func (s *MemoryStore) sweep() {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			cutoff := s.now().Add(-s.ttl)
			s.mu.Lock()
			for id, job := range s.jobs {
				if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
					delete(s.jobs, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Create registers a new RUNNING job for the request
func (s *MemoryStore) Create(_ context.Context, requestID string) (*entities.SearchJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	job := &entities.SearchJob{
		RequestID: requestID,
		Status:    entities.JobRunning,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[requestID] = job
	return copyJob(job), nil
}

// SetProgress updates progress on a running job
func (s *MemoryStore) SetProgress(_ context.Context, requestID string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[requestID]
	if !ok {
		return providers.ErrJobNotFound
	}
	if job.Status.Terminal() {
		return providers.ErrJobTerminal
	}

	job.Progress = clampProgress(progress)
	job.UpdatedAt = s.now()
	return nil
}

// SetDone marks the job terminal with a result
func (s *MemoryStore) SetDone(_ context.Context, requestID string, status entities.JobStatus, result *entities.SearchResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[requestID]
	if !ok {
		return providers.ErrJobNotFound
	}
	if job.Status.Terminal() {
		return providers.ErrJobTerminal
	}

	job.Status = status
	job.Progress = 100
	job.Result = result
	job.UpdatedAt = s.now()
	return nil
}

// SetError marks the job DONE_FAILED with an error code and message
func (s *MemoryStore) SetError(_ context.Context, requestID string, code, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[requestID]
	if !ok {
		return providers.ErrJobNotFound
	}
	if job.Status.Terminal() {
		return providers.ErrJobTerminal
	}

	job.Status = entities.JobDoneFailed
	job.ErrorCode = code
	job.ErrorMessage = message
	job.UpdatedAt = s.now()
	return nil
}

// Get returns the job for a request
func (s *MemoryStore) Get(_ context.Context, requestID string) (*entities.SearchJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[requestID]
	if !ok {
		return nil, providers.ErrJobNotFound
	}
	return copyJob(job), nil
}

// ListRunning enumerates all non-terminal jobs
func (s *MemoryStore) ListRunning(_ context.Context) ([]*entities.SearchJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var running []*entities.SearchJob
	for _, job := range s.jobs {
		if !job.Status.Terminal() {
			running = append(running, copyJob(job))
		}
	}
	return running, nil
}

// Close stops the sweeper
func (s *MemoryStore) Close() error {
	s.stopMu.Do(func() { close(s.stop) })
	return nil
}

func copyJob(job *entities.SearchJob) *entities.SearchJob {
	c := *job
	return &c
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
