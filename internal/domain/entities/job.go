package entities

import "time"

// JobStatus is the lifecycle status of a search job. A job becomes
// terminal exactly once.
type JobStatus string

const (
	JobRunning     JobStatus = "RUNNING"
	JobDoneOK      JobStatus = "DONE_OK"
	JobDoneFailed  JobStatus = "DONE_FAILED"
	JobDonePartial JobStatus = "DONE_PARTIAL"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobDoneOK || s == JobDoneFailed || s == JobDonePartial
}

// SearchJob tracks one external request through the pipeline.
type SearchJob struct {
	RequestID    string          `json:"request_id"`
	Status       JobStatus       `json:"status"`
	Progress     int             `json:"progress"` // 0-100
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Result       *SearchResponse `json:"result,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}
