package models

import "time"

// JobType identifies the kind of background enrichment a queued job asks
// for. Coalescing types fold repeated enqueues for the same contact into a
// single pending row carrying the latest payload.
type JobType string

const (
	JobDetailsUpdate         JobType = "DETAILS_UPDATE"
	JobInteractionTranscript JobType = "INTERACTION_TRANSCRIPT"
)

// Coalescing reports whether repeated enqueues of this type for the same
// contact should collapse into one pending job.
func (t JobType) Coalescing() bool {
	return t == JobDetailsUpdate
}

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
)

// ProcessJob is a row in the remote process_queue table. Jobs are
// fire-and-forget work items executed by an external worker; the client
// only controls admission, deduplication and cancellation.
type ProcessJob struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	ContactID *string        `json:"contact_id"`
	JobType   JobType        `json:"job_type"`
	Payload   map[string]any `json:"payload"`
	Status    JobStatus      `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type EnqueueJobRequest struct {
	UserID    string         `json:"user_id" validate:"required"`
	ContactID *string        `json:"contact_id,omitempty"`
	JobType   JobType        `json:"job_type" validate:"required,jobtype"`
	Payload   map[string]any `json:"payload"`
}
