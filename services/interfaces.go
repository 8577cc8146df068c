package services

import (
	"context"

	"kinkeeper/models"
)

// JobStore defines the remote process_queue operations the job service
// needs. Production uses remote.JobTable.
type JobStore interface {
	Insert(ctx context.Context, job models.ProcessJob) (*models.ProcessJob, error)
	OverwritePendingPayload(ctx context.Context, contactID string, jobType models.JobType, payload map[string]any) (*models.ProcessJob, error)
	ListActiveByContact(ctx context.Context, contactID string) ([]models.ProcessJob, error)
	ListActiveByUser(ctx context.Context, userID string) ([]models.ProcessJob, error)
	UpdateStatusIf(ctx context.Context, jobID string, from, to models.JobStatus) (*models.ProcessJob, error)
	GetByID(ctx context.Context, jobID string) (*models.ProcessJob, error)
}

// JobEnqueuer is the slice of the job service the entity accessors use to
// trigger background enrichment after an edit.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, req models.EnqueueJobRequest) (*models.ProcessJob, error)
}
