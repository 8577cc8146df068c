package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kinkeeper/models"
)

const jobsTable = "process_queue"

var jobColumns = []string{
	"id", "user_id", "contact_id", "job_type", "payload",
	"status", "created_at", "updated_at",
}

// JobTable is the process_queue adapter. Jobs have no local cache (they
// are fire-and-forget work items, not user-facing state), so every call
// goes straight to the remote store.
type JobTable struct {
	client *Client
}

func NewJobTable(client *Client) *JobTable {
	return &JobTable{client: client}
}

// Insert adds a new job row and returns the stored representation.
func (t *JobTable) Insert(ctx context.Context, job models.ProcessJob) (*models.ProcessJob, error) {
	raw, err := t.client.Insert(ctx, jobsTable, job)
	if err != nil {
		return nil, err
	}
	return decodeJob(raw)
}

// OverwritePendingPayload replaces the payload of an existing pending job
// for the same contact and type, bumping updated_at in place. Returns nil
// when no pending row matched, in which case the caller inserts a new one.
func (t *JobTable) OverwritePendingPayload(ctx context.Context, contactID string, jobType models.JobType, payload map[string]any) (*models.ProcessJob, error) {
	patch := map[string]any{
		"payload":    payload,
		"updated_at": time.Now().UTC(),
	}
	rows, err := t.client.UpdateWhere(ctx, jobsTable, patch, map[string]string{
		"contact_id": Eq(contactID),
		"job_type":   Eq(string(jobType)),
		"status":     Eq(string(models.JobPending)),
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return decodeJob(rows[0])
}

// ListActiveByContact returns the contact's pending and processing jobs,
// oldest first.
func (t *JobTable) ListActiveByContact(ctx context.Context, contactID string) ([]models.ProcessJob, error) {
	return t.list(ctx, map[string]string{
		"contact_id": Eq(contactID),
		"status":     In(string(models.JobPending), string(models.JobProcessing)),
	})
}

// ListActiveByUser returns the user's pending and processing jobs, oldest
// first.
func (t *JobTable) ListActiveByUser(ctx context.Context, userID string) ([]models.ProcessJob, error) {
	return t.list(ctx, map[string]string{
		"user_id": Eq(userID),
		"status":  In(string(models.JobPending), string(models.JobProcessing)),
	})
}

// UpdateStatusIf transitions a job from one status to another only when it
// is still in the expected state. Returns nil when the guard did not hold.
func (t *JobTable) UpdateStatusIf(ctx context.Context, jobID string, from, to models.JobStatus) (*models.ProcessJob, error) {
	patch := map[string]any{
		"status":     string(to),
		"updated_at": time.Now().UTC(),
	}
	rows, err := t.client.UpdateWhere(ctx, jobsTable, patch, map[string]string{
		"id":     Eq(jobID),
		"status": Eq(string(from)),
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return decodeJob(rows[0])
}

// GetByID returns the job or nil when it does not exist.
func (t *JobTable) GetByID(ctx context.Context, jobID string) (*models.ProcessJob, error) {
	rows, err := t.client.Select(ctx, jobsTable, jobColumns, map[string]string{
		"id": Eq(jobID),
	}, "")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return decodeJob(rows[0])
}

func (t *JobTable) list(ctx context.Context, filters map[string]string) ([]models.ProcessJob, error) {
	raw, err := t.client.Select(ctx, jobsTable, jobColumns, filters, "created_at.asc")
	if err != nil {
		return nil, err
	}

	jobs := make([]models.ProcessJob, 0, len(raw))
	for _, record := range raw {
		job, err := decodeJob(record)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

func decodeJob(raw json.RawMessage) (*models.ProcessJob, error) {
	var job models.ProcessJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("failed to decode process_queue row: %w", err)
	}
	return &job, nil
}
