package services

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"kinkeeper/models"
	"kinkeeper/validator"
)

// JobService is the admission controller for asynchronous enrichment work.
// It deduplicates coalescing job types per contact, guards cancellation
// against work already in flight, and exposes FIFO visibility over active
// jobs. It never executes jobs; that is an external worker's business.
type JobService struct {
	store    JobStore
	validate *validator.Validator
	logger   *log.Logger
}

func NewJobService(store JobStore, validate *validator.Validator, logger *log.Logger) *JobService {
	return &JobService{
		store:    store,
		validate: validate,
		logger:   logger,
	}
}

// Enqueue admits a job. Coalescing types (DETAILS_UPDATE) fold into an
// existing pending job for the same contact, so only the newest payload
// survives a burst of edits. Every other type inserts a fresh row, since
// each occurrence is independently meaningful.
func (s *JobService) Enqueue(ctx context.Context, req models.EnqueueJobRequest) (*models.ProcessJob, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	if req.JobType.Coalescing() && req.ContactID != nil {
		job, err := s.store.OverwritePendingPayload(ctx, *req.ContactID, req.JobType, req.Payload)
		if err != nil {
			s.logger.Error("failed to coalesce job", "contact_id", *req.ContactID, "job_type", req.JobType, "err", err)
			return nil, err
		}
		if job != nil {
			return job, nil
		}
	}

	now := time.Now().UTC()
	job := models.ProcessJob{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		ContactID: req.ContactID,
		JobType:   req.JobType,
		Payload:   req.Payload,
		Status:    models.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.store.Insert(ctx, job)
	if err != nil {
		s.logger.Error("failed to enqueue job", "job_type", req.JobType, "err", err)
		return nil, err
	}
	return created, nil
}

// GetPendingByContact returns the contact's pending and processing jobs,
// oldest first.
func (s *JobService) GetPendingByContact(ctx context.Context, contactID string) ([]models.ProcessJob, error) {
	return s.store.ListActiveByContact(ctx, contactID)
}

// GetPendingByUser returns the user's pending and processing jobs, oldest
// first.
func (s *JobService) GetPendingByUser(ctx context.Context, userID string) ([]models.ProcessJob, error) {
	return s.store.ListActiveByUser(ctx, userID)
}

// Cancel transitions a pending job to cancelled. A job that has already
// left pending is not touched; the current row is returned unchanged so
// the caller can see which state won the race.
func (s *JobService) Cancel(ctx context.Context, jobID string) (*models.ProcessJob, error) {
	job, err := s.store.UpdateStatusIf(ctx, jobID, models.JobPending, models.JobCancelled)
	if err != nil {
		return nil, err
	}
	if job != nil {
		return job, nil
	}

	current, err := s.store.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrJobNotFound
	}
	return current, nil
}

// GetByID is the point lookup for status polling.
func (s *JobService) GetByID(ctx context.Context, jobID string) (*models.ProcessJob, error) {
	job, err := s.store.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}
