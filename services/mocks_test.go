package services

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/mock"

	"kinkeeper/models"
	"kinkeeper/session"
	"kinkeeper/store"
	"kinkeeper/validator"
)

// ==================== MOCKS ====================

// MockJobEnqueuer is a mock implementation of the JobEnqueuer interface
type MockJobEnqueuer struct {
	mock.Mock
}

// Ensure MockJobEnqueuer implements JobEnqueuer interface
var _ JobEnqueuer = (*MockJobEnqueuer)(nil)

func (m *MockJobEnqueuer) Enqueue(ctx context.Context, req models.EnqueueJobRequest) (*models.ProcessJob, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProcessJob), args.Error(1)
}

// MockJobStore is a mock implementation of the JobStore interface
type MockJobStore struct {
	mock.Mock
}

// Ensure MockJobStore implements JobStore interface
var _ JobStore = (*MockJobStore)(nil)

func (m *MockJobStore) Insert(ctx context.Context, job models.ProcessJob) (*models.ProcessJob, error) {
	args := m.Called(ctx, job)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProcessJob), args.Error(1)
}

func (m *MockJobStore) OverwritePendingPayload(ctx context.Context, contactID string, jobType models.JobType, payload map[string]any) (*models.ProcessJob, error) {
	args := m.Called(ctx, contactID, jobType, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProcessJob), args.Error(1)
}

func (m *MockJobStore) ListActiveByContact(ctx context.Context, contactID string) ([]models.ProcessJob, error) {
	args := m.Called(ctx, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProcessJob), args.Error(1)
}

func (m *MockJobStore) ListActiveByUser(ctx context.Context, userID string) ([]models.ProcessJob, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProcessJob), args.Error(1)
}

func (m *MockJobStore) UpdateStatusIf(ctx context.Context, jobID string, from, to models.JobStatus) (*models.ProcessJob, error) {
	args := m.Called(ctx, jobID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProcessJob), args.Error(1)
}

func (m *MockJobStore) GetByID(ctx context.Context, jobID string) (*models.ProcessJob, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProcessJob), args.Error(1)
}

// ==================== FIXTURES ====================

const testUserID = "user-1"

type fixture struct {
	contacts     *store.Collection[models.Contact]
	interactions *store.Collection[models.Interaction]
	profiles     *store.Collection[models.Profile]
	session      *session.Session
	jobs         *MockJobEnqueuer

	contactSvc     *ContactService
	interactionSvc *InteractionService
	profileSvc     *ProfileService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	sess := session.New()
	sess.SetActive(testUserID)

	f := &fixture{
		contacts:     store.NewCollection[models.Contact](models.CollectionContacts),
		interactions: store.NewCollection[models.Interaction](models.CollectionInteractions),
		profiles:     store.NewCollection[models.Profile](models.CollectionProfiles),
		session:      sess,
		jobs:         new(MockJobEnqueuer),
	}

	validate := validator.New()
	logger := log.New(io.Discard)

	f.contactSvc = NewContactService(f.contacts, sess, f.jobs, validate, logger)
	f.interactionSvc = NewInteractionService(f.interactions, f.contacts, sess, f.jobs, validate, logger)
	f.profileSvc = NewProfileService(f.profiles, sess, logger)
	return f
}

// mustCreateContact seeds a contact through the accessor path.
func (f *fixture) mustCreateContact(t *testing.T, firstName, lastName string) *models.Contact {
	t.Helper()

	contact, err := f.contactSvc.Create(models.CreateContactRequest{
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		t.Fatalf("failed to create contact: %v", err)
	}
	return contact
}
