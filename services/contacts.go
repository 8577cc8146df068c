package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"kinkeeper/models"
	"kinkeeper/session"
	"kinkeeper/store"
	"kinkeeper/validator"
)

// ContactService is the only sanctioned entry point for contact data. It
// generates ids, stamps ownership and timestamps, enforces the tombstone
// semantics, and triggers background enrichment when a contact's details
// change.
type ContactService struct {
	contacts *store.Collection[models.Contact]
	session  *session.Session
	jobs     JobEnqueuer
	validate *validator.Validator
	logger   *log.Logger
}

func NewContactService(contacts *store.Collection[models.Contact], sess *session.Session, jobs JobEnqueuer, validate *validator.Validator, logger *log.Logger) *ContactService {
	return &ContactService{
		contacts: contacts,
		session:  sess,
		jobs:     jobs,
		validate: validate,
		logger:   logger,
	}
}

// Create writes a new contact and returns the value read back from the
// store, so callers see exactly what was persisted, system fields included.
func (s *ContactService) Create(req models.CreateContactRequest) (*models.Contact, error) {
	owner, err := requireOwner(s.session)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	contact := models.Contact{
		ID:                    uuid.New().String(),
		OwnerID:               owner,
		FirstName:             req.FirstName,
		LastName:              req.LastName,
		Details:               req.Details,
		CommunicationChannels: req.CommunicationChannels,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	s.contacts.Set(contact.ID, contact)

	stored, _ := s.contacts.Get(contact.ID)
	return &stored, nil
}

// Update merges a partial update into an existing contact. The local write
// always succeeds once the contact is found; when the details changed, a
// coalescing DETAILS_UPDATE job is enqueued and any enqueue failure is
// returned alongside the updated contact so the caller can decide what to
// do about the queue leg.
func (s *ContactService) Update(ctx context.Context, id string, req models.UpdateContactRequest) (*models.Contact, error) {
	owner, err := requireOwner(s.session)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	existing, ok := s.contacts.Get(id)
	if !ok || existing.OwnerID != owner || existing.Deleted {
		return nil, ErrNotFound
	}

	detailsChanged := req.Details != nil && *req.Details != existing.Details

	updated, _ := s.contacts.Apply(id, func(c models.Contact) models.Contact {
		if req.FirstName != nil {
			c.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			c.LastName = *req.LastName
		}
		if req.Details != nil {
			c.Details = *req.Details
		}
		if req.CommunicationChannels != nil {
			c.CommunicationChannels = *req.CommunicationChannels
		}
		c.UpdatedAt = time.Now().UTC()
		return c
	})

	if detailsChanged {
		_, enqueueErr := s.jobs.Enqueue(ctx, models.EnqueueJobRequest{
			UserID:    owner,
			ContactID: &id,
			JobType:   models.JobDetailsUpdate,
			Payload:   map[string]any{"details": *req.Details},
		})
		if enqueueErr != nil {
			return &updated, enqueueErr
		}
	}

	return &updated, nil
}

// Delete tombstones a contact. The row stays in the store so sync can
// propagate the deletion.
func (s *ContactService) Delete(id string) error {
	owner, err := requireOwner(s.session)
	if err != nil {
		return err
	}

	existing, ok := s.contacts.Get(id)
	if !ok || existing.OwnerID != owner {
		return ErrNotFound
	}
	if existing.Deleted {
		return nil
	}

	s.contacts.Apply(id, func(c models.Contact) models.Contact {
		c.Deleted = true
		c.UpdatedAt = time.Now().UTC()
		return c
	})
	return nil
}

// Get returns a contact visible to the active user. Tombstoned rows read
// as not found here; the raw tombstone is only reachable through the store.
func (s *ContactService) Get(id string) (*models.Contact, error) {
	owner, err := requireOwner(s.session)
	if err != nil {
		return nil, err
	}

	contact, ok := s.contacts.Get(id)
	if !ok || contact.OwnerID != owner || contact.Deleted {
		return nil, ErrNotFound
	}
	return &contact, nil
}

// List returns the user's live contacts sorted by name.
func (s *ContactService) List() ([]models.Contact, error) {
	owner, err := requireOwner(s.session)
	if err != nil {
		return nil, err
	}

	contacts := make([]models.Contact, 0)
	for _, contact := range s.contacts.GetAll() {
		if contact.OwnerID != owner || contact.Deleted {
			continue
		}
		contacts = append(contacts, contact)
	}

	sort.Slice(contacts, func(i, j int) bool {
		return fold(contacts[i].FirstName+" "+contacts[i].LastName) <
			fold(contacts[j].FirstName+" "+contacts[j].LastName)
	})
	return contacts, nil
}

// Search returns live contacts whose name contains term, matched
// case- and diacritic-insensitively.
func (s *ContactService) Search(term string) ([]models.Contact, error) {
	contacts, err := s.List()
	if err != nil {
		return nil, err
	}

	needle := fold(strings.TrimSpace(term))
	if needle == "" {
		return contacts, nil
	}

	matches := make([]models.Contact, 0)
	for _, contact := range contacts {
		if strings.Contains(fold(contact.FirstName+" "+contact.LastName), needle) {
			matches = append(matches, contact)
		}
	}
	return matches, nil
}
