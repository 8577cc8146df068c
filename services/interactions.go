package services

import (
	"context"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"kinkeeper/models"
	"kinkeeper/session"
	"kinkeeper/store"
	"kinkeeper/validator"
)

// InteractionService manages interaction rows and their reference to a
// contact. Two validation paths disagree on purpose: Create silently
// downgrades an invalid contact reference to unassigned, while
// AssignContact fails hard: assignment is an explicit user action on a
// specific contact, creation is capture that should never lose content.
type InteractionService struct {
	interactions *store.Collection[models.Interaction]
	contacts     *store.Collection[models.Contact]
	session      *session.Session
	jobs         JobEnqueuer
	validate     *validator.Validator
	logger       *log.Logger
}

func NewInteractionService(interactions *store.Collection[models.Interaction], contacts *store.Collection[models.Contact], sess *session.Session, jobs JobEnqueuer, validate *validator.Validator, logger *log.Logger) *InteractionService {
	return &InteractionService{
		interactions: interactions,
		contacts:     contacts,
		session:      sess,
		jobs:         jobs,
		validate:     validate,
		logger:       logger,
	}
}

// Create captures a new interaction. An invalid contact reference is
// downgraded to unassigned rather than rejecting the whole creation. A
// transcript job is enqueued for enrichment; an enqueue failure is returned
// alongside the created interaction, which has already been written
// locally.
func (s *InteractionService) Create(ctx context.Context, req models.CreateInteractionRequest) (*models.Interaction, error) {
	owner, err := requireOwner(s.session)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	contactID := req.ContactID
	var contactName string
	if contactID != nil {
		contact, ok := s.contacts.Get(*contactID)
		if !ok || contact.OwnerID != owner || contact.Deleted {
			s.logger.Warn("downgrading invalid contact reference on interaction create", "contact_id", *contactID)
			contactID = nil
		} else {
			contactName = contact.FirstName + " " + contact.LastName
		}
	}

	now := time.Now().UTC()
	interaction := models.Interaction{
		ID:         uuid.New().String(),
		OwnerID:    owner,
		ContactID:  contactID,
		RawContent: req.RawContent,
		Status:     models.InteractionUnprocessed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.interactions.Set(interaction.ID, interaction)

	stored, _ := s.interactions.Get(interaction.ID)

	payload := map[string]any{
		"transcript":     req.RawContent,
		"interaction_id": interaction.ID,
	}
	if contactName != "" {
		payload["contact_name"] = contactName
	}
	_, enqueueErr := s.jobs.Enqueue(ctx, models.EnqueueJobRequest{
		UserID:    owner,
		ContactID: contactID,
		JobType:   models.JobInteractionTranscript,
		Payload:   payload,
	})
	if enqueueErr != nil {
		return &stored, enqueueErr
	}

	return &stored, nil
}

// Update merges a partial update into an existing interaction.
func (s *InteractionService) Update(id string, req models.UpdateInteractionRequest) (*models.Interaction, error) {
	owner, err := requireOwner(s.session)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	existing, ok := s.interactions.Get(id)
	if !ok || existing.OwnerID != owner || existing.Deleted {
		return nil, ErrNotFound
	}

	updated, _ := s.interactions.Apply(id, func(i models.Interaction) models.Interaction {
		if req.RawContent != nil {
			i.RawContent = *req.RawContent
		}
		if req.KeyConcepts != nil {
			i.KeyConcepts = *req.KeyConcepts
		}
		if req.Status != nil {
			i.Status = *req.Status
		}
		i.UpdatedAt = time.Now().UTC()
		return i
	})
	return &updated, nil
}

// Delete tombstones an interaction.
func (s *InteractionService) Delete(id string) error {
	owner, err := requireOwner(s.session)
	if err != nil {
		return err
	}

	existing, ok := s.interactions.Get(id)
	if !ok || existing.OwnerID != owner {
		return ErrNotFound
	}
	if existing.Deleted {
		return nil
	}

	s.interactions.Apply(id, func(i models.Interaction) models.Interaction {
		i.Deleted = true
		i.UpdatedAt = time.Now().UTC()
		return i
	})
	return nil
}

// Get returns an interaction visible to the active user.
func (s *InteractionService) Get(id string) (*models.Interaction, error) {
	owner, err := requireOwner(s.session)
	if err != nil {
		return nil, err
	}

	interaction, ok := s.interactions.Get(id)
	if !ok || interaction.OwnerID != owner || interaction.Deleted {
		return nil, ErrNotFound
	}
	return &interaction, nil
}

// List returns the user's live interactions, most recent first.
func (s *InteractionService) List() ([]models.Interaction, error) {
	owner, err := requireOwner(s.session)
	if err != nil {
		return nil, err
	}

	interactions := make([]models.Interaction, 0)
	for _, interaction := range s.interactions.GetAll() {
		if interaction.OwnerID != owner || interaction.Deleted {
			continue
		}
		interactions = append(interactions, interaction)
	}

	sort.Slice(interactions, func(i, j int) bool {
		return interactions[i].CreatedAt.After(interactions[j].CreatedAt)
	})
	return interactions, nil
}

// ListByContact returns the user's live interactions assigned to a contact.
func (s *InteractionService) ListByContact(contactID string) ([]models.Interaction, error) {
	interactions, err := s.List()
	if err != nil {
		return nil, err
	}

	assigned := make([]models.Interaction, 0)
	for _, interaction := range interactions {
		if interaction.ContactID != nil && *interaction.ContactID == contactID {
			assigned = append(assigned, interaction)
		}
	}
	return assigned, nil
}

// AssignContact links an interaction to a contact. Unlike Create, an
// invalid or deleted contact is a hard failure and the interaction's
// reference is left unchanged.
func (s *InteractionService) AssignContact(interactionID, contactID string) (*models.Interaction, error) {
	owner, err := requireOwner(s.session)
	if err != nil {
		return nil, err
	}

	existing, ok := s.interactions.Get(interactionID)
	if !ok || existing.OwnerID != owner || existing.Deleted {
		return nil, ErrNotFound
	}

	contact, ok := s.contacts.Get(contactID)
	if !ok || contact.OwnerID != owner || contact.Deleted {
		return nil, ErrInvalidReference
	}

	updated, _ := s.interactions.Apply(interactionID, func(i models.Interaction) models.Interaction {
		i.ContactID = &contactID
		i.UpdatedAt = time.Now().UTC()
		return i
	})
	return &updated, nil
}

// Unassign clears an interaction's contact reference. Used by orphan
// cleanup to repair dangling references; the correction flows through the
// store like any local write, so it also propagates to the backend.
func (s *InteractionService) Unassign(interactionID string) (*models.Interaction, error) {
	owner, err := requireOwner(s.session)
	if err != nil {
		return nil, err
	}

	existing, ok := s.interactions.Get(interactionID)
	if !ok || existing.OwnerID != owner || existing.Deleted {
		return nil, ErrNotFound
	}

	updated, _ := s.interactions.Apply(interactionID, func(i models.Interaction) models.Interaction {
		i.ContactID = nil
		i.UpdatedAt = time.Now().UTC()
		return i
	})
	return &updated, nil
}
