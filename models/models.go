package models

import "time"

// Collection names used by the observable store, the persistence cache and
// the sync engine. Each maps 1:1 to a remote table of the same name.
const (
	CollectionContacts     = "contacts"
	CollectionInteractions = "interactions"
	CollectionProfiles     = "profiles"
)

// Entity is implemented by every row that lives in an observable store
// collection. UpdatedAt ordering is the basis for last-writer-wins merges;
// the owner id is the partition key every inbound row is checked against.
type Entity interface {
	EntityID() string
	EntityOwnerID() string
	EntityUpdatedAt() time.Time
	EntityDeleted() bool
}

// InteractionStatus tracks how far the enrichment pipeline has taken an
// interaction's raw content.
type InteractionStatus string

const (
	InteractionUnprocessed InteractionStatus = "unprocessed"
	InteractionProcessing  InteractionStatus = "processing"
	InteractionProcessed   InteractionStatus = "processed"
)

// CommunicationChannel is one way to reach a contact (phone, email, ...).
// The list is serialized as JSON both in the remote row and the local cache.
type CommunicationChannel struct {
	Type  string `json:"type" validate:"required,channeltype"`
	Value string `json:"value" validate:"required"`
}

type Contact struct {
	ID                    string                 `json:"id"`
	OwnerID               string                 `json:"owner_id"`
	FirstName             string                 `json:"first_name"`
	LastName              string                 `json:"last_name"`
	Details               string                 `json:"details"`
	CommunicationChannels []CommunicationChannel `json:"communication_channels"`
	Deleted               bool                   `json:"deleted"`
	CreatedAt             time.Time              `json:"created_at"`
	UpdatedAt             time.Time              `json:"updated_at"`
}

func (c Contact) EntityID() string           { return c.ID }
func (c Contact) EntityOwnerID() string      { return c.OwnerID }
func (c Contact) EntityUpdatedAt() time.Time { return c.UpdatedAt }
func (c Contact) EntityDeleted() bool        { return c.Deleted }

type Interaction struct {
	ID          string            `json:"id"`
	OwnerID     string            `json:"owner_id"`
	ContactID   *string           `json:"contact_id"`
	RawContent  string            `json:"raw_content"`
	KeyConcepts string            `json:"key_concepts"`
	Status      InteractionStatus `json:"status"`
	Deleted     bool              `json:"deleted"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (i Interaction) EntityID() string           { return i.ID }
func (i Interaction) EntityOwnerID() string      { return i.OwnerID }
func (i Interaction) EntityUpdatedAt() time.Time { return i.UpdatedAt }
func (i Interaction) EntityDeleted() bool        { return i.Deleted }

// Profile is keyed by the user id, not a generated id. One row per user,
// created lazily by ProfileService.GetOrCreate.
type Profile struct {
	UserID         string    `json:"user_id"`
	OnboardingDone bool      `json:"onboarding_done"`
	Subscribed     bool      `json:"subscribed"`
	Deleted        bool      `json:"deleted"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (p Profile) EntityID() string           { return p.UserID }
func (p Profile) EntityOwnerID() string      { return p.UserID }
func (p Profile) EntityUpdatedAt() time.Time { return p.UpdatedAt }
func (p Profile) EntityDeleted() bool        { return p.Deleted }

type CreateContactRequest struct {
	FirstName             string                 `json:"first_name" validate:"required,max=200"`
	LastName              string                 `json:"last_name" validate:"max=200"`
	Details               string                 `json:"details"`
	CommunicationChannels []CommunicationChannel `json:"communication_channels" validate:"dive"`
}

// UpdateContactRequest carries a partial update; nil fields are untouched.
type UpdateContactRequest struct {
	FirstName             *string                 `json:"first_name,omitempty" validate:"omitempty,max=200"`
	LastName              *string                 `json:"last_name,omitempty" validate:"omitempty,max=200"`
	Details               *string                 `json:"details,omitempty"`
	CommunicationChannels *[]CommunicationChannel `json:"communication_channels,omitempty" validate:"omitempty,dive"`
}

type CreateInteractionRequest struct {
	ContactID  *string `json:"contact_id,omitempty"`
	RawContent string  `json:"raw_content" validate:"required"`
}

// UpdateInteractionRequest carries a partial update; nil fields are untouched.
type UpdateInteractionRequest struct {
	RawContent  *string            `json:"raw_content,omitempty"`
	KeyConcepts *string            `json:"key_concepts,omitempty"`
	Status      *InteractionStatus `json:"status,omitempty" validate:"omitempty,oneof=unprocessed processing processed"`
}
