package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"kinkeeper/models"
)

func strPtr(s string) *string { return &s }

func TestContactService_Create(t *testing.T) {
	f := newFixture(t)

	contact, err := f.contactSvc.Create(models.CreateContactRequest{
		FirstName: "Ana",
		LastName:  "García",
		Details:   "met at the conference",
		CommunicationChannels: []models.CommunicationChannel{
			{Type: "email", Value: "ana@example.com"},
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, contact.ID)
	assert.Equal(t, testUserID, contact.OwnerID)
	assert.Equal(t, "Ana", contact.FirstName)
	assert.False(t, contact.CreatedAt.IsZero())
	assert.Equal(t, contact.CreatedAt, contact.UpdatedAt)
	assert.False(t, contact.Deleted)

	// The returned value is the row as stored, not the request echoed back.
	stored, ok := f.contacts.Get(contact.ID)
	require.True(t, ok)
	assert.Equal(t, stored, *contact)
}

func TestContactService_CreateValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  models.CreateContactRequest
	}{
		{"missing first name", models.CreateContactRequest{LastName: "García"}},
		{"bad channel type", models.CreateContactRequest{
			FirstName: "Ana",
			CommunicationChannels: []models.CommunicationChannel{
				{Type: "carrier-pigeon", Value: "coop 7"},
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.contactSvc.Create(tt.req)
			assert.Error(t, err)
		})
	}
	assert.Equal(t, 0, f.contacts.Len())
}

func TestContactService_CreateRequiresSession(t *testing.T) {
	f := newFixture(t)
	f.session.Clear()

	_, err := f.contactSvc.Create(models.CreateContactRequest{FirstName: "Ana"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestContactService_UpdatePartial(t *testing.T) {
	f := newFixture(t)
	contact := f.mustCreateContact(t, "Ana", "García")

	updated, err := f.contactSvc.Update(context.Background(), contact.ID, models.UpdateContactRequest{
		FirstName: strPtr("Anita"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Anita", updated.FirstName)
	assert.Equal(t, "García", updated.LastName, "unset fields stay untouched")
	assert.True(t, updated.UpdatedAt.After(contact.UpdatedAt) || updated.UpdatedAt.Equal(contact.UpdatedAt))
	f.jobs.AssertNotCalled(t, "Enqueue")
}

func TestContactService_UpdateNotFound(t *testing.T) {
	f := newFixture(t)
	contact := f.mustCreateContact(t, "Ana", "García")

	tests := []struct {
		name string
		id   string
		prep func()
	}{
		{"unknown id", "nope", nil},
		{"foreign owner", contact.ID, func() {
			f.contacts.Apply(contact.ID, func(c models.Contact) models.Contact {
				c.OwnerID = "someone-else"
				return c
			})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prep != nil {
				tt.prep()
			}
			_, err := f.contactSvc.Update(context.Background(), tt.id, models.UpdateContactRequest{
				FirstName: strPtr("X"),
			})
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestContactService_UpdateDetailsEnqueuesJob(t *testing.T) {
	f := newFixture(t)
	contact := f.mustCreateContact(t, "Ana", "García")

	f.jobs.On("Enqueue", mock.Anything, mock.MatchedBy(func(req models.EnqueueJobRequest) bool {
		return req.JobType == models.JobDetailsUpdate &&
			req.ContactID != nil && *req.ContactID == contact.ID &&
			req.Payload["details"] == "now lives in Lisbon"
	})).Return(&models.ProcessJob{ID: "job-1"}, nil).Once()

	_, err := f.contactSvc.Update(context.Background(), contact.ID, models.UpdateContactRequest{
		Details: strPtr("now lives in Lisbon"),
	})
	require.NoError(t, err)
	f.jobs.AssertExpectations(t)

	// Same details again: no change, no job.
	_, err = f.contactSvc.Update(context.Background(), contact.ID, models.UpdateContactRequest{
		Details: strPtr("now lives in Lisbon"),
	})
	require.NoError(t, err)
	f.jobs.AssertNumberOfCalls(t, "Enqueue", 1)
}

func TestContactService_UpdateReturnsContactWithEnqueueError(t *testing.T) {
	f := newFixture(t)
	contact := f.mustCreateContact(t, "Ana", "García")

	enqueueErr := errors.New("queue unavailable")
	f.jobs.On("Enqueue", mock.Anything, mock.Anything).Return(nil, enqueueErr)

	updated, err := f.contactSvc.Update(context.Background(), contact.ID, models.UpdateContactRequest{
		Details: strPtr("changed"),
	})

	// The local write stuck even though the queue leg failed.
	assert.ErrorIs(t, err, enqueueErr)
	require.NotNil(t, updated)
	assert.Equal(t, "changed", updated.Details)

	stored, _ := f.contacts.Get(contact.ID)
	assert.Equal(t, "changed", stored.Details)
}

func TestContactService_DeleteTombstones(t *testing.T) {
	f := newFixture(t)
	contact := f.mustCreateContact(t, "Ana", "García")

	require.NoError(t, f.contactSvc.Delete(contact.ID))

	// Accessor reads treat the tombstone as gone.
	_, err := f.contactSvc.Get(contact.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := f.contactSvc.List()
	require.NoError(t, err)
	assert.Empty(t, list)

	// The store still holds the row so sync can propagate the deletion.
	stored, ok := f.contacts.Get(contact.ID)
	require.True(t, ok)
	assert.True(t, stored.Deleted)

	// Deleting again is a no-op, not an error.
	assert.NoError(t, f.contactSvc.Delete(contact.ID))
}

func TestContactService_DeleteUnknown(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.contactSvc.Delete("nope"), ErrNotFound)
}

func TestContactService_ListOwnerPartition(t *testing.T) {
	f := newFixture(t)
	f.mustCreateContact(t, "Bruno", "Costa")
	f.mustCreateContact(t, "Ana", "García")

	// A foreign row in the store (as left behind by a raced sync) must never
	// surface through the accessor.
	foreign := models.Contact{ID: "f1", OwnerID: "someone-else", FirstName: "Zoe", UpdatedAt: time.Now()}
	f.contacts.Set(foreign.ID, foreign)

	list, err := f.contactSvc.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ana", list[0].FirstName, "sorted by folded name")
	assert.Equal(t, "Bruno", list[1].FirstName)
}

func TestContactService_Search(t *testing.T) {
	f := newFixture(t)
	f.mustCreateContact(t, "Ana", "García")
	f.mustCreateContact(t, "Bruno", "Costa")

	tests := []struct {
		name  string
		term  string
		first []string
	}{
		{"case insensitive", "ana", []string{"Ana"}},
		{"diacritic insensitive", "garcia", []string{"Ana"}},
		{"folded term matches accented name", "garcía", []string{"Ana"}},
		{"substring across names", "o", []string{"Bruno"}},
		{"empty term returns all", "  ", []string{"Ana", "Bruno"}},
		{"no match", "xyz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := f.contactSvc.Search(tt.term)
			require.NoError(t, err)
			names := make([]string, 0, len(matches))
			for _, m := range matches {
				names = append(names, m.FirstName)
			}
			assert.Equal(t, tt.first, names)
		})
	}
}
