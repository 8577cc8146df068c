package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinkeeper/config"
	"kinkeeper/models"
)

func setupTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(context.Background(), &config.Config{
		RemoteURL:    server.URL,
		RemoteAPIKey: "test-key",
	})
}

func TestClient_SelectBuildsQuery(t *testing.T) {
	var got *http.Request
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Write([]byte(`[{"id":"c1"},{"id":"c2"}]`))
	})

	rows, err := client.Select(context.Background(), "contacts",
		[]string{"id", "first_name"},
		map[string]string{"owner_id": Eq("user-1")},
		"updated_at.asc")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	require.NotNil(t, got)
	assert.Equal(t, "/contacts", got.URL.Path)
	query := got.URL.Query()
	assert.Equal(t, "id,first_name", query.Get("select"))
	assert.Equal(t, "eq.user-1", query.Get("owner_id"))
	assert.Equal(t, "updated_at.asc", query.Get("order"))
	assert.Equal(t, "test-key", got.Header.Get("apikey"))
	assert.Equal(t, "Bearer test-key", got.Header.Get("Authorization"))
}

func TestClient_SelectAPIError(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "permission denied", http.StatusForbidden)
	})

	_, err := client.Select(context.Background(), "contacts", []string{"id"}, nil, "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Contains(t, apiErr.Body, "permission denied")
}

func TestClient_InsertReturnsRepresentation(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		w.Write([]byte(`[{"id":"job-1","status":"pending"}]`))
	})

	raw, err := client.Insert(context.Background(), "process_queue", map[string]any{"id": "job-1"})
	require.NoError(t, err)

	var row map[string]any
	require.NoError(t, json.Unmarshal(raw, &row))
	assert.Equal(t, "pending", row["status"])
}

func TestClient_UpsertSendsMergePreference(t *testing.T) {
	var prefer string
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		prefer = r.Header.Get("Prefer")
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, client.Upsert(context.Background(), "contacts", map[string]any{"id": "c1"}))
	assert.Equal(t, "resolution=merge-duplicates", prefer)
}

func TestClient_UpdateWhereReturnsMatches(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.pending", r.URL.Query().Get("status"))
		w.Write([]byte(`[]`))
	})

	rows, err := client.UpdateWhere(context.Background(), "process_queue",
		map[string]any{"status": "cancelled"},
		map[string]string{"status": Eq("pending")})
	require.NoError(t, err)
	assert.Empty(t, rows, "no match means the conditional did not hold")
}

func TestFilterBuilders(t *testing.T) {
	assert.Equal(t, "eq.user-1", Eq("user-1"))
	assert.Equal(t, "in.(pending,processing)", In("pending", "processing"))
}

func TestJobTable_OverwritePendingPayload(t *testing.T) {
	var got *http.Request
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Write([]byte(`[{"id":"job-1","job_type":"DETAILS_UPDATE","status":"pending"}]`))
	})
	table := NewJobTable(client)

	job, err := table.OverwritePendingPayload(context.Background(), "c1", models.JobDetailsUpdate, map[string]any{"details": "v2"})
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "job-1", job.ID)

	query := got.URL.Query()
	assert.Equal(t, "eq.c1", query.Get("contact_id"))
	assert.Equal(t, "eq.DETAILS_UPDATE", query.Get("job_type"))
	assert.Equal(t, "eq.pending", query.Get("status"))
}

func TestJobTable_OverwritePendingPayloadNoMatch(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	table := NewJobTable(client)

	job, err := table.OverwritePendingPayload(context.Background(), "c1", models.JobDetailsUpdate, nil)
	require.NoError(t, err)
	assert.Nil(t, job, "nil signals the caller to insert a fresh job")
}

func TestJobTable_UpdateStatusIfGuard(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.job-1", r.URL.Query().Get("id"))
		assert.Equal(t, "eq.pending", r.URL.Query().Get("status"))
		w.Write([]byte(`[]`))
	})
	table := NewJobTable(client)

	job, err := table.UpdateStatusIf(context.Background(), "job-1", models.JobPending, models.JobCancelled)
	require.NoError(t, err)
	assert.Nil(t, job, "guard miss is not an error")
}

func TestJobTable_GetByIDMissing(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	table := NewJobTable(client)

	job, err := table.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, job)
}
