package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"kinkeeper/config"
)

// Client talks to the remote relational store over its PostgREST-style HTTP
// API. Columns are always selected explicitly, never *. The oauth2 client
// handles auth header injection and connection reuse.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(ctx context.Context, cfg *config.Config) *Client {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.RemoteAPIKey,
		TokenType:   "Bearer",
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.RemoteURL, "/"),
		apiKey:  cfg.RemoteAPIKey,
		http:    oauth2.NewClient(ctx, tokenSource),
	}
}

// APIError is a non-2xx response from the remote store.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote store returned %d: %s", e.Status, e.Body)
}

// Eq builds an equality filter value for a column.
func Eq(value string) string {
	return "eq." + value
}

// In builds a membership filter value for a column.
func In(values ...string) string {
	return "in.(" + strings.Join(values, ",") + ")"
}

// Select fetches rows from table. filters maps column names to operator
// expressions (see Eq/In); order is a column.direction pair like
// "created_at.asc" and may be empty.
func (c *Client) Select(ctx context.Context, table string, columns []string, filters map[string]string, order string) ([]json.RawMessage, error) {
	query := url.Values{}
	query.Set("select", strings.Join(columns, ","))
	for column, expr := range filters {
		query.Set(column, expr)
	}
	if order != "" {
		query.Set("order", order)
	}

	body, err := c.do(ctx, http.MethodGet, table, query, nil, "")
	if err != nil {
		return nil, err
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode rows from %s: %w", table, err)
	}
	return rows, nil
}

// Insert adds one row and returns the stored representation.
func (c *Client) Insert(ctx context.Context, table string, row any) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodPost, table, nil, row, "return=representation")
	if err != nil {
		return nil, err
	}
	return firstRow(table, body)
}

// Upsert writes a full row, replacing any existing row with the same
// primary key. Conflict resolution between concurrent writers happens at
// the remote layer; the caller just reflects the outcome on the next pull
// or realtime event.
func (c *Client) Upsert(ctx context.Context, table string, row any) error {
	_, err := c.do(ctx, http.MethodPost, table, nil, row, "resolution=merge-duplicates")
	return err
}

// UpdateWhere patches every row matching filters and returns the updated
// rows. An empty result means no row matched: the caller's conditional
// (status guard, dedup lookup) did not hold.
func (c *Client) UpdateWhere(ctx context.Context, table string, patch any, filters map[string]string) ([]json.RawMessage, error) {
	query := url.Values{}
	for column, expr := range filters {
		query.Set(column, expr)
	}

	body, err := c.do(ctx, http.MethodPatch, table, query, patch, "return=representation")
	if err != nil {
		return nil, err
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode updated rows from %s: %w", table, err)
	}
	return rows, nil
}

func (c *Client) do(ctx context.Context, method, table string, query url.Values, payload any, prefer string) ([]byte, error) {
	endpoint := c.baseURL + "/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", table, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return body, nil
}

func firstRow(table string, body []byte) (json.RawMessage, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode rows from %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("remote store returned no row for %s insert", table)
	}
	return rows[0], nil
}
