package database

import (
	"encoding/json"
	"fmt"
	"time"
)

// Cache mirrors every reconciled entity state to SQLite so the next process
// start can populate the observable store before the sync engine has
// reconnected. It is a dumb row cache: all invariants live above it.
type Cache struct {
	db *DB
}

func NewCache(db *DB) *Cache {
	return &Cache{db: db}
}

// CachedRow is one persisted entity state.
type CachedRow struct {
	Collection string
	ID         string
	Payload    json.RawMessage
	UpdatedAt  time.Time
	Deleted    bool
}

// SaveRow upserts one entity state. entity must be JSON-encodable.
func (c *Cache) SaveRow(collection, id string, entity any, updatedAt time.Time, deleted bool) error {
	payload, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to encode cache row %s/%s: %w", collection, id, err)
	}

	_, err = c.db.Exec(`
		INSERT INTO cache (collection, id, payload, updated_at, deleted, cached_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at,
			deleted = excluded.deleted,
			cached_at = excluded.cached_at
	`, collection, id, string(payload), updatedAt, boolToInt(deleted), time.Now())
	return err
}

// LoadCollection returns every cached row of a collection, oldest update
// first, tombstones included.
func (c *Cache) LoadCollection(collection string) ([]CachedRow, error) {
	rows, err := c.db.Query(`
		SELECT collection, id, payload, updated_at, deleted
		FROM cache
		WHERE collection = ?
		ORDER BY updated_at ASC
	`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cached []CachedRow
	for rows.Next() {
		var row CachedRow
		var payload string
		var deleted int
		if err := rows.Scan(&row.Collection, &row.ID, &payload, &row.UpdatedAt, &deleted); err != nil {
			return nil, err
		}
		row.Payload = json.RawMessage(payload)
		row.Deleted = deleted == 1
		cached = append(cached, row)
	}

	return cached, rows.Err()
}

// ClearCollection drops all cached rows of one collection.
func (c *Cache) ClearCollection(collection string) error {
	_, err := c.db.Exec("DELETE FROM cache WHERE collection = ?", collection)
	return err
}

// ClearAll drops every cached row. Called on sign-out so one user's cached
// data never leaks into another user's session.
func (c *Cache) ClearAll() error {
	_, err := c.db.Exec("DELETE FROM cache")
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
