package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"kinkeeper/models"
)

// Table binds one entity type to one remote table with an explicit column
// selection. The sync engine uses it for the initial pull and for outbound
// upserts.
type Table[T models.Entity] struct {
	client   *Client
	name     string
	columns  []string
	ownerCol string
}

func NewTable[T models.Entity](client *Client, name string, columns []string, ownerCol string) *Table[T] {
	return &Table[T]{
		client:   client,
		name:     name,
		columns:  columns,
		ownerCol: ownerCol,
	}
}

func (t *Table[T]) Name() string {
	return t.name
}

// Pull fetches every row owned by ownerID, tombstones included. The full
// pull runs on every activation (changes-since-all policy): re-reading
// everything trades bandwidth for not having to trust a local cursor.
func (t *Table[T]) Pull(ctx context.Context, ownerID string) ([]T, error) {
	raw, err := t.client.Select(ctx, t.name, t.columns, map[string]string{
		t.ownerCol: Eq(ownerID),
	}, "updated_at.asc")
	if err != nil {
		return nil, err
	}

	rows := make([]T, 0, len(raw))
	for _, record := range raw {
		var row T
		if err := json.Unmarshal(record, &row); err != nil {
			return nil, fmt.Errorf("failed to decode %s row: %w", t.name, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Push upserts one full row. Last-writer-wins between devices is decided
// remotely on updated_at; this call just delivers the local state.
func (t *Table[T]) Push(ctx context.Context, row T) error {
	return t.client.Upsert(ctx, t.name, row)
}
