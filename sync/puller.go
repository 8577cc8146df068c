package sync

import (
	"context"
	"encoding/json"

	"kinkeeper/remote"
)

// warmFromCache populates the store from the persisted cache so the app
// can render data before the engine has reconnected. Cached rows carry the
// updated_at they were reconciled with, so the merge is the same
// last-writer-wins as any other.
func (e *Engine[T]) warmFromCache() {
	rows, err := e.cache.LoadCollection(e.collection.Name())
	if err != nil {
		e.logger.Error("failed to load persisted collection", "collection", e.collection.Name(), "err", err)
		return
	}

	loaded := 0
	for _, cached := range rows {
		var row T
		if err := json.Unmarshal(cached.Payload, &row); err != nil {
			e.logger.Error("failed to decode cached row", "collection", cached.Collection, "id", cached.ID, "err", err)
			continue
		}
		if e.collection.MergeRemote(row) {
			loaded++
		}
	}

	if loaded > 0 {
		e.logger.Info("store warmed from cache", "collection", e.collection.Name(), "rows", loaded)
	}
}

// runInitialPull fetches the full owner partition, retrying forever until
// it lands or the session ends. Merged rows flow through the same
// last-writer-wins path as realtime events.
func (e *Engine[T]) runInitialPull(ctx context.Context, ownerID string) {
	for {
		rows, err := e.table.Pull(ctx, ownerID)
		if err == nil {
			for _, row := range rows {
				e.collection.MergeRemote(row)
			}
			e.logger.Info("initial pull complete", "table", e.table.Name(), "rows", len(rows))
			e.markSynced()
			return
		}
		if ctx.Err() != nil {
			return
		}

		if remote.IsNetworkError(err) {
			e.logger.Debug("initial pull deferred, network unavailable", "table", e.table.Name())
		} else {
			e.logger.Error("initial pull failed, retrying", "table", e.table.Name(), "err", err)
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return
		}
	}
}

// handleRemoteChange merges one realtime change record into the store.
// Conflicts with concurrent local edits are resolved by updated_at
// precedence; the engine reflects the remote's resolution rather than
// arbitrating itself. Records outside the active owner's partition are
// dropped, matching the filter the initial pull applies.
func (e *Engine[T]) handleRemoteChange(record json.RawMessage) {
	var row T
	if err := json.Unmarshal(record, &row); err != nil {
		e.logger.Error("failed to decode realtime record", "table", e.table.Name(), "err", err)
		return
	}

	e.mu.Lock()
	ownerID := e.ownerID
	e.mu.Unlock()
	if row.EntityOwnerID() != ownerID {
		e.logger.Debug("dropping realtime record outside owner partition", "table", e.table.Name(), "id", row.EntityID())
		return
	}

	e.collection.MergeRemote(row)
}
