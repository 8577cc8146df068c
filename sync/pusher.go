package sync

import (
	"context"

	"kinkeeper/remote"
)

// runPusher drains the outbound queue in FIFO order. Every dequeued state
// is mirrored to the persistence cache; local mutations are additionally
// pushed to the remote with infinite retry. Nothing is reordered and
// nothing is dropped short of Deactivate.
func (e *Engine[T]) runPusher(ctx context.Context) {
	defer close(e.done)

	for {
		item, ok := e.next(ctx)
		if !ok {
			return
		}

		e.persist(item.row)

		if item.push {
			e.pushWithRetry(ctx, item.row)
		}
	}
}

// next blocks until an item is available or the engine is shut down.
func (e *Engine[T]) next(ctx context.Context) (queueItem[T], bool) {
	for {
		e.mu.Lock()
		if len(e.queue) > 0 {
			item := e.queue[0]
			e.queue = e.queue[1:]
			e.mu.Unlock()
			return item, true
		}
		wake := e.wake
		e.mu.Unlock()

		select {
		case <-ctx.Done():
			var zero queueItem[T]
			return zero, false
		case <-wake:
		}
	}
}

func (e *Engine[T]) persist(row T) {
	err := e.cache.SaveRow(e.collection.Name(), row.EntityID(), row, row.EntityUpdatedAt(), row.EntityDeleted())
	if err != nil {
		e.logger.Error("failed to persist row", "collection", e.collection.Name(), "id", row.EntityID(), "err", err)
	}
}

// pushWithRetry retries forever, never gives up and never surfaces the
// error to the caller. Network-class failures stay out of the error logs;
// anything else is logged with context and retried all the same.
func (e *Engine[T]) pushWithRetry(ctx context.Context, row T) {
	for {
		err := e.table.Push(ctx, row)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		if remote.IsNetworkError(err) {
			e.logger.Debug("push deferred, network unavailable", "table", e.table.Name(), "id", row.EntityID())
		} else {
			e.logger.Error("push failed, retrying", "table", e.table.Name(), "id", row.EntityID(), "err", err)
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return
		}
	}
}
