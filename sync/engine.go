package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"kinkeeper/database"
	"kinkeeper/models"
	"kinkeeper/store"
)

// RemoteTable is the outbound/inbound face of one remote table.
type RemoteTable[T models.Entity] interface {
	Name() string
	Pull(ctx context.Context, ownerID string) ([]T, error)
	Push(ctx context.Context, row T) error
}

// Feed delivers raw realtime change records for a table.
type Feed interface {
	Subscribe(ctx context.Context, table string, handler func(record json.RawMessage))
}

// queueItem is one unit of pusher work. Local mutations are persisted and
// pushed; remote merges are persisted only, so they never echo back out.
type queueItem[T models.Entity] struct {
	row  T
	push bool
}

// Engine keeps one observable store collection consistent with one remote
// table for the lifetime of an authenticated session.
//
// Activation warms the store from the persisted cache, runs a full pull
// (re-pulled every activation rather than resumed from a cursor), follows
// the realtime feed, and drains local mutations to the remote in strict
// FIFO order with infinite retry. Loss of connectivity never blocks local
// reads or writes; pushes simply accumulate until the network returns.
type Engine[T models.Entity] struct {
	collection *store.Collection[T]
	table      RemoteTable[T]
	feed       Feed
	cache      *database.Cache
	logger     *log.Logger
	limiter    *rate.Limiter

	mu          sync.Mutex
	queue       []queueItem[T]
	wake        chan struct{}
	active      bool
	ownerID     string
	cancel      context.CancelFunc
	done        chan struct{}
	synced      chan struct{}
	unsubscribe func()
}

func NewEngine[T models.Entity](collection *store.Collection[T], table RemoteTable[T], feed Feed, cache *database.Cache, logger *log.Logger) *Engine[T] {
	return &Engine[T]{
		collection: collection,
		table:      table,
		feed:       feed,
		cache:      cache,
		logger:     logger,
		limiter:    rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

// Activate binds the collection to the remote table for ownerID's session.
// It returns once the store is warmed from the persisted cache; the initial
// pull, realtime subscription and outbound pusher continue in the
// background until Deactivate.
func (e *Engine[T]) Activate(ctx context.Context, ownerID string) error {
	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		return fmt.Errorf("sync engine for %s is already active", e.table.Name())
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.active = true
	e.ownerID = ownerID
	e.queue = nil
	e.wake = make(chan struct{}, 1)
	e.synced = make(chan struct{})
	e.cancel = cancel
	e.done = make(chan struct{})
	e.mu.Unlock()

	// Warm the store before any subscription exists so cached rows render
	// immediately and don't generate pusher work.
	e.warmFromCache()

	// Observe every mutation from here on. The callback runs under the
	// collection lock, which is what preserves FIFO push order.
	unsubscribe := e.collection.Subscribe(func(ev store.Event[T]) {
		e.enqueue(queueItem[T]{row: ev.Value, push: ev.Source == store.SourceLocal})
	})
	e.mu.Lock()
	e.unsubscribe = unsubscribe
	e.mu.Unlock()

	e.feed.Subscribe(runCtx, e.table.Name(), e.handleRemoteChange)

	go e.runPusher(runCtx)
	go e.runInitialPull(runCtx, ownerID)

	e.logger.Info("sync engine activated", "table", e.table.Name(), "owner", ownerID)
	return nil
}

// Synced is closed after the first successful pull of this activation.
func (e *Engine[T]) Synced() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.synced
}

func (e *Engine[T]) markSynced() {
	e.mu.Lock()
	defer e.mu.Unlock()
	select {
	case <-e.synced:
	default:
		close(e.synced)
	}
}

// Deactivate stops the engine on sign-out. Queued pushes are discarded
// along with the rest of the session's local state.
func (e *Engine[T]) Deactivate() {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	e.active = false
	cancel := e.cancel
	unsubscribe := e.unsubscribe
	done := e.done
	e.queue = nil
	e.unsubscribe = nil
	e.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	<-done

	e.logger.Info("sync engine deactivated", "table", e.table.Name())
}

func (e *Engine[T]) enqueue(item queueItem[T]) {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	e.queue = append(e.queue, item)
	wake := e.wake
	e.mu.Unlock()

	select {
	case wake <- struct{}{}:
	default:
	}
}
