package store

import (
	"sync"

	"kinkeeper/models"
)

// Source says which side of the sync boundary produced a change event.
type Source string

const (
	// SourceLocal marks writes made through domain accessors.
	SourceLocal Source = "local"
	// SourceRemote marks rows merged from the remote store.
	SourceRemote Source = "remote"
)

// Event describes one mutation of a collection row.
type Event[T models.Entity] struct {
	ID     string
	Value  T
	Source Source
}

// Collection is one reactive keyed map of entities. It is the authoritative
// local view of a remote table: point reads and writes are synchronous and
// never touch the network, and every mutation is fanned out to subscribers.
//
// Rows are never removed by a write (deletion only flips the entity's
// Deleted flag), so a dangling reference always reads a defined tombstone
// instead of empty state. Reset (session switch) is the only operation that
// empties the map.
//
// Subscriber callbacks run synchronously under the collection lock, which
// is what guarantees that the sync engine observes mutations in the order
// they happened. Callbacks must not call back into the collection.
type Collection[T models.Entity] struct {
	name string

	mu      sync.RWMutex
	rows    map[string]T
	subs    map[int]func(Event[T])
	nextSub int
}

func NewCollection[T models.Entity](name string) *Collection[T] {
	return &Collection[T]{
		name: name,
		rows: make(map[string]T),
		subs: make(map[int]func(Event[T])),
	}
}

// Name returns the collection (and remote table) name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Get returns the latest locally known value for id, tombstones included.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.rows[id]
	return value, ok
}

// Set writes a full row as a local mutation and notifies subscribers.
func (c *Collection[T]) Set(id string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rows[id] = value
	c.notify(Event[T]{ID: id, Value: value, Source: SourceLocal})
}

// Apply performs a read-modify-write of an existing row under the lock and
// reports whether the row existed. Accessors use it for partial updates.
func (c *Collection[T]) Apply(id string, fn func(T) T) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, ok := c.rows[id]
	if !ok {
		var zero T
		return zero, false
	}

	next := fn(prev)
	c.rows[id] = next
	c.notify(Event[T]{ID: id, Value: next, Source: SourceLocal})
	return next, true
}

// GetAll returns a snapshot copy of the collection for derived reads.
func (c *Collection[T]) GetAll() map[string]T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]T, len(c.rows))
	for id, value := range c.rows {
		snapshot[id] = value
	}
	return snapshot
}

// MergeRemote merges an inbound row using whole-row last-writer-wins on
// UpdatedAt: the incoming row is dropped when the local copy is strictly
// newer. Applied merges notify subscribers with SourceRemote so the sync
// engine does not echo them back out. Reports whether the row was applied.
func (c *Collection[T]) MergeRemote(value T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := value.EntityID()
	if existing, ok := c.rows[id]; ok {
		if existing.EntityUpdatedAt().After(value.EntityUpdatedAt()) {
			return false
		}
	}

	c.rows[id] = value
	c.notify(Event[T]{ID: id, Value: value, Source: SourceRemote})
	return true
}

// Subscribe registers a mutation callback and returns its unsubscribe func.
func (c *Collection[T]) Subscribe(fn func(Event[T])) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Len returns the number of rows, tombstones included.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.rows)
}

// Reset drops every row. Called on sign-out so the next session never
// observes the previous user's data.
func (c *Collection[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rows = make(map[string]T)
}

// notify must be called with the write lock held.
func (c *Collection[T]) notify(ev Event[T]) {
	for _, fn := range c.subs {
		fn(ev)
	}
}
