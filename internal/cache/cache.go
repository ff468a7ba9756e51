// Package cache provides the keyed, invalidatable cache of resource
// collections and single-resource fetches that the mutation coordinator
// keeps consistent with the remote store.
package cache

import (
	"sync"
	"time"

	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/types"
)

// State describes the freshness of one cache entry.
type State string

const (
	// StateIdle means the entry holds a value fetched and not yet invalidated.
	StateIdle State = "idle"
	// StateFetching means a fetch for the entry's key is in flight.
	StateFetching State = "fetching"
	// StateStale means the entry was invalidated; its value is still served
	// while a background refetch proceeds (stale-while-revalidate).
	StateStale State = "stale"
)

// Key addresses one cached fetch: a list key when ID is empty, an item key
// otherwise. Query must be in canonical encoded form.
type Key struct {
	Kind  types.Kind
	ID    string
	Query string
}

// ListKey builds the cache key for a collection fetch.
func ListKey(kind types.Kind, query string) Key {
	return Key{Kind: kind, Query: query}
}

// ItemKey builds the cache key for a single-resource fetch.
func ItemKey(kind types.Kind, id string) Key {
	return Key{Kind: kind, ID: id}
}

// IsList reports whether the key addresses a collection.
func (k Key) IsList() bool {
	return k.ID == ""
}

// Value holds either a single resource or a list for one cache key.
type Value struct {
	One  *types.Resource
	Many []types.Resource
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	out := Value{}
	if v.One != nil {
		cloned := v.One.Clone()
		out.One = &cloned
	}
	if v.Many != nil {
		out.Many = make([]types.Resource, len(v.Many))
		for i, resource := range v.Many {
			out.Many[i] = resource.Clone()
		}
	}
	return out
}

// Entry is one cached fetch result.
type Entry struct {
	Key       Key
	Value     Value
	FetchedAt time.Time
	State     State
}

// Snapshot is a deep copy of one key's entry, taken before an optimistic
// mutation so the store can be restored on rollback.
type Snapshot struct {
	key     Key
	entry   Entry
	existed bool
}

// Key returns the cache key the snapshot was taken for.
func (s Snapshot) Key() Key {
	return s.key
}

// Store is the mutable shared cache. All methods are safe for concurrent
// use; mutation must go through the coordinator to preserve the rollback
// invariant.
type Store struct {
	mu      sync.Mutex
	entries map[Key]*Entry
	now     func() time.Time
}

// NewStore returns an empty cache store.
func NewStore() *Store {
	return &Store{
		entries: make(map[Key]*Entry),
		now:     time.Now,
	}
}

// Get returns a deep copy of the entry for key, if present.
func (s *Store) Get(key Key) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	return cloneEntry(*entry), true
}

// Set stores a fetched or optimistically patched value, marking the entry
// idle.
func (s *Store) Set(key Key, value Value) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &Entry{
		Key:       key,
		Value:     value.Clone(),
		FetchedAt: s.now().UTC(),
		State:     StateIdle,
	}
}

// MarkFetching flags an existing entry as having an in-flight fetch.
// Unknown keys are ignored; the entry appears on first Set.
func (s *Store) MarkFetching(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok {
		entry.State = StateFetching
	}
}

// Invalidate marks every entry of the mutated kind stale without deleting
// it, so views keep rendering the previous value while a refetch proceeds.
func (s *Store) Invalidate(kind types.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.entries {
		if key.Kind == kind {
			entry.State = StateStale
		}
	}
}

// InvalidateKey marks a single entry stale.
func (s *Store) InvalidateKey(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok {
		entry.State = StateStale
	}
}

// Drop removes an entry entirely. Used when a rolled-back optimistic create
// left a placeholder item key behind.
func (s *Store) Drop(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Keys returns every cache key currently held for a kind.
func (s *Store) Keys(kind types.Kind) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]Key, 0)
	for key := range s.entries {
		if key.Kind == kind {
			keys = append(keys, key)
		}
	}
	return keys
}

// Snapshot takes a deep copy of the entry for key, recording absence when
// the key is not cached.
func (s *Store) Snapshot(key Key) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return Snapshot{key: key}
	}
	return Snapshot{key: key, entry: cloneEntry(*entry), existed: true}
}

// Restore returns the entry for the snapshot's key to its exact
// pre-mutation state, removing entries that did not exist before.
func (s *Store) Restore(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !snapshot.existed {
		delete(s.entries, snapshot.key)
		return
	}
	restored := cloneEntry(snapshot.entry)
	s.entries[snapshot.key] = &restored
}

func cloneEntry(entry Entry) Entry {
	entry.Value = entry.Value.Clone()
	return entry
}
