// Package coordinator executes mutations against the resource client,
// applying optimistic patches to the cache store before the network call
// resolves and reconciling (commit or rollback) when it settles.
package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/internal/cache"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/status"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/types"
)

// Op identifies a mutation operation.
type Op string

const (
	// OpCreate submits a new resource.
	OpCreate Op = "create"
	// OpUpdate applies a full or partial update.
	OpUpdate Op = "update"
	// OpDelete removes a resource.
	OpDelete Op = "delete"
	// OpTransition invokes a named status/action transition.
	OpTransition Op = "transition"
)

// ResultState is the lifecycle state of a pending mutation.
type ResultState string

const (
	// StateInFlight means the network call has not settled yet.
	StateInFlight ResultState = "inFlight"
	// StateCommitted means the call succeeded and affected keys were
	// invalidated.
	StateCommitted ResultState = "committed"
	// StateRolledBack means the call failed and every snapshot was restored.
	StateRolledBack ResultState = "rolledBack"
)

// Client is the subset of the resource client the coordinator drives.
type Client interface {
	Get(ctx context.Context, kind types.Kind, id string) (types.Resource, error)
	Create(ctx context.Context, kind types.Kind, payload types.Payload) (types.Resource, error)
	Update(ctx context.Context, kind types.Kind, id string, patch types.Payload) (types.Resource, error)
	Remove(ctx context.Context, kind types.Kind, id string) error
	Action(ctx context.Context, kind types.Kind, id, action string, body types.Payload) (types.Resource, error)
}

// Mutation describes one create/update/delete/status-change request.
type Mutation struct {
	Kind types.Kind
	// ID targets an existing resource; empty for OpCreate.
	ID string
	Op Op
	// Payload is the create payload, update patch, or action body.
	Payload types.Payload
	// Action is the named transition for OpTransition; defaults to "status".
	Action string
	// Status is the target status for OpTransition.
	Status types.Status
}

// PendingMutation records one in-flight mutation: the pre-mutation
// snapshots for rollback and the settle state. It is created when the
// mutation begins and discarded once it settles.
type PendingMutation struct {
	Mutation  Mutation
	Snapshots []cache.Snapshot
	State     ResultState
}

// Coordinator serializes mutations per resource kind and keeps the cache
// store consistent with the remote store across optimistic updates.
type Coordinator struct {
	client  Client
	store   *cache.Store
	machine *status.Machine
	locks   *keyLock
	logger  zerolog.Logger

	mu      sync.Mutex
	pending map[string]*PendingMutation
}

// New builds a Coordinator over the given client, cache store, and status
// machine.
func New(client Client, store *cache.Store, machine *status.Machine, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		client:  client,
		store:   store,
		machine: machine,
		locks:   newKeyLock(),
		logger:  logger.With().Str("component", "coordinator").Logger(),
		pending: make(map[string]*PendingMutation),
	}
}

// Mutate runs one mutation end to end: snapshot affected keys, apply the
// optimistic patch, invoke the client, then invalidate on success or
// restore every snapshot on failure. Mutations of the same kind are
// serialized FIFO; a second mutation targeting an entity queues behind the
// one already in flight, so no two invocations hold overlapping
// uncommitted snapshots for the same key.
func (c *Coordinator) Mutate(ctx context.Context, m Mutation) (types.Resource, error) {
	if err := validate(m); err != nil {
		return types.Resource{}, err
	}

	lockKey := string(m.Kind)
	if err := c.locks.acquire(ctx, lockKey); err != nil {
		return types.Resource{}, fmt.Errorf("waiting for pending %s mutation: %w", m.Kind, err)
	}
	defer c.locks.release(lockKey)

	pending := &PendingMutation{Mutation: m, State: StateInFlight}
	c.track(lockKey, pending)
	defer c.untrack(lockKey)

	affected := c.affectedKeys(m)
	pending.Snapshots = make([]cache.Snapshot, 0, len(affected))
	for _, key := range affected {
		pending.Snapshots = append(pending.Snapshots, c.store.Snapshot(key))
	}

	c.applyOptimistic(m, affected)

	resource, err := c.invoke(ctx, m)
	if err != nil {
		pending.State = StateRolledBack
		for _, snapshot := range pending.Snapshots {
			c.store.Restore(snapshot)
		}
		c.logger.Warn().Err(err).
			Str("kind", string(m.Kind)).
			Str("id", m.ID).
			Str("op", string(m.Op)).
			Msg("mutation rolled back")
		return types.Resource{}, err
	}

	pending.State = StateCommitted
	c.store.Invalidate(m.Kind)
	c.logger.Debug().
		Str("kind", string(m.Kind)).
		Str("id", resource.ID).
		Str("op", string(m.Op)).
		Msg("mutation committed")
	return resource, nil
}

// Create submits a new resource through the optimistic mutation path. The
// signature matches the tracking package's Creator, so tracking-number
// creates with conflict retry run through the coordinator.
func (c *Coordinator) Create(ctx context.Context, kind types.Kind, payload types.Payload) (types.Resource, error) {
	return c.Mutate(ctx, Mutation{Kind: kind, Op: OpCreate, Payload: payload})
}

// Advance applies the admin "advance" quick action: cycle the entity's
// status to the next one in its kind's table.
func (c *Coordinator) Advance(ctx context.Context, kind types.Kind, id string) (types.Resource, error) {
	current, err := c.currentStatus(ctx, kind, id)
	if err != nil {
		return types.Resource{}, err
	}

	next, err := c.machine.Next(kind, current)
	if err != nil {
		return types.Resource{}, fmt.Errorf("advancing %s %q: %w", kind, id, err)
	}

	mutation := Mutation{Kind: kind, ID: id, Op: OpTransition, Status: next}
	if kind == types.KindSubscriber {
		mutation.Action = subscriberAction(next)
	}
	return c.Mutate(ctx, mutation)
}

func (c *Coordinator) currentStatus(ctx context.Context, kind types.Kind, id string) (types.Status, error) {
	if entry, ok := c.store.Get(cache.ItemKey(kind, id)); ok && entry.Value.One != nil {
		return entry.Value.One.Status, nil
	}
	for _, key := range c.store.Keys(kind) {
		entry, ok := c.store.Get(key)
		if !ok {
			continue
		}
		for _, resource := range entry.Value.Many {
			if resource.ID == id {
				return resource.Status, nil
			}
		}
	}

	resource, err := c.client.Get(ctx, kind, id)
	if err != nil {
		return "", fmt.Errorf("loading current status of %s %q: %w", kind, id, err)
	}
	return resource.Status, nil
}

func (c *Coordinator) invoke(ctx context.Context, m Mutation) (types.Resource, error) {
	switch m.Op {
	case OpCreate:
		return c.client.Create(ctx, m.Kind, m.Payload)
	case OpUpdate:
		return c.client.Update(ctx, m.Kind, m.ID, m.Payload)
	case OpDelete:
		return types.Resource{}, c.client.Remove(ctx, m.Kind, m.ID)
	case OpTransition:
		action := m.Action
		body := m.Payload
		if action == "" {
			action = "status"
		}
		if body == nil {
			body = types.Payload{"status": string(m.Status)}
		}
		return c.client.Action(ctx, m.Kind, m.ID, action, body)
	default:
		return types.Resource{}, fmt.Errorf("unsupported mutation op %q", m.Op)
	}
}

// affectedKeys returns every cache key logically affected by the mutation:
// all cached keys of the kind plus the entity's own item key.
func (c *Coordinator) affectedKeys(m Mutation) []cache.Key {
	keys := c.store.Keys(m.Kind)
	if m.ID != "" {
		item := cache.ItemKey(m.Kind, m.ID)
		found := false
		for _, key := range keys {
			if key == item {
				found = true
				break
			}
		}
		if !found {
			keys = append(keys, item)
		}
	}
	return keys
}

func (c *Coordinator) applyOptimistic(m Mutation, affected []cache.Key) {
	switch m.Op {
	case OpCreate:
		optimistic := optimisticResource(m, c.machine)
		for _, key := range affected {
			entry, ok := c.store.Get(key)
			if !ok || !key.IsList() {
				continue
			}
			value := entry.Value
			value.Many = append(value.Many, optimistic)
			c.store.Set(key, value)
		}
	case OpDelete:
		for _, key := range affected {
			if key.ID == m.ID && !key.IsList() {
				c.store.Drop(key)
				continue
			}
			entry, ok := c.store.Get(key)
			if !ok {
				continue
			}
			value := entry.Value
			value.Many = removeByID(value.Many, m.ID)
			c.store.Set(key, value)
		}
	case OpUpdate, OpTransition:
		for _, key := range affected {
			entry, ok := c.store.Get(key)
			if !ok {
				continue
			}
			value := entry.Value
			if value.One != nil && value.One.ID == m.ID {
				patched := patchResource(*value.One, m)
				value.One = &patched
			}
			for i, resource := range value.Many {
				if resource.ID == m.ID {
					value.Many[i] = patchResource(resource, m)
				}
			}
			c.store.Set(key, value)
		}
	}
}

// optimisticResource builds the instant, possibly-wrong result shown to
// the view until the create settles. The placeholder ID is replaced by the
// server-assigned one on the post-commit refetch.
func optimisticResource(m Mutation, machine *status.Machine) types.Resource {
	payload := m.Payload.Clone()
	resourceStatus := types.StatusFromPayload(m.Kind, payload)
	if resourceStatus == "" {
		if first, err := machine.First(m.Kind); err == nil {
			resourceStatus = first
		}
	}
	now := time.Now().UTC()
	return types.Resource{
		ID:      "optimistic-" + uuid.NewString(),
		Kind:    m.Kind,
		Status:  resourceStatus,
		Payload: payload,
		Audit:   types.Audit{CreatedAt: now, UpdatedAt: now},
	}
}

func patchResource(resource types.Resource, m Mutation) types.Resource {
	patched := resource.Clone()
	if patched.Payload == nil {
		patched.Payload = types.Payload{}
	}

	switch m.Op {
	case OpUpdate:
		for field, value := range m.Payload {
			patched.Payload[field] = value
		}
		patched.Status = types.StatusFromPayload(m.Kind, patched.Payload)
		if patched.Status == "" {
			patched.Status = resource.Status
		}
	case OpTransition:
		patched.Status = m.Status
		if m.Kind == types.KindSubscriber {
			patched.Payload["isSubscribed"] = m.Status == types.SubscriberSubscribed
		} else {
			patched.Payload["status"] = string(m.Status)
		}
	}
	patched.Audit.UpdatedAt = time.Now().UTC()
	return patched
}

func removeByID(resources []types.Resource, id string) []types.Resource {
	out := make([]types.Resource, 0, len(resources))
	for _, resource := range resources {
		if resource.ID != id {
			out = append(out, resource)
		}
	}
	return out
}

func subscriberAction(next types.Status) string {
	if next == types.SubscriberSubscribed {
		return "subscribe"
	}
	return "unsubscribe"
}

func validate(m Mutation) error {
	if _, err := types.ParseKind(string(m.Kind)); err != nil {
		return err
	}
	switch m.Op {
	case OpCreate:
		if m.ID != "" {
			return fmt.Errorf("create mutation must not carry an id")
		}
	case OpUpdate, OpDelete, OpTransition:
		if strings.TrimSpace(m.ID) == "" {
			return fmt.Errorf("%s mutation requires an id", m.Op)
		}
	default:
		return fmt.Errorf("unsupported mutation op %q", m.Op)
	}
	return nil
}

func (c *Coordinator) track(key string, pending *PendingMutation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[key] = pending
}

func (c *Coordinator) untrack(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, key)
}
