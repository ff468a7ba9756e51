package coordinator

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/internal/cache"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/apierr"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/status"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/types"
)

type mockClient struct {
	getFn    func(ctx context.Context, kind types.Kind, id string) (types.Resource, error)
	createFn func(ctx context.Context, kind types.Kind, payload types.Payload) (types.Resource, error)
	updateFn func(ctx context.Context, kind types.Kind, id string, patch types.Payload) (types.Resource, error)
	removeFn func(ctx context.Context, kind types.Kind, id string) error
	actionFn func(ctx context.Context, kind types.Kind, id, action string, body types.Payload) (types.Resource, error)
}

func (m *mockClient) Get(ctx context.Context, kind types.Kind, id string) (types.Resource, error) {
	if m.getFn != nil {
		return m.getFn(ctx, kind, id)
	}
	return types.Resource{ID: id, Kind: kind}, nil
}

func (m *mockClient) Create(ctx context.Context, kind types.Kind, payload types.Payload) (types.Resource, error) {
	if m.createFn != nil {
		return m.createFn(ctx, kind, payload)
	}
	return types.Resource{ID: "created", Kind: kind, Payload: payload.Clone()}, nil
}

func (m *mockClient) Update(ctx context.Context, kind types.Kind, id string, patch types.Payload) (types.Resource, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, kind, id, patch)
	}
	return types.Resource{ID: id, Kind: kind, Payload: patch.Clone()}, nil
}

func (m *mockClient) Remove(ctx context.Context, kind types.Kind, id string) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, kind, id)
	}
	return nil
}

func (m *mockClient) Action(ctx context.Context, kind types.Kind, id, action string, body types.Payload) (types.Resource, error) {
	if m.actionFn != nil {
		return m.actionFn(ctx, kind, id, action, body)
	}
	return types.Resource{ID: id, Kind: kind}, nil
}

func newTestCoordinator(client Client, store *cache.Store) *Coordinator {
	return New(client, store, status.NewMachine(), zerolog.Nop())
}

func seedEvent(id string, eventStatus types.Status) types.Resource {
	return types.Resource{
		ID:     id,
		Kind:   types.KindEvent,
		Status: eventStatus,
		Payload: types.Payload{
			"title":  "Harvest Service " + id,
			"status": string(eventStatus),
		},
	}
}

func TestMutateCreateAppliesOptimisticListEntry(t *testing.T) {
	store := cache.NewStore()
	listKey := cache.ListKey(types.KindEvent, "")
	store.Set(listKey, cache.Value{Many: []types.Resource{seedEvent("e-1", types.EventUpcoming)}})

	var observed []types.Resource
	client := &mockClient{
		createFn: func(_ context.Context, kind types.Kind, payload types.Payload) (types.Resource, error) {
			// The optimistic entry must already be visible while the call is
			// still in flight.
			entry, ok := store.Get(listKey)
			require.True(t, ok)
			observed = append([]types.Resource{}, entry.Value.Many...)
			return types.Resource{ID: "e-2", Kind: kind, Status: types.EventUpcoming, Payload: payload.Clone()}, nil
		},
	}
	coord := newTestCoordinator(client, store)

	resource, err := coord.Mutate(context.Background(), Mutation{
		Kind:    types.KindEvent,
		Op:      OpCreate,
		Payload: types.Payload{"title": "New Year Vigil"},
	})
	require.NoError(t, err)
	assert.Equal(t, "e-2", resource.ID)

	require.Len(t, observed, 2)
	assert.True(t, strings.HasPrefix(observed[1].ID, "optimistic-"))
	assert.Equal(t, types.EventUpcoming, observed[1].Status, "missing status defaults to the first table entry")
	assert.Equal(t, "New Year Vigil", observed[1].Payload["title"])

	// Commit invalidates every cached key of the kind but keeps values.
	entry, ok := store.Get(listKey)
	require.True(t, ok)
	assert.Equal(t, cache.StateStale, entry.State)
	assert.Len(t, entry.Value.Many, 2)
}

func TestMutateRollbackRestoresEveryAffectedKey(t *testing.T) {
	store := cache.NewStore()
	listKey := cache.ListKey(types.KindEvent, "")
	filteredKey := cache.ListKey(types.KindEvent, "status=upcoming")
	itemKey := cache.ItemKey(types.KindEvent, "e-1")

	item := seedEvent("e-1", types.EventUpcoming)
	store.Set(listKey, cache.Value{Many: []types.Resource{item, seedEvent("e-2", types.EventCompleted)}})
	store.Set(filteredKey, cache.Value{Many: []types.Resource{item}})
	store.Set(itemKey, cache.Value{One: &item})

	before := map[cache.Key]cache.Entry{}
	for _, key := range []cache.Key{listKey, filteredKey, itemKey} {
		entry, ok := store.Get(key)
		require.True(t, ok)
		before[key] = entry
	}

	client := &mockClient{
		updateFn: func(_ context.Context, _ types.Kind, _ string, _ types.Payload) (types.Resource, error) {
			return types.Resource{}, apierr.FromResponse(http.StatusBadRequest, "title is required")
		},
	}
	coord := newTestCoordinator(client, store)

	_, err := coord.Mutate(context.Background(), Mutation{
		Kind:    types.KindEvent,
		ID:      "e-1",
		Op:      OpUpdate,
		Payload: types.Payload{"title": ""},
	})
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindValidation))

	for key, expected := range before {
		entry, ok := store.Get(key)
		require.True(t, ok, "key %v missing after rollback", key)
		assert.Equal(t, expected.Value, entry.Value, "key %v value not restored", key)
		assert.Equal(t, expected.State, entry.State, "key %v state not restored", key)
	}
}

func TestMutateCreateRollbackRemovesPlaceholder(t *testing.T) {
	store := cache.NewStore()
	listKey := cache.ListKey(types.KindShipment, "")
	store.Set(listKey, cache.Value{Many: []types.Resource{}})

	client := &mockClient{
		createFn: func(_ context.Context, _ types.Kind, _ types.Payload) (types.Resource, error) {
			return types.Resource{}, apierr.FromResponse(http.StatusConflict, "duplicate key: tracking number already exists")
		},
	}
	coord := newTestCoordinator(client, store)

	_, err := coord.Mutate(context.Background(), Mutation{
		Kind:    types.KindShipment,
		Op:      OpCreate,
		Payload: types.Payload{"trackingNumber": "CAR00000000001"},
	})
	require.Error(t, err)
	assert.True(t, apierr.IsConflict(err))

	entry, ok := store.Get(listKey)
	require.True(t, ok)
	assert.Empty(t, entry.Value.Many, "placeholder must be gone after rollback")
}

func TestMutateDeleteRemovesFromListsAndDropsItemKey(t *testing.T) {
	store := cache.NewStore()
	listKey := cache.ListKey(types.KindEvent, "")
	itemKey := cache.ItemKey(types.KindEvent, "e-1")
	item := seedEvent("e-1", types.EventUpcoming)
	store.Set(listKey, cache.Value{Many: []types.Resource{item, seedEvent("e-2", types.EventCompleted)}})
	store.Set(itemKey, cache.Value{One: &item})

	coord := newTestCoordinator(&mockClient{}, store)

	_, err := coord.Mutate(context.Background(), Mutation{Kind: types.KindEvent, ID: "e-1", Op: OpDelete})
	require.NoError(t, err)

	_, ok := store.Get(itemKey)
	assert.False(t, ok)

	entry, ok := store.Get(listKey)
	require.True(t, ok)
	require.Len(t, entry.Value.Many, 1)
	assert.Equal(t, "e-2", entry.Value.Many[0].ID)
}

func TestMutateTransitionPatchesStatusEverywhere(t *testing.T) {
	store := cache.NewStore()
	listKey := cache.ListKey(types.KindEvent, "")
	itemKey := cache.ItemKey(types.KindEvent, "e-1")
	item := seedEvent("e-1", types.EventUpcoming)
	store.Set(listKey, cache.Value{Many: []types.Resource{item}})
	store.Set(itemKey, cache.Value{One: &item})

	var gotAction string
	var gotBody types.Payload
	client := &mockClient{
		actionFn: func(_ context.Context, kind types.Kind, id, action string, body types.Payload) (types.Resource, error) {
			gotAction = action
			gotBody = body
			return types.Resource{ID: id, Kind: kind, Status: types.EventCompleted}, nil
		},
	}
	coord := newTestCoordinator(client, store)

	resource, err := coord.Mutate(context.Background(), Mutation{
		Kind:   types.KindEvent,
		ID:     "e-1",
		Op:     OpTransition,
		Status: types.EventCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, types.EventCompleted, resource.Status)
	assert.Equal(t, "status", gotAction)
	assert.Equal(t, types.Payload{"status": "completed"}, gotBody)

	entry, ok := store.Get(itemKey)
	require.True(t, ok)
	assert.Equal(t, types.EventCompleted, entry.Value.One.Status)

	entry, ok = store.Get(listKey)
	require.True(t, ok)
	assert.Equal(t, types.EventCompleted, entry.Value.Many[0].Status)
}

func TestMutateSerializesSameKindMutations(t *testing.T) {
	store := cache.NewStore()
	listKey := cache.ListKey(types.KindEvent, "")
	store.Set(listKey, cache.Value{Many: []types.Resource{seedEvent("e-1", types.EventUpcoming)}})

	firstInFlight := make(chan struct{})
	releaseFirst := make(chan struct{})
	var secondSawEntries int
	client := &mockClient{
		createFn: func(_ context.Context, kind types.Kind, payload types.Payload) (types.Resource, error) {
			if payload["title"] == "first" {
				close(firstInFlight)
				<-releaseFirst
				return types.Resource{}, apierr.FromResponse(http.StatusBadRequest, "title is required")
			}
			// By the time the second mutation reaches the network, the
			// first's rollback must have restored the list: one seed entry
			// plus the second's own placeholder.
			entry, ok := store.Get(listKey)
			require.True(t, ok)
			secondSawEntries = len(entry.Value.Many)
			return types.Resource{ID: "e-3", Kind: kind, Payload: payload.Clone()}, nil
		},
	}
	coord := newTestCoordinator(client, store)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = coord.Mutate(context.Background(), Mutation{
			Kind: types.KindEvent, Op: OpCreate, Payload: types.Payload{"title": "first"},
		})
	}()
	<-firstInFlight

	wg.Add(1)
	secondDone := make(chan error, 1)
	go func() {
		defer wg.Done()
		_, err := coord.Mutate(context.Background(), Mutation{
			Kind: types.KindEvent, Op: OpCreate, Payload: types.Payload{"title": "second"},
		})
		secondDone <- err
	}()

	// The second mutation queues behind the first.
	select {
	case err := <-secondDone:
		t.Fatalf("second mutation settled before the first: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(releaseFirst)
	require.NoError(t, <-secondDone)
	wg.Wait()

	assert.Equal(t, 2, secondSawEntries, "second mutation must start from the rolled-back state")
}

func TestAdvanceUsesCachedItemStatus(t *testing.T) {
	store := cache.NewStore()
	item := seedEvent("e-1", types.EventCompleted)
	store.Set(cache.ItemKey(types.KindEvent, "e-1"), cache.Value{One: &item})

	var gotBody types.Payload
	client := &mockClient{
		getFn: func(_ context.Context, _ types.Kind, _ string) (types.Resource, error) {
			t.Fatal("cached status must not trigger a network read")
			return types.Resource{}, nil
		},
		actionFn: func(_ context.Context, kind types.Kind, id, _ string, body types.Payload) (types.Resource, error) {
			gotBody = body
			return types.Resource{ID: id, Kind: kind, Status: types.EventCancelled}, nil
		},
	}
	coord := newTestCoordinator(client, store)

	resource, err := coord.Advance(context.Background(), types.KindEvent, "e-1")
	require.NoError(t, err)
	assert.Equal(t, types.EventCancelled, resource.Status)
	assert.Equal(t, types.Payload{"status": "cancelled"}, gotBody)
}

func TestAdvanceFallsBackToClientGet(t *testing.T) {
	store := cache.NewStore()

	client := &mockClient{
		getFn: func(_ context.Context, kind types.Kind, id string) (types.Resource, error) {
			return types.Resource{ID: id, Kind: kind, Status: types.DonationPending}, nil
		},
		actionFn: func(_ context.Context, kind types.Kind, id, _ string, body types.Payload) (types.Resource, error) {
			return types.Resource{ID: id, Kind: kind, Status: types.Status(body["status"].(string))}, nil
		},
	}
	coord := newTestCoordinator(client, store)

	resource, err := coord.Advance(context.Background(), types.KindDonation, "d-1")
	require.NoError(t, err)
	assert.Equal(t, types.DonationCompleted, resource.Status)
}

func TestAdvanceSubscriberUsesToggleActions(t *testing.T) {
	store := cache.NewStore()
	subscriber := types.Resource{
		ID:      "sub-1",
		Kind:    types.KindSubscriber,
		Status:  types.SubscriberSubscribed,
		Payload: types.Payload{"email": "ada@example.com", "isSubscribed": true},
	}
	itemKey := cache.ItemKey(types.KindSubscriber, "sub-1")
	store.Set(itemKey, cache.Value{One: &subscriber})

	var gotAction string
	client := &mockClient{
		actionFn: func(_ context.Context, kind types.Kind, id, action string, _ types.Payload) (types.Resource, error) {
			gotAction = action
			return types.Resource{ID: id, Kind: kind, Status: types.SubscriberUnsubscribed}, nil
		},
	}
	coord := newTestCoordinator(client, store)

	_, err := coord.Advance(context.Background(), types.KindSubscriber, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "unsubscribe", gotAction)
}

func TestMutateValidation(t *testing.T) {
	coord := newTestCoordinator(&mockClient{}, cache.NewStore())

	_, err := coord.Mutate(context.Background(), Mutation{Kind: types.KindEvent, ID: "e-1", Op: OpCreate})
	require.Error(t, err)

	_, err = coord.Mutate(context.Background(), Mutation{Kind: types.KindEvent, Op: OpUpdate})
	require.Error(t, err)

	_, err = coord.Mutate(context.Background(), Mutation{Kind: types.Kind("spaceship"), Op: OpCreate})
	require.Error(t, err)

	_, err = coord.Mutate(context.Background(), Mutation{Kind: types.KindEvent, ID: "e-1", Op: Op("merge")})
	require.Error(t, err)
}

func TestCreateRunsThroughOptimisticPath(t *testing.T) {
	store := cache.NewStore()
	listKey := cache.ListKey(types.KindShipment, "")
	store.Set(listKey, cache.Value{Many: []types.Resource{}})

	coord := newTestCoordinator(&mockClient{}, store)

	_, err := coord.Create(context.Background(), types.KindShipment, types.Payload{"trackingNumber": "CAR00000000001"})
	require.NoError(t, err)

	entry, ok := store.Get(listKey)
	require.True(t, ok)
	assert.Equal(t, cache.StateStale, entry.State, "commit must invalidate the kind")
}
