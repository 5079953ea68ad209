package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memclock "github.com/campus-events/eventhub-api/internal/adapters/memory/clock"
	memdocstore "github.com/campus-events/eventhub-api/internal/adapters/memory/docstore"
	"github.com/campus-events/eventhub-api/internal/app/apperr"
	"github.com/campus-events/eventhub-api/internal/domain"
	"github.com/campus-events/eventhub-api/internal/ports/out/docstore"
)

var t0 = time.Date(2024, 10, 5, 8, 30, 0, 0, time.UTC)

func newRegistry(store docstore.Store) *Registry {
	return NewRegistry(store, memclock.NewManualClock(t0), nil)
}

func hackathon() CreateInput {
	return CreateInput{
		Title:           "Hackathon",
		Description:     "24h build night",
		Date:            "2024-11-02",
		Time:            "18:00",
		Location:        "Main Hall",
		Club:            "Coding Club",
		Category:        "tech",
		Price:           0,
		MaxParticipants: 50,
	}
}

type failingUpdateStore struct {
	docstore.Store
	err error
}

func (s failingUpdateStore) Update(context.Context, string, string, docstore.Fields) error {
	return s.err
}

func (s failingUpdateStore) Delete(context.Context, string, string) error {
	return s.err
}

func TestRegistry_CreateRegisterUnregisterDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memdocstore.NewStore()
	r := newRegistry(store)

	e, err := r.Create(ctx, hackathon())
	require.NoError(t, err)
	require.NotEmpty(t, e.ID)
	assert.Empty(t, e.RegisteredUsers)
	assert.NotNil(t, e.RegisteredUsers)
	assert.Equal(t, t0, e.CreatedAt)

	doc, err := store.Get(ctx, Collection, string(e.ID))
	require.NoError(t, err)
	assert.Equal(t, "Hackathon", doc.Fields.String("title"))
	assert.Equal(t, "2024-10-05T08:30:00.000Z", doc.Fields.String("createdAt"))
	assert.Equal(t, 50, doc.Fields.Int("maxParticipants"))

	got, err := r.Register(ctx, e.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{"u1"}, got.RegisteredUsers)
	got, err = r.Register(ctx, e.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{"u1", "u2"}, got.RegisteredUsers)

	doc, err = store.Get(ctx, Collection, string(e.ID))
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, doc.Fields.Strings("registeredUsers"))

	got, err = r.Unregister(ctx, e.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{"u2"}, got.RegisteredUsers)

	require.NoError(t, r.Delete(ctx, e.ID))
	assert.Empty(t, r.List(ctx))
	_, err = store.Get(ctx, Collection, string(e.ID))
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestRegistry_RegisterErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRegistry(memdocstore.NewStore())
	e, err := r.Create(ctx, hackathon())
	require.NoError(t, err)

	_, err = r.Register(ctx, e.ID, "")
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)
	_, err = r.Register(ctx, "nope", "u1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = r.Register(ctx, e.ID, "u1")
	require.NoError(t, err)
	_, err = r.Register(ctx, e.ID, "u1")
	assert.ErrorIs(t, err, apperr.ErrAlreadyRegistered)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "You are already registered for this event", ae.Message)

	cur, err := r.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{"u1"}, cur.RegisteredUsers, "registration is unique")
}

func TestRegistry_UnregisterErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRegistry(memdocstore.NewStore())
	e, err := r.Create(ctx, hackathon())
	require.NoError(t, err)

	_, err = r.Unregister(ctx, e.ID, "")
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)
	_, err = r.Unregister(ctx, "nope", "u1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = r.Unregister(ctx, e.ID, "u1")
	assert.ErrorIs(t, err, apperr.ErrNotRegistered)
}

func TestRegistry_DeleteUnknown(t *testing.T) {
	t.Parallel()
	r := newRegistry(memdocstore.NewStore())
	assert.ErrorIs(t, r.Delete(context.Background(), "nope"), apperr.ErrNotFound)
}

func TestRegistry_DeleteTreatsRemotelyMissingAsDeleted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memdocstore.NewStore()
	a := newRegistry(store)
	b := newRegistry(store)

	e, err := a.Create(ctx, hackathon())
	require.NoError(t, err)
	require.NoError(t, b.Refresh(ctx))

	require.NoError(t, a.Delete(ctx, e.ID))
	require.NoError(t, b.Delete(ctx, e.ID))
	assert.Empty(t, b.List(ctx))
}

func TestRegistry_StoreFailuresLeaveSnapshotUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := memdocstore.NewStore()
	boom := errors.New("connection reset")
	seed := newRegistry(mem)
	e, err := seed.Create(ctx, hackathon())
	require.NoError(t, err)

	r := newRegistry(failingUpdateStore{Store: mem, err: boom})
	require.NoError(t, r.Refresh(ctx))

	_, err = r.Register(ctx, e.ID, "u1")
	assert.ErrorIs(t, err, apperr.ErrInternal)
	assert.ErrorIs(t, err, boom)

	err = r.Delete(ctx, e.ID)
	assert.ErrorIs(t, err, apperr.ErrInternal)

	cur, err := r.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, cur.RegisteredUsers)
}

// Two registries over one store model two sessions. Each writes its own view of the
// registrant list, so the second write drops the first registration.
func TestRegistry_ConcurrentRegistrationsCanLoseAnUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memdocstore.NewStore()
	a := newRegistry(store)
	b := newRegistry(store)

	e, err := a.Create(ctx, hackathon())
	require.NoError(t, err)
	require.NoError(t, b.Refresh(ctx))

	_, err = a.Register(ctx, e.ID, "u1")
	require.NoError(t, err)
	_, err = b.Register(ctx, e.ID, "u2")
	require.NoError(t, err)

	doc, err := store.Get(ctx, Collection, string(e.ID))
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, doc.Fields.Strings("registeredUsers"))

	require.NoError(t, a.Refresh(ctx))
	cur, err := a.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, cur.IsRegistered("u1"))
}

func TestRegistry_RefreshLoadsCollection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memdocstore.NewStore()
	_, err := store.Create(ctx, Collection, docstore.Fields{
		"title":           "Film night",
		"price":           3.5,
		"maxParticipants": 20,
		"createdAt":       "2024-01-01T10:00:00.000Z",
		"registeredUsers": []string{"a", "a", "b"},
	})
	require.NoError(t, err)

	r := newRegistry(store)
	require.NoError(t, r.Refresh(ctx))
	list := r.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, "Film night", list[0].Title)
	assert.Equal(t, 3.5, list[0].Price)
	assert.Equal(t, 20, list[0].MaxParticipants)
	assert.Equal(t, []domain.UserID{"a", "b"}, list[0].RegisteredUsers)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), list[0].CreatedAt)
}

func TestRegistry_Search(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRegistry(memdocstore.NewStore())

	in := hackathon()
	_, err := r.Create(ctx, in)
	require.NoError(t, err)
	in.Title, in.Description, in.Category, in.Club = "Jazz Evening", "Live band", "music", "Music Society"
	_, err = r.Create(ctx, in)
	require.NoError(t, err)

	assert.Len(t, r.Search(ctx, domain.EventFilter{}), 2)
	got := r.Search(ctx, domain.EventFilter{Query: "BUILD"})
	require.Len(t, got, 1)
	assert.Equal(t, "Hackathon", got[0].Title)
	assert.Len(t, r.Search(ctx, domain.EventFilter{Category: "music"}), 1)
	assert.Len(t, r.Search(ctx, domain.EventFilter{Club: "Music Society", Query: "hack"}), 0)
}

func TestRegistry_ListReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRegistry(memdocstore.NewStore())
	e, err := r.Create(ctx, hackathon())
	require.NoError(t, err)
	_, err = r.Register(ctx, e.ID, "u1")
	require.NoError(t, err)

	list := r.List(ctx)
	list[0].RegisteredUsers[0] = "mallory"
	list[0].Title = "changed"

	cur, err := r.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hackathon", cur.Title)
	assert.Equal(t, []domain.UserID{"u1"}, cur.RegisteredUsers)
}

func TestRegistry_Subscribe(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRegistry(memdocstore.NewStore())

	var kinds []ChangeKind
	unsubscribe := r.Subscribe(func(c Change) { kinds = append(kinds, c.Kind) })

	e, err := r.Create(ctx, hackathon())
	require.NoError(t, err)
	_, err = r.Register(ctx, e.ID, "u1")
	require.NoError(t, err)
	_, err = r.Register(ctx, e.ID, "u1")
	require.Error(t, err)
	require.NoError(t, r.Delete(ctx, e.ID))
	require.NoError(t, r.Refresh(ctx))
	unsubscribe()
	_, err = r.Create(ctx, hackathon())
	require.NoError(t, err)

	assert.Equal(t, []ChangeKind{ChangeCreated, ChangeUpdated, ChangeDeleted, ChangeRefreshed}, kinds)
}
