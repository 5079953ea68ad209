package clubs

import (
	"context"
	"errors"
	"sync"
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

func newRegistry(store docstore.Store) *Registry {
	return NewRegistry(store, memclock.NewManualClock(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)), nil)
}

type failingQueryStore struct {
	docstore.Store
}

func (failingQueryStore) Query(context.Context, docstore.Query) ([]docstore.Document, error) {
	return nil, errors.New("query timeout")
}

type slowCreateStore struct {
	docstore.Store
}

func (s slowCreateStore) Create(ctx context.Context, collection string, fields docstore.Fields) (string, error) {
	time.Sleep(20 * time.Millisecond)
	return s.Store.Create(ctx, collection, fields)
}

func names(cs []domain.Club) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Name)
	}
	return out
}

func TestCreate_TrimsAndOrdersByName(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memdocstore.NewStore()
	r := newRegistry(store)

	chess, err := r.Create(ctx, "  Chess Club ", " Weekly games ")
	require.NoError(t, err)
	assert.Equal(t, "Chess Club", chess.Name)
	assert.Equal(t, "Weekly games", chess.Description)
	require.NotEmpty(t, chess.ID)

	_, err = r.Create(ctx, "Astronomy", "Stargazing")
	require.NoError(t, err)
	assert.Equal(t, []string{"Astronomy", "Chess Club"}, names(r.List(ctx)))

	doc, err := store.Get(ctx, Collection, string(chess.ID))
	require.NoError(t, err)
	assert.Equal(t, "chess club", doc.Fields.String("nameLower"))
	assert.Equal(t, "2024-02-01T00:00:00.000Z", doc.Fields.String("createdAt"))
}

func TestCreate_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memdocstore.NewStore()
	r := newRegistry(store)

	_, err := r.Create(ctx, "   ", "desc")
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
	ae, _ := apperr.As(err)
	require.NotNil(t, ae)
	assert.Contains(t, ae.Details, "name")

	_, err = r.Create(ctx, "Name", "\t")
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)

	docs, err := store.Query(ctx, docstore.Query{Collection: Collection})
	require.NoError(t, err)
	assert.Empty(t, docs, "rejected input is never written")
}

func TestCreate_DuplicateNameIgnoresCaseAndWhitespace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRegistry(memdocstore.NewStore())

	_, err := r.Create(ctx, "Chess Club", "Weekly games")
	require.NoError(t, err)
	_, err = r.Create(ctx, "  chess CLUB", "Another")
	assert.ErrorIs(t, err, apperr.ErrDuplicateName)
	ae, _ := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "A club with this name already exists", ae.Message)
	assert.Len(t, r.List(ctx), 1)
}

func TestCreate_ConcurrentSameNameCreatesOne(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRegistry(slowCreateStore{memdocstore.NewStore()})

	inputs := []string{"Tech Club", " tech club ", "TECH CLUB"}
	errs := make([]error, len(inputs))
	var wg sync.WaitGroup
	for i, name := range inputs {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			_, errs[i] = r.Create(ctx, name, "Gadgets")
		}(i, name)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrDuplicateName)
	}
	assert.Equal(t, 1, created)
	require.NoError(t, r.Refresh(ctx))
	assert.Len(t, r.List(ctx), 1)
}

func TestCreate_ReloadFailureStillReturnsClub(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := memdocstore.NewStore()
	r := newRegistry(failingQueryStore{mem})

	c, err := r.Create(ctx, "Debate", "Arguments")
	require.NoError(t, err)
	assert.Equal(t, "Debate", c.Name)

	_, err = mem.Get(ctx, Collection, string(c.ID))
	require.NoError(t, err)
	assert.ErrorIs(t, r.Refresh(ctx), apperr.ErrInternal)
}

func TestRefresh_PicksUpOtherWriters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memdocstore.NewStore()
	a := newRegistry(store)
	b := newRegistry(store)

	_, err := a.Create(ctx, "Robotics", "Build bots")
	require.NoError(t, err)
	assert.Empty(t, b.List(ctx))
	require.NoError(t, b.Refresh(ctx))
	assert.Equal(t, []string{"Robotics"}, names(b.List(ctx)))

	_, err = b.Create(ctx, "robotics", "dup")
	assert.ErrorIs(t, err, apperr.ErrDuplicateName)
}

func TestGetAndSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRegistry(memdocstore.NewStore())

	c, err := r.Create(ctx, "Photography", "Darkroom and digital")
	require.NoError(t, err)
	_, err = r.Create(ctx, "Hiking", "Weekend trails")
	require.NoError(t, err)

	got, err := r.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Photography", got.Name)
	_, err = r.Get(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Equal(t, []string{"Photography"}, names(r.Search(ctx, "DIGITAL")))
	assert.Len(t, r.Search(ctx, "  "), 2)
}

func TestSubscribe(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRegistry(memdocstore.NewStore())

	var created []string
	refreshes := 0
	unsubscribe := r.Subscribe(func(c Change) {
		if c.Club == nil {
			refreshes++
			return
		}
		created = append(created, c.Club.Name)
	})
	defer unsubscribe()

	_, err := r.Create(ctx, "Chess", "Games")
	require.NoError(t, err)
	require.NoError(t, r.Refresh(ctx))

	assert.Equal(t, []string{"Chess"}, created)
	assert.Equal(t, 1, refreshes)
}
