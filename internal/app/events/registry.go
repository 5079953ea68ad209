package events

import (
	"context"
	"errors"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/campus-events/eventhub-api/internal/app/apperr"
	"github.com/campus-events/eventhub-api/internal/app/notify"
	"github.com/campus-events/eventhub-api/internal/domain"
	clockport "github.com/campus-events/eventhub-api/internal/ports/out/clock"
	"github.com/campus-events/eventhub-api/internal/ports/out/docstore"
)

// Registry is a process-wide cache of the events collection.
//
// Writes go to the store first and are then applied to the snapshot. The snapshot is read
// before a registration write without holding the lock across it, so two registries
// sharing a store can lose each other's registrations; the last writer's list wins.
type Registry struct {
	store docstore.Store
	clk   clockport.Clock
	log   *zap.Logger

	mu     sync.RWMutex
	events []domain.Event

	hub notify.Hub[Change]
}

func NewRegistry(store docstore.Store, clk clockport.Clock, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{store: store, clk: clk, log: log, events: []domain.Event{}}
}

// Refresh replaces the snapshot with a full read of the collection.
func (r *Registry) Refresh(ctx context.Context) error {
	docs, err := r.store.Query(ctx, docstore.Query{Collection: Collection})
	if err != nil {
		return apperr.Internal("load events", err)
	}
	next := make([]domain.Event, 0, len(docs))
	for _, d := range docs {
		next = append(next, eventFromDocument(d))
	}

	r.mu.Lock()
	r.events = next
	r.mu.Unlock()

	r.log.Debug("events refreshed", zap.Int("count", len(next)))
	r.hub.Publish(Change{Kind: ChangeRefreshed})
	return nil
}

// List returns a copy of the snapshot in snapshot order.
func (r *Registry) List(ctx context.Context) []domain.Event {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Event, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Clone())
	}
	return out
}

// Search filters the snapshot. A zero filter returns everything.
func (r *Registry) Search(ctx context.Context, f domain.EventFilter) []domain.Event {
	all := r.List(ctx)
	if f.IsZero() {
		return all
	}
	return slices.DeleteFunc(all, func(e domain.Event) bool { return !f.Matches(e) })
}

func (r *Registry) Get(ctx context.Context, id domain.EventID) (domain.Event, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexLocked(id)
	if i < 0 {
		return domain.Event{}, eventNotFound(id)
	}
	return r.events[i].Clone(), nil
}

// Create writes a new event with no registrants and appends it to the snapshot.
func (r *Registry) Create(ctx context.Context, in CreateInput) (domain.Event, error) {
	e := domain.Event{
		Title:           in.Title,
		Description:     in.Description,
		Date:            in.Date,
		Time:            in.Time,
		Location:        in.Location,
		Club:            in.Club,
		Category:        in.Category,
		Price:           in.Price,
		MaxParticipants: in.MaxParticipants,
		ImageURL:        in.ImageURL,
		CreatedAt:       r.clk.Now().UTC(),
		RegisteredUsers: []domain.UserID{},
	}
	id, err := r.store.Create(ctx, Collection, eventFields(e))
	if err != nil {
		return domain.Event{}, apperr.Internal("create event", err)
	}
	e.ID = domain.EventID(id)

	r.mu.Lock()
	r.events = append(r.events, e.Clone())
	r.mu.Unlock()

	r.log.Info("event created", zap.String("eventId", id), zap.String("title", e.Title))
	r.publish(ChangeCreated, e)
	return e, nil
}

// Register appends caller to the event's registrants.
func (r *Registry) Register(ctx context.Context, id domain.EventID, caller domain.UserID) (domain.Event, error) {
	if caller == "" {
		return domain.Event{}, apperr.ErrNotAuthenticated
	}
	cur, err := r.Get(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}
	if cur.IsRegistered(caller) {
		return domain.Event{}, apperr.New(apperr.ErrAlreadyRegistered, "", map[string]any{"eventId": string(id)})
	}

	next := cur.WithRegistrant(caller)
	if err := r.writeRegistrants(ctx, id, next.RegisteredUsers); err != nil {
		return domain.Event{}, err
	}
	return r.applyLocal(id, func(e domain.Event) domain.Event { return e.WithRegistrant(caller) }, next), nil
}

// Unregister removes caller from the event's registrants.
func (r *Registry) Unregister(ctx context.Context, id domain.EventID, caller domain.UserID) (domain.Event, error) {
	if caller == "" {
		return domain.Event{}, apperr.ErrNotAuthenticated
	}
	cur, err := r.Get(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}
	if !cur.IsRegistered(caller) {
		return domain.Event{}, apperr.New(apperr.ErrNotRegistered, "", map[string]any{"eventId": string(id)})
	}

	next := cur.WithoutRegistrant(caller)
	if err := r.writeRegistrants(ctx, id, next.RegisteredUsers); err != nil {
		return domain.Event{}, err
	}
	return r.applyLocal(id, func(e domain.Event) domain.Event { return e.WithoutRegistrant(caller) }, next), nil
}

// Delete removes the event document and then the snapshot entry. A document that is
// already gone from the store counts as deleted.
func (r *Registry) Delete(ctx context.Context, id domain.EventID) error {
	cur, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := r.store.Delete(ctx, Collection, string(id)); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return apperr.Internal("delete event", err)
	}

	r.mu.Lock()
	if i := r.indexLocked(id); i >= 0 {
		r.events = slices.Delete(r.events, i, i+1)
	}
	r.mu.Unlock()

	r.log.Info("event deleted", zap.String("eventId", string(id)))
	r.publish(ChangeDeleted, cur)
	return nil
}

// Subscribe registers fn for snapshot changes and returns a func that removes it.
func (r *Registry) Subscribe(fn func(Change)) func() {
	return r.hub.Subscribe(fn)
}

func (r *Registry) writeRegistrants(ctx context.Context, id domain.EventID, ids []domain.UserID) error {
	err := r.store.Update(ctx, Collection, string(id), docstore.Fields{"registeredUsers": registrantFields(ids)})
	if errors.Is(err, docstore.ErrNotFound) {
		return eventNotFound(id)
	}
	if err != nil {
		return apperr.Internal("update registrations", err)
	}
	return nil
}

// applyLocal applies mutate to the snapshot entry for id. When the entry disappeared while
// the write was in flight, fallback is returned unchanged.
func (r *Registry) applyLocal(id domain.EventID, mutate func(domain.Event) domain.Event, fallback domain.Event) domain.Event {
	r.mu.Lock()
	out := fallback
	if i := r.indexLocked(id); i >= 0 {
		r.events[i] = mutate(r.events[i])
		out = r.events[i].Clone()
	}
	r.mu.Unlock()

	r.publish(ChangeUpdated, out)
	return out
}

func (r *Registry) publish(kind ChangeKind, e domain.Event) {
	c := e.Clone()
	r.hub.Publish(Change{Kind: kind, Event: &c})
}

func (r *Registry) indexLocked(id domain.EventID) int {
	return slices.IndexFunc(r.events, func(e domain.Event) bool { return e.ID == id })
}

func eventNotFound(id domain.EventID) *apperr.Error {
	return apperr.New(apperr.ErrNotFound, "event not found", map[string]any{"eventId": string(id)})
}
