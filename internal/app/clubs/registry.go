package clubs

import (
	"context"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/campus-events/eventhub-api/internal/app/apperr"
	"github.com/campus-events/eventhub-api/internal/app/notify"
	"github.com/campus-events/eventhub-api/internal/domain"
	clockport "github.com/campus-events/eventhub-api/internal/ports/out/clock"
	"github.com/campus-events/eventhub-api/internal/ports/out/docstore"
)

// Collection holds one document per club.
const Collection = "clubs"

// Change is published after every snapshot rebuild. Club is set when a create caused it.
type Change struct {
	Club *domain.Club
}

// Registry caches the clubs collection ordered by name.
//
// Creates are serialized within the process, so the duplicate-name check and the write
// see the same snapshot. Registries in separate processes can still both create a name.
type Registry struct {
	store docstore.Store
	clk   clockport.Clock
	log   *zap.Logger

	createMu sync.Mutex

	mu    sync.RWMutex
	clubs []domain.Club

	hub notify.Hub[Change]
}

func NewRegistry(store docstore.Store, clk clockport.Clock, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{store: store, clk: clk, log: log, clubs: []domain.Club{}}
}

// Refresh rebuilds the snapshot from the store, ordered by name.
func (r *Registry) Refresh(ctx context.Context) error {
	if err := r.reload(ctx); err != nil {
		return err
	}
	r.hub.Publish(Change{})
	return nil
}

func (r *Registry) reload(ctx context.Context) error {
	docs, err := r.store.Query(ctx, docstore.Query{Collection: Collection, OrderBy: "name"})
	if err != nil {
		return apperr.Internal("load clubs", err)
	}
	next := make([]domain.Club, 0, len(docs))
	for _, d := range docs {
		next = append(next, clubFromDocument(d))
	}
	r.mu.Lock()
	r.clubs = next
	r.mu.Unlock()
	return nil
}

func (r *Registry) List(ctx context.Context) []domain.Club {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.clubs)
}

// Search matches name or description case-insensitively. An empty query returns everything.
func (r *Registry) Search(ctx context.Context, query string) []domain.Club {
	all := r.List(ctx)
	query = strings.TrimSpace(query)
	if query == "" {
		return all
	}
	return slices.DeleteFunc(all, func(c domain.Club) bool { return !c.Matches(query) })
}

func (r *Registry) Get(ctx context.Context, id domain.ClubID) (domain.Club, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clubs {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Club{}, apperr.New(apperr.ErrNotFound, "club not found", map[string]any{"clubId": string(id)})
}

// Create validates and writes a club with trimmed fields, then rebuilds the snapshot.
// A failed rebuild is logged; the created club is still returned.
func (r *Registry) Create(ctx context.Context, name, description string) (domain.Club, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)

	details := map[string]any{}
	if name == "" {
		details["name"] = "must be non-empty"
	}
	if description == "" {
		details["description"] = "must be non-empty"
	}
	if len(details) > 0 {
		return domain.Club{}, apperr.New(apperr.ErrValidationFailed, "Club name and description are required", details)
	}

	r.createMu.Lock()
	defer r.createMu.Unlock()

	if r.nameTaken(name) {
		return domain.Club{}, apperr.New(apperr.ErrDuplicateName, "", map[string]any{"name": name})
	}

	c := domain.Club{Name: name, Description: description, CreatedAt: r.clk.Now().UTC()}
	id, err := r.store.Create(ctx, Collection, clubFields(c))
	if err != nil {
		return domain.Club{}, apperr.Internal("create club", err)
	}
	c.ID = domain.ClubID(id)
	r.log.Info("club created", zap.String("clubId", id), zap.String("name", name))

	if err := r.reload(ctx); err != nil {
		r.log.Warn("reload clubs after create", zap.Error(err))
	}
	created := c
	r.hub.Publish(Change{Club: &created})
	return c, nil
}

// Subscribe registers fn for snapshot changes and returns a func that removes it.
func (r *Registry) Subscribe(fn func(Change)) func() {
	return r.hub.Subscribe(fn)
}

func (r *Registry) nameTaken(name string) bool {
	key := domain.FoldName(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.ContainsFunc(r.clubs, func(c domain.Club) bool { return domain.FoldName(c.Name) == key })
}

func clubFields(c domain.Club) docstore.Fields {
	return docstore.Fields{
		"name":        c.Name,
		"nameLower":   domain.FoldName(c.Name),
		"description": c.Description,
		"createdAt":   domain.FormatTimestamp(c.CreatedAt),
	}
}

func clubFromDocument(d docstore.Document) domain.Club {
	c := domain.Club{
		ID:          domain.ClubID(d.ID),
		Name:        d.Fields.String("name"),
		Description: d.Fields.String("description"),
	}
	c.CreatedAt, _ = domain.ParseTimestamp(d.Fields.String("createdAt"))
	return c
}
