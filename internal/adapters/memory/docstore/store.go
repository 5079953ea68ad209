package docstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/campus-events/eventhub-api/internal/ports/out/docstore"
)

// Store is an in-memory implementation of docstore.Store.
// It is safe for concurrent use. Full collection reads return insertion order.
type Store struct {
	mu sync.RWMutex

	collections map[string]*collection
	newID       func() string
}

type collection struct {
	order []string
	docs  map[string]docstore.Fields
}

func NewStore() *Store {
	return &Store{
		collections: make(map[string]*collection),
		newID:       uuid.NewString,
	}
}

func (s *Store) Get(ctx context.Context, coll, id string) (docstore.Document, error) {
	_ = ctx
	if coll == "" || id == "" {
		return docstore.Document{}, docstore.ErrInvalidArgument
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[coll]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	f, ok := c.docs[id]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return docstore.Document{ID: id, Fields: f.Clone()}, nil
}

func (s *Store) Create(ctx context.Context, coll string, fields docstore.Fields) (string, error) {
	_ = ctx
	if coll == "" {
		return "", docstore.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collectionLocked(coll)
	id := s.newID()
	for {
		if _, taken := c.docs[id]; !taken {
			break
		}
		id = s.newID()
	}
	c.put(id, fields.Clone())
	return id, nil
}

func (s *Store) Set(ctx context.Context, coll, id string, fields docstore.Fields) error {
	_ = ctx
	if coll == "" || id == "" {
		return docstore.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.collectionLocked(coll).put(id, fields.Clone())
	return nil
}

func (s *Store) Update(ctx context.Context, coll, id string, fields docstore.Fields) error {
	_ = ctx
	if coll == "" || id == "" {
		return docstore.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[coll]
	if !ok {
		return docstore.ErrNotFound
	}
	existing, ok := c.docs[id]
	if !ok {
		return docstore.ErrNotFound
	}
	merged := existing.Clone()
	if merged == nil {
		merged = docstore.Fields{}
	}
	for k, v := range fields.Clone() {
		merged[k] = v
	}
	c.docs[id] = merged
	return nil
}

func (s *Store) Delete(ctx context.Context, coll, id string) error {
	_ = ctx
	if coll == "" || id == "" {
		return docstore.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[coll]
	if !ok {
		return docstore.ErrNotFound
	}
	if _, ok := c.docs[id]; !ok {
		return docstore.ErrNotFound
	}
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	_ = ctx
	if q.Collection == "" {
		return nil, docstore.ErrInvalidArgument
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]docstore.Document, 0)
	c, ok := s.collections[q.Collection]
	if !ok {
		return out, nil
	}
	for _, id := range c.order {
		f := c.docs[id]
		if q.Where != nil && !valuesEqual(f[q.Where.Field], q.Where.Value) {
			continue
		}
		out = append(out, docstore.Document{ID: id, Fields: f.Clone()})
	}
	if q.OrderBy != "" {
		sortDocuments(out, q.OrderBy, q.Descending)
	}
	return out, nil
}

func (s *Store) collectionLocked(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]docstore.Fields)}
		s.collections[name] = c
	}
	return c
}

func (c *collection) put(id string, f docstore.Fields) {
	if f == nil {
		f = docstore.Fields{}
	}
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = f
}

func sortDocuments(docs []docstore.Document, field string, desc bool) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, aok := docs[i].Fields[field].(string)
		b, bok := docs[j].Fields[field].(string)
		var cmp int
		switch {
		case !aok && !bok:
			cmp = 0
		case !aok:
			cmp = -1
		case !bok:
			cmp = 1
		default:
			cmp = strings.Compare(a, b)
		}
		if cmp == 0 {
			return docs[i].ID < docs[j].ID
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func valuesEqual(a, b any) bool {
	if af, ok := docstore.AsFloat(a); ok {
		bf, ok := docstore.AsFloat(b)
		return ok && af == bf
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case nil:
		return b == nil
	default:
		return false
	}
}
