package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/campus-events/eventhub-api/internal/domain"
	"github.com/campus-events/eventhub-api/internal/ports/out/docstore"
	idempotencyport "github.com/campus-events/eventhub-api/internal/ports/out/idempotency"
)

type CleanupFunc = func()

type DocStoreFactory func(t *testing.T) (docstore.Store, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Subject:  domain.UserID("sub-1"),
		Method:   "POST",
		Route:    "/events",
		BodyHash: "",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get unknown: ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// A different body hash is a different fingerprint.
	other := fp
	other.BodyHash = "other"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("Get other fingerprint: ok=%v err=%v", ok, err)
	}
}

// RunDocStore exercises the document store semantics every backend must share.
// Collections are suffixed with a random id so runs against shared databases do not collide.
func RunDocStore(t *testing.T, newStore DocStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	suffix := "_" + uuid.NewString()[:8]

	t.Run("create and get round trip", func(t *testing.T) {
		coll := "events" + suffix
		id, err := store.Create(ctx, coll, docstore.Fields{
			"title":           "Hackathon",
			"price":           12.5,
			"maxParticipants": 40,
			"published":       true,
			"registeredUsers": []string{"u1", "u2"},
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if id == "" {
			t.Fatalf("Create returned empty id")
		}
		doc, err := store.Get(ctx, coll, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if doc.ID != id {
			t.Fatalf("id=%q want=%q", doc.ID, id)
		}
		if doc.Fields.String("title") != "Hackathon" {
			t.Fatalf("title=%q", doc.Fields.String("title"))
		}
		if doc.Fields.Float("price") != 12.5 || doc.Fields.Int("maxParticipants") != 40 {
			t.Fatalf("numbers: price=%v max=%v", doc.Fields.Float("price"), doc.Fields.Int("maxParticipants"))
		}
		if !doc.Fields.Bool("published") {
			t.Fatalf("published=false")
		}
		users := doc.Fields.Strings("registeredUsers")
		if len(users) != 2 || users[0] != "u1" || users[1] != "u2" {
			t.Fatalf("registeredUsers=%v", users)
		}
		if doc.Fields.Has("_id") || doc.Fields.Has("id") {
			t.Fatalf("id leaked into fields: %v", doc.Fields)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := store.Get(ctx, "events"+suffix, uuid.NewString())
		if !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("err=%v want=%v", err, docstore.ErrNotFound)
		}
	})

	t.Run("update merges fields", func(t *testing.T) {
		coll := "events" + suffix
		id, err := store.Create(ctx, coll, docstore.Fields{"title": "A", "registeredUsers": []string{}})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := store.Update(ctx, coll, id, docstore.Fields{"registeredUsers": []string{"u9"}}); err != nil {
			t.Fatalf("Update: %v", err)
		}
		doc, err := store.Get(ctx, coll, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if doc.Fields.String("title") != "A" {
			t.Fatalf("title lost on merge: %v", doc.Fields)
		}
		if users := doc.Fields.Strings("registeredUsers"); len(users) != 1 || users[0] != "u9" {
			t.Fatalf("registeredUsers=%v", users)
		}

		err = store.Update(ctx, coll, uuid.NewString(), docstore.Fields{"title": "x"})
		if !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("Update missing err=%v want=%v", err, docstore.ErrNotFound)
		}
	})

	t.Run("set replaces document", func(t *testing.T) {
		coll := "users" + suffix
		id := uuid.NewString()
		if err := store.Set(ctx, coll, id, docstore.Fields{"name": "Ann", "bio": "hi"}); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if err := store.Set(ctx, coll, id, docstore.Fields{"name": "Ann B"}); err != nil {
			t.Fatalf("Set replace: %v", err)
		}
		doc, err := store.Get(ctx, coll, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if doc.Fields.String("name") != "Ann B" || doc.Fields.Has("bio") {
			t.Fatalf("fields=%v", doc.Fields)
		}
	})

	t.Run("delete", func(t *testing.T) {
		coll := "events" + suffix
		id, err := store.Create(ctx, coll, docstore.Fields{"title": "gone"})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := store.Delete(ctx, coll, id); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := store.Get(ctx, coll, id); !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("Get after delete err=%v", err)
		}
		if err := store.Delete(ctx, coll, id); !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("Delete twice err=%v want=%v", err, docstore.ErrNotFound)
		}
	})

	t.Run("query ordering and filter", func(t *testing.T) {
		coll := "clubs" + suffix
		for _, name := range []string{"Chess", "Astronomy", "Debate"} {
			if _, err := store.Create(ctx, coll, docstore.Fields{"name": name, "kind": kindOf(name)}); err != nil {
				t.Fatalf("Create %s: %v", name, err)
			}
		}

		asc, err := store.Query(ctx, docstore.Query{Collection: coll, OrderBy: "name"})
		if err != nil {
			t.Fatalf("Query asc: %v", err)
		}
		if got := names(asc); len(got) != 3 || got[0] != "Astronomy" || got[1] != "Chess" || got[2] != "Debate" {
			t.Fatalf("asc=%v", got)
		}

		desc, err := store.Query(ctx, docstore.Query{Collection: coll, OrderBy: "name", Descending: true})
		if err != nil {
			t.Fatalf("Query desc: %v", err)
		}
		if got := names(desc); len(got) != 3 || got[0] != "Debate" || got[2] != "Astronomy" {
			t.Fatalf("desc=%v", got)
		}

		games, err := store.Query(ctx, docstore.Query{
			Collection: coll,
			Where:      &docstore.Filter{Field: "kind", Value: "game"},
			OrderBy:    "name",
		})
		if err != nil {
			t.Fatalf("Query where: %v", err)
		}
		if got := names(games); len(got) != 2 || got[0] != "Chess" || got[1] != "Debate" {
			t.Fatalf("where=%v", got)
		}

		all, err := store.Query(ctx, docstore.Query{Collection: coll})
		if err != nil {
			t.Fatalf("Query all: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("all len=%d want=3", len(all))
		}
	})

	t.Run("query empty collection", func(t *testing.T) {
		docs, err := store.Query(ctx, docstore.Query{Collection: "empty" + suffix, OrderBy: "name"})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(docs) != 0 {
			t.Fatalf("len=%d want=0", len(docs))
		}
	})

	t.Run("invalid references", func(t *testing.T) {
		if _, err := store.Get(ctx, "", "x"); !errors.Is(err, docstore.ErrInvalidArgument) {
			t.Fatalf("Get empty collection err=%v", err)
		}
		if err := store.Set(ctx, "users"+suffix, "", docstore.Fields{}); !errors.Is(err, docstore.ErrInvalidArgument) {
			t.Fatalf("Set empty id err=%v", err)
		}
	})
}

func kindOf(name string) string {
	if name == "Astronomy" {
		return "science"
	}
	return "game"
}

func names(docs []docstore.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Fields.String("name"))
	}
	return out
}
