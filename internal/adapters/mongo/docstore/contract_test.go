package docstore

import (
	"context"
	"testing"

	"github.com/campus-events/eventhub-api/internal/adapters/contracttest"
	"github.com/campus-events/eventhub-api/internal/adapters/mongo/testutil"
	docstoreport "github.com/campus-events/eventhub-api/internal/ports/out/docstore"
)

func TestContract_MongoDocStore(t *testing.T) {
	db := testutil.OpenDatabase(t)
	store := NewStore(db)
	if err := store.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}

	contracttest.RunDocStore(t, func(t *testing.T) (docstoreport.Store, func()) {
		t.Helper()
		return store, nil
	})
}
