package docstore

import (
	"testing"

	"github.com/campus-events/eventhub-api/internal/adapters/contracttest"
	"github.com/campus-events/eventhub-api/internal/adapters/postgres/testutil"
	docstoreport "github.com/campus-events/eventhub-api/internal/ports/out/docstore"
)

func TestContract_PostgresDocStore(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunDocStore(t, func(t *testing.T) (docstoreport.Store, func()) {
		t.Helper()
		return NewStore(pool), nil
	})
}
