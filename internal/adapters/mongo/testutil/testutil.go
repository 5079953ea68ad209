package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	mongoadapter "github.com/campus-events/eventhub-api/internal/adapters/mongo"
)

// OpenDatabase connects to MONGO_URI and returns a fresh database that is dropped when the
// test finishes. The test is skipped when MONGO_URI is unset.
func OpenDatabase(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set; skipping mongo tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	name := "eventhub_test_" + uuid.NewString()[:8]
	client, db, err := mongoadapter.Connect(ctx, uri, name, mongoadapter.ClientOptions{})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}
