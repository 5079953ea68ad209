package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ClientOptions overrides driver defaults. Zero values keep the defaults.
type ClientOptions struct {
	MaxPoolSize    uint64
	ConnectTimeout time.Duration
}

// Connect dials uri, pings the primary and returns the named database.
// Callers own the client and must Disconnect it.
func Connect(ctx context.Context, uri, database string, opts ClientOptions) (*mongo.Client, *mongo.Database, error) {
	if uri == "" {
		return nil, nil, errors.New("empty MONGO_URI")
	}
	if database == "" {
		return nil, nil, errors.New("empty MONGO_DATABASE")
	}
	co := options.Client().ApplyURI(uri)
	if opts.MaxPoolSize > 0 {
		co.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.ConnectTimeout > 0 {
		co.SetConnectTimeout(opts.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, co)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, client.Database(database), nil
}
