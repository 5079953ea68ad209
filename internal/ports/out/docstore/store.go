package docstore

import "context"

// Document is a schemaless record addressed by (collection, id).
type Document struct {
	ID     string
	Fields Fields
}

// Filter is an equality match on a single top-level field.
type Filter struct {
	Field string
	Value any
}

// Query reads a collection. Without OrderBy the whole collection comes back in backend
// order. OrderBy names a string field; ordering is byte-wise, documents missing the field
// sort first, and ties break on id.
type Query struct {
	Collection string
	Where      *Filter
	OrderBy    string
	Descending bool
}

// Store is a document database: collections of documents with no multi-document
// transactions.
//
// Field values are restricted to JSON-like data: strings, booleans, numbers, nil,
// []string and []any. Backends may hand numbers back as any numeric type; use the
// Fields accessors to read them.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	// Create stores a new document under a backend-assigned id and returns the id.
	Create(ctx context.Context, collection string, fields Fields) (string, error)
	// Set creates or fully replaces the document with the given id.
	Set(ctx context.Context, collection, id string, fields Fields) error
	// Update merges fields into an existing document. It fails with ErrNotFound when the
	// document does not exist.
	Update(ctx context.Context, collection, id string, fields Fields) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, q Query) ([]Document, error)
}
