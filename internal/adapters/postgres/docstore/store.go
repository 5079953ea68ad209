package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/campus-events/eventhub-api/internal/adapters/postgres"
	"github.com/campus-events/eventhub-api/internal/ports/out/docstore"
)

// Store is a Postgres implementation of docstore.Store backed by a single JSONB table.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Get(ctx context.Context, coll, id string) (docstore.Document, error) {
	if s.pool == nil {
		return docstore.Document{}, errors.New("nil postgres pool")
	}
	if coll == "" || id == "" {
		return docstore.Document{}, docstore.ErrInvalidArgument
	}
	var raw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT data
		FROM documents
		WHERE collection = $1 AND id = $2
	`, coll, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, err
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return docstore.Document{}, err
	}
	return docstore.Document{ID: id, Fields: fields}, nil
}

func (s *Store) Create(ctx context.Context, coll string, fields docstore.Fields) (string, error) {
	if s.pool == nil {
		return "", errors.New("nil postgres pool")
	}
	if coll == "" {
		return "", docstore.ErrInvalidArgument
	}
	raw, err := encodeFields(fields)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
	`, coll, id, raw)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return "", fmt.Errorf("document id collision in %s: %w", coll, err)
		}
		return "", err
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, coll, id string, fields docstore.Fields) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	if coll == "" || id == "" {
		return docstore.ErrInvalidArgument
	}
	raw, err := encodeFields(fields)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, coll, id, raw)
	return err
}

func (s *Store) Update(ctx context.Context, coll, id string, fields docstore.Fields) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	if coll == "" || id == "" {
		return docstore.ErrInvalidArgument
	}
	raw, err := encodeFields(fields)
	if err != nil {
		return err
	}
	// jsonb || replaces only the given top-level keys.
	ct, err := s.pool.Exec(ctx, `
		UPDATE documents
		SET data = data || $3::jsonb,
		    updated_at = now()
		WHERE collection = $1 AND id = $2
	`, coll, id, raw)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, coll, id string) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	if coll == "" || id == "" {
		return docstore.ErrInvalidArgument
	}
	ct, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, coll, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if s.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	if q.Collection == "" {
		return nil, docstore.ErrInvalidArgument
	}

	sql := `SELECT id, data FROM documents WHERE collection = $1`
	args := []any{q.Collection}
	if q.Where != nil {
		want, err := json.Marshal(q.Where.Value)
		if err != nil {
			return nil, fmt.Errorf("encode filter value: %w", err)
		}
		args = append(args, q.Where.Field, string(want))
		sql += fmt.Sprintf(` AND data -> $%d::text = $%d::jsonb`, len(args)-1, len(args))
	}
	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		dir := "ASC NULLS FIRST"
		if q.Descending {
			dir = "DESC NULLS LAST"
		}
		sql += fmt.Sprintf(` ORDER BY (data ->> $%d::text) COLLATE "C" %s, id COLLATE "C" %s`, len(args), dir, dir)
	} else {
		sql += ` ORDER BY created_at, id`
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]docstore.Document, 0)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, docstore.Document{ID: id, Fields: fields})
	}
	return out, rows.Err()
}

func encodeFields(fields docstore.Fields) (string, error) {
	if fields == nil {
		fields = docstore.Fields{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}

func decodeFields(raw []byte) (docstore.Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	fields := make(docstore.Fields, len(m))
	for k, v := range m {
		fields[k] = normalizeNumber(v)
	}
	return fields, nil
}

// normalizeNumber turns json.Number into int64 when integral and float64 otherwise.
func normalizeNumber(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		for i := range x {
			x[i] = normalizeNumber(x[i])
		}
		return x
	case map[string]any:
		for k, vv := range x {
			x[k] = normalizeNumber(vv)
		}
		return x
	default:
		return v
	}
}
