package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campus-events/eventhub-api/internal/ports/out/docstore"
)

// Store is a MongoDB implementation of docstore.Store. Each docstore collection maps to a
// Mongo collection and document ids are stored as string _id values.
type Store struct {
	db *mongo.Database
}

func NewStore(db *mongo.Database) *Store {
	return &Store{db: db}
}

// EnsureIndexes creates the secondary indexes the application queries rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		"clubs": {
			{Keys: bson.D{{Key: "name", Value: 1}}},
			{Keys: bson.D{{Key: "nameLower", Value: 1}}},
		},
		"users": {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		"accounts": {
			{Keys: bson.D{{Key: "emailLower", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, models := range specs {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, coll, id string) (docstore.Document, error) {
	if coll == "" || id == "" {
		return docstore.Document{}, docstore.ErrInvalidArgument
	}
	var raw bson.M
	err := s.db.Collection(coll).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, err
	}
	return toDocument(raw), nil
}

func (s *Store) Create(ctx context.Context, coll string, fields docstore.Fields) (string, error) {
	if coll == "" {
		return "", docstore.ErrInvalidArgument
	}
	id := uuid.NewString()
	if _, err := s.db.Collection(coll).InsertOne(ctx, toBSON(id, fields)); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, coll, id string, fields docstore.Fields) error {
	if coll == "" || id == "" {
		return docstore.ErrInvalidArgument
	}
	_, err := s.db.Collection(coll).ReplaceOne(ctx,
		bson.M{"_id": id},
		toBSON(id, fields),
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *Store) Update(ctx context.Context, coll, id string, fields docstore.Fields) error {
	if coll == "" || id == "" {
		return docstore.ErrInvalidArgument
	}
	if len(fields) == 0 {
		_, err := s.Get(ctx, coll, id)
		return err
	}
	set := bson.M{}
	for k, v := range fields {
		if k == "_id" {
			continue
		}
		set[k] = v
	}
	res, err := s.db.Collection(coll).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, coll, id string) error {
	if coll == "" || id == "" {
		return docstore.ErrInvalidArgument
	}
	res, err := s.db.Collection(coll).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if q.Collection == "" {
		return nil, docstore.ErrInvalidArgument
	}
	filter := bson.M{}
	if q.Where != nil {
		filter[q.Where.Field] = q.Where.Value
	}
	fo := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Descending {
			dir = -1
		}
		fo.SetSort(bson.D{{Key: q.OrderBy, Value: dir}, {Key: "_id", Value: dir}})
	}

	cur, err := s.db.Collection(q.Collection).Find(ctx, filter, fo)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]docstore.Document, 0)
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		out = append(out, toDocument(raw))
	}
	return out, cur.Err()
}

func toBSON(id string, fields docstore.Fields) bson.M {
	m := bson.M{"_id": id}
	for k, v := range fields {
		if k == "_id" {
			continue
		}
		m[k] = v
	}
	return m
}

func toDocument(raw bson.M) docstore.Document {
	id, _ := raw["_id"].(string)
	fields := make(docstore.Fields, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		fields[k] = normalize(v)
	}
	return docstore.Document{ID: id, Fields: fields}
}

// normalize maps driver-specific decode types onto plain Go values.
func normalize(v any) any {
	switch x := v.(type) {
	case int32:
		return int64(x)
	case primitive.A:
		out := make([]any, len(x))
		for i := range x {
			out[i] = normalize(x[i])
		}
		return out
	case primitive.M:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = normalize(vv)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case primitive.DateTime:
		return x.Time().UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}
