// Package notestore implements the note repository on top of MongoDB.
package notestore

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/starford/knowleague/internal/apperr"
	"github.com/starford/knowleague/internal/models"
)

// Default location of the notes collection.
const (
	DefaultDatabase   = "knowledge_base"
	DefaultCollection = "notes"
)

// ClientSource hands out a snapshot of the shared client.
// *mongostore.Holder satisfies it.
type ClientSource interface {
	Client() (*mongo.Client, error)
}

// Store is the MongoDB-backed Repository.
type Store struct {
	src        ClientSource
	database   string
	collection string
}

// Verify *Store satisfies Repository at compile time.
var _ Repository = (*Store)(nil)

// New creates a Store reading the client from src. Empty names fall back to
// DefaultDatabase and DefaultCollection.
func New(src ClientSource, database, collection string) *Store {
	if database == "" {
		database = DefaultDatabase
	}
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{src: src, database: database, collection: collection}
}

// coll acquires the client snapshot and selects the notes collection.
func (s *Store) coll() (*mongo.Collection, error) {
	client, err := s.src.Client()
	if err != nil {
		return nil, err
	}
	return client.Database(s.database).Collection(s.collection), nil
}

// Create inserts a new note and returns the store-assigned id in hex form.
func (s *Store) Create(ctx context.Context, title, content string, tags []string) (string, error) {
	c, err := s.coll()
	if err != nil {
		return "", err
	}

	note := models.Note{
		Title:   title,
		Content: content,
		Tags:    nonNilSlice(tags),
	}
	res, err := c.InsertOne(ctx, note)
	if err != nil {
		return "", apperr.Store("insert", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", apperr.Store("insert", errors.New("inserted id is not an ObjectID"))
	}
	return oid.Hex(), nil
}

// List returns every note in store order. A fault partway through the cursor
// discards what was read so far.
func (s *Store) List(ctx context.Context) ([]models.Note, error) {
	c, err := s.coll()
	if err != nil {
		return nil, err
	}

	cur, err := c.Find(ctx, bson.D{})
	if err != nil {
		return nil, apperr.Store("find", err)
	}
	notes, err := drain(ctx, cur)
	if err != nil {
		return nil, apperr.Store("find", err)
	}
	return notes, nil
}

// Delete removes the note with the given hex id.
func (s *Store) Delete(ctx context.Context, id string) error {
	c, err := s.coll()
	if err != nil {
		return err
	}
	oid, err := ParseID(id)
	if err != nil {
		return err
	}

	res, err := c.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return apperr.Store("delete", err)
	}
	if res.DeletedCount != 1 {
		return apperr.ErrNotFound
	}
	return nil
}

// Update replaces title, content and tags of the note with the given hex id.
func (s *Store) Update(ctx context.Context, id, title, content string, tags []string) error {
	c, err := s.coll()
	if err != nil {
		return err
	}
	oid, err := ParseID(id)
	if err != nil {
		return err
	}

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "title", Value: title},
		{Key: "content", Value: content},
		{Key: "tags", Value: nonNilSlice(tags)},
	}}}
	res, err := c.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, update)
	if err != nil {
		return apperr.Store("update", err)
	}
	if res.MatchedCount != 1 {
		return apperr.ErrNotFound
	}
	return nil
}

// Search runs a $text query ordered by descending relevance score. The
// collection must carry a text index; see TextIndexPresent.
func (s *Store) Search(ctx context.Context, query string) ([]models.Note, error) {
	c, err := s.coll()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return []models.Note{}, nil
	}

	filter := bson.D{{Key: "$text", Value: bson.D{{Key: "$search", Value: query}}}}
	opts := options.Find().SetSort(bson.D{
		{Key: "score", Value: bson.D{{Key: "$meta", Value: "textScore"}}},
	})
	cur, err := c.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Store("search", classifySearchErr(err))
	}
	notes, err := drain(ctx, cur)
	if err != nil {
		return nil, apperr.Store("search", classifySearchErr(err))
	}
	return notes, nil
}

// ParseID converts a hex id into an ObjectID.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.ErrInvalidID
	}
	return oid, nil
}

// drain decodes every document from cur, all or nothing.
func drain(ctx context.Context, cur *mongo.Cursor) ([]models.Note, error) {
	defer cur.Close(ctx) //nolint:errcheck // best-effort after read

	notes := []models.Note{}
	for cur.Next(ctx) {
		var n models.Note
		if err := cur.Decode(&n); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
