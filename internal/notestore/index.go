package notestore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/starford/knowleague/internal/apperr"
)

// TextIndexName is the name EnsureTextIndex gives the index it creates.
const TextIndexName = "notes_text"

// codeIndexNotFound is the server error returned by $text without a text index.
const codeIndexNotFound = 27

// ErrTextIndexMissing is wrapped into the StoreError of a search that ran
// against a collection without a text index.
var ErrTextIndexMissing = errors.New("text index required for search")

func classifySearchErr(err error) error {
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(codeIndexNotFound) {
		return fmt.Errorf("%w: %v", ErrTextIndexMissing, err)
	}
	return err
}

// TextIndexPresent reports whether the notes collection has a text index.
// Searching requires one; it is created out of band (see EnsureTextIndex).
func (s *Store) TextIndexPresent(ctx context.Context) (bool, error) {
	c, err := s.coll()
	if err != nil {
		return false, err
	}
	specs, err := c.Indexes().ListSpecifications(ctx)
	if err != nil {
		return false, apperr.Store("list indexes", err)
	}
	for _, spec := range specs {
		if kind, ok := spec.KeysDocument.Lookup("_fts").StringValueOK(); ok && kind == "text" {
			return true, nil
		}
	}
	return false, nil
}

// EnsureTextIndex creates the text index over title, tags and content.
// Titles weigh most. It is a deployment step, not a note operation.
func (s *Store) EnsureTextIndex(ctx context.Context) (string, error) {
	c, err := s.coll()
	if err != nil {
		return "", err
	}
	model := mongo.IndexModel{
		Keys: bson.D{
			{Key: "title", Value: "text"},
			{Key: "content", Value: "text"},
			{Key: "tags", Value: "text"},
		},
		Options: options.Index().
			SetName(TextIndexName).
			SetWeights(bson.D{
				{Key: "title", Value: 3},
				{Key: "tags", Value: 2},
				{Key: "content", Value: 1},
			}),
	}
	name, err := c.Indexes().CreateOne(ctx, model)
	if err != nil {
		return "", apperr.Store("create index", err)
	}
	return name, nil
}
