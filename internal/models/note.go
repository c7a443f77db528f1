// Package models defines the domain types for knowleague.
package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Note is the single record type kept in the notes collection.
// ID is zero until the store assigns one on insert.
type Note struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id,omitzero"`
	Title   string             `bson:"title" json:"title"`
	Content string             `bson:"content" json:"content"`
	Tags    []string           `bson:"tags" json:"tags"`
}

// Persisted reports whether the note carries a store-assigned id.
func (n Note) Persisted() bool {
	return !n.ID.IsZero()
}

// NoteEvent is emitted after a successful mutation.
type NoteEvent struct {
	Kind string `json:"kind"` // "created", "updated" or "deleted"
	ID   string `json:"id"`
}

// Event kinds.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)
