package api

import "github.com/starford/knowleague/internal/models"

// NoteRequest is the request body for creating or replacing a note.
type NoteRequest struct {
	Title   string   `json:"title" example:"Alpha" validate:"required"`
	Content string   `json:"content" example:"first note"`
	Tags    []string `json:"tags" example:"go,mongo"`
}

// CreatedResponse is returned after a note is created.
type CreatedResponse struct {
	ID string `json:"id" example:"65f0c0ffee0000000000beef" validate:"required"`
}

// MessageResponse carries an acknowledgement or probe text.
type MessageResponse struct {
	Message string `json:"message" example:"Updated successfully" validate:"required"`
}

// Note is the note response type (aliased from the domain layer).
type Note = models.Note

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status string `json:"status" example:"ok" validate:"required"`
}
