package notestore

import (
	"context"

	"github.com/starford/knowleague/internal/models"
)

// Repository defines the five note operations.
// Consumers should depend on this interface rather than the concrete *Store
// so they can be tested against an in-memory implementation.
//
// Every method fails with apperr.ErrNotConnected when no client is held.
// Id-taking methods fail with apperr.ErrInvalidID for malformed ids and
// apperr.ErrNotFound when nothing matched. Store faults surface as
// *apperr.StoreError.
type Repository interface {
	Create(ctx context.Context, title, content string, tags []string) (string, error)
	List(ctx context.Context) ([]models.Note, error)
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id, title, content string, tags []string) error
	Search(ctx context.Context, query string) ([]models.Note, error)
}
