// Package noteservice sits between the transports and the note repository:
// it validates input and announces successful mutations.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/knowleague/internal/apperr"
	"github.com/starford/knowleague/internal/models"
	"github.com/starford/knowleague/internal/notestore"
)

// Prober reports store liveness. *mongostore.Holder satisfies it.
type Prober interface {
	Probe(ctx context.Context) (string, error)
	Connected() bool
}

// Notifier receives note changes after they are committed.
// kind is one of models.EventCreated, EventUpdated, EventDeleted.
type Notifier interface {
	PublishNoteEvent(kind, id string)
}

// Service coordinates validation, the repository and change notifications.
type Service struct {
	repo     notestore.Repository
	prober   Prober
	notifier Notifier
}

// NewService creates a new note service. notifier may be nil.
func NewService(repo notestore.Repository, prober Prober, notifier Notifier) *Service {
	return &Service{repo: repo, prober: prober, notifier: notifier}
}

// NoteInput is the user-supplied part of a note.
type NoteInput struct {
	Title   string
	Content string
	Tags    []string
}

// Validate validates the note input. Only a blank title is rejected; the
// values themselves are stored exactly as given.
func (in NoteInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.By(notBlank)),
	)
}

func notBlank(value any) error {
	if s, _ := value.(string); strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

// check reports ErrNotConnected before anything else so a disconnected store
// always says so, then validates.
func (s *Service) check(in NoteInput) error {
	if !s.prober.Connected() {
		return apperr.ErrNotConnected
	}
	if err := in.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

// Connected reports whether the store handle is held.
func (s *Service) Connected() bool {
	return s.prober.Connected()
}

// CheckConnection returns the store's database list.
func (s *Service) CheckConnection(ctx context.Context) (string, error) {
	return s.prober.Probe(ctx)
}

// CreateNote stores a new note and returns its id.
func (s *Service) CreateNote(ctx context.Context, in NoteInput) (string, error) {
	if err := s.check(in); err != nil {
		return "", err
	}
	id, err := s.repo.Create(ctx, in.Title, in.Content, in.Tags)
	if err != nil {
		return "", err
	}
	s.publish(models.EventCreated, id)
	return id, nil
}

// ListNotes returns every note in store order, never nil.
func (s *Service) ListNotes(ctx context.Context) ([]models.Note, error) {
	notes, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(notes), nil
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(models.EventDeleted, id)
	return nil
}

// UpdateNote replaces the title, content and tags of a note. A malformed id
// is reported as ErrInvalidID whatever the other fields hold.
func (s *Service) UpdateNote(ctx context.Context, id string, in NoteInput) error {
	if s.prober.Connected() {
		if _, err := notestore.ParseID(id); err != nil {
			return err
		}
	}
	if err := s.check(in); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, in.Title, in.Content, in.Tags); err != nil {
		return err
	}
	s.publish(models.EventUpdated, id)
	return nil
}

// SearchNotes runs a ranked full-text query.
func (s *Service) SearchNotes(ctx context.Context, query string) ([]models.Note, error) {
	notes, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(notes), nil
}

func (s *Service) publish(kind, id string) {
	if s.notifier != nil {
		s.notifier.PublishNoteEvent(kind, id)
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
