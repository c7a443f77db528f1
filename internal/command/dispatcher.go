// Package command maps the named commands of the front-end call contract to
// note service calls. Every transport (HTTP invoke, WebSocket, MCP) routes
// through a Dispatcher, so they all share argument decoding and error text.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/starford/knowleague/internal/apperr"
	"github.com/starford/knowleague/internal/models"
	"github.com/starford/knowleague/internal/noteservice"
)

// Command names.
const (
	CheckConnection = "check_connection"
	CreateNote      = "create_note"
	GetNotes        = "get_notes"
	DeleteNote      = "delete_note"
	UpdateNote      = "update_note"
	SearchNotes     = "search_notes"
)

// Acknowledgements returned by mutating commands.
const (
	AckDeleted = "Deleted"
	AckUpdated = "Updated successfully"
)

// ErrUnknownCommand is returned for a name with no handler.
var ErrUnknownCommand = errors.New("unknown command")

// Service is the subset of *noteservice.Service the dispatcher calls.
type Service interface {
	CheckConnection(ctx context.Context) (string, error)
	CreateNote(ctx context.Context, in noteservice.NoteInput) (string, error)
	ListNotes(ctx context.Context) ([]models.Note, error)
	DeleteNote(ctx context.Context, id string) error
	UpdateNote(ctx context.Context, id string, in noteservice.NoteInput) error
	SearchNotes(ctx context.Context, query string) ([]models.Note, error)
}

// Response is the outcome of one command. Exactly one of Data and Error is
// meaningful, selected by OK.
type Response struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`

	// Err is the underlying error, for transports that map it to a status.
	Err error `json:"-"`
}

type handler func(ctx context.Context, args json.RawMessage) (any, error)

// Dispatcher routes command names to handlers.
type Dispatcher struct {
	svc      Service
	handlers map[string]handler
}

// New creates a Dispatcher with all commands registered.
func New(svc Service) *Dispatcher {
	d := &Dispatcher{svc: svc}
	d.handlers = map[string]handler{
		CheckConnection: d.checkConnection,
		CreateNote:      d.createNote,
		GetNotes:        d.getNotes,
		DeleteNote:      d.deleteNote,
		UpdateNote:      d.updateNote,
		SearchNotes:     d.searchNotes,
	}
	return d
}

// Names returns the registered command names, sorted.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.handlers))
	for n := range d.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the named command with JSON-encoded args. args may be empty
// for commands that take none.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args json.RawMessage) Response {
	h, ok := d.handlers[name]
	if !ok {
		return failure(fmt.Errorf("%w: %s", ErrUnknownCommand, name))
	}
	data, err := h(ctx, args)
	if err != nil {
		return failure(err)
	}
	return Response{OK: true, Data: data}
}

func failure(err error) Response {
	return Response{Error: err.Error(), Err: err}
}

type createArgs struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

type updateArgs struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

type idArgs struct {
	ID string `json:"id"`
}

type searchArgs struct {
	Query string `json:"query"`
}

// decode unmarshals args into v, rejecting unknown fields. Empty args leave
// v at its zero value.
func decode(args json.RawMessage, v any) error {
	if len(bytes.TrimSpace(args)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

func (d *Dispatcher) checkConnection(ctx context.Context, _ json.RawMessage) (any, error) {
	return d.svc.CheckConnection(ctx)
}

func (d *Dispatcher) createNote(ctx context.Context, args json.RawMessage) (any, error) {
	var a createArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	return d.svc.CreateNote(ctx, noteservice.NoteInput{Title: a.Title, Content: a.Content, Tags: a.Tags})
}

func (d *Dispatcher) getNotes(ctx context.Context, _ json.RawMessage) (any, error) {
	return d.svc.ListNotes(ctx)
}

func (d *Dispatcher) deleteNote(ctx context.Context, args json.RawMessage) (any, error) {
	var a idArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	if err := d.svc.DeleteNote(ctx, a.ID); err != nil {
		return nil, err
	}
	return AckDeleted, nil
}

func (d *Dispatcher) updateNote(ctx context.Context, args json.RawMessage) (any, error) {
	var a updateArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	in := noteservice.NoteInput{Title: a.Title, Content: a.Content, Tags: a.Tags}
	if err := d.svc.UpdateNote(ctx, a.ID, in); err != nil {
		return nil, err
	}
	return AckUpdated, nil
}

func (d *Dispatcher) searchNotes(ctx context.Context, args json.RawMessage) (any, error) {
	var a searchArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	return d.svc.SearchNotes(ctx, a.Query)
}
