package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/knowleague/internal/apperr"
	"github.com/starford/knowleague/internal/command"
)

const maxBodyBytes = 10 << 20

// Invoker runs named commands. *command.Dispatcher satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, name string, args json.RawMessage) command.Response
}

// Handler holds API route handlers. Every route goes through the command
// dispatcher so REST, WebSocket and MCP callers see the same results.
type Handler struct {
	cmd Invoker
}

// NewHandler creates a new Handler.
func NewHandler(cmd Invoker) *Handler {
	return &Handler{cmd: cmd}
}

func (h *Handler) invoke(r *http.Request, name string, args any) command.Response {
	var raw json.RawMessage
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return command.Response{Error: err.Error(), Err: err}
		}
		raw = b
	}
	return h.cmd.Invoke(r.Context(), name, raw)
}

func decodeNote(w http.ResponseWriter, r *http.Request) (NoteRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req NoteRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return NoteRequest{}, fmt.Errorf("%w: invalid JSON body: %v", apperr.ErrInvalidInput, err)
	}
	return req, nil
}

// CheckConnection handles GET /api/connection.
//
//	@Summary		Probe the document store
//	@Tags			connection
//	@Produce		json
//	@Success		200	{object}	MessageResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/connection [get]
func (h *Handler) CheckConnection(w http.ResponseWriter, r *http.Request) {
	resp := h.invoke(r, command.CheckConnection, nil)
	if !resp.OK {
		writeError(w, r, resp.Err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprint(resp.Data)})
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List every note in store order
//	@Tags			notes
//	@Produce		json
//	@Success		200	{array}		Note
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	resp := h.invoke(r, command.GetNotes, nil)
	if !resp.OK {
		writeError(w, r, resp.Err)
		return
	}
	writeJSON(w, http.StatusOK, resp.Data)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NoteRequest	true	"Note to create"
//	@Success		201		{object}	CreatedResponse
//	@Failure		400		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	req, err := decodeNote(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := h.invoke(r, command.CreateNote, req)
	if !resp.OK {
		writeError(w, r, resp.Err)
		return
	}
	id, _ := resp.Data.(string)
	w.Header().Set("Location", "/api/notes/"+id)
	writeJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Replace the title, content and tags of a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Note id"
//	@Param			body	body		NoteRequest	true	"New note fields"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	req, err := decodeNote(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	args := struct {
		ID string `json:"id"`
		NoteRequest
	}{ID: chi.URLParam(r, "id"), NoteRequest: req}

	resp := h.invoke(r, command.UpdateNote, args)
	if !resp.OK {
		writeError(w, r, resp.Err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprint(resp.Data)})
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	MessageResponse
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	resp := h.invoke(r, command.DeleteNote, map[string]string{"id": chi.URLParam(r, "id")})
	if !resp.OK {
		writeError(w, r, resp.Err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprint(resp.Data)})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes, best match first
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	true	"Search query"
//	@Success		200	{array}		Note
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	resp := h.invoke(r, command.SearchNotes, map[string]string{"query": r.URL.Query().Get("q")})
	if !resp.OK {
		writeError(w, r, resp.Err)
		return
	}
	writeJSON(w, http.StatusOK, resp.Data)
}

// Invoke handles POST /api/invoke/{command}. The body is the command's
// argument object and may be empty; the reply is the command envelope.
//
//	@Summary		Run a named command
//	@Tags			commands
//	@Accept			json
//	@Produce		json
//	@Param			command	path		string	true	"Command name"
//	@Success		200		{object}	command.Response
//	@Failure		404		{object}	command.Response
//	@Security		BearerAuth
//	@Router			/invoke/{command} [post]
func (h *Handler) Invoke(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: failed to read body", apperr.ErrInvalidInput))
		return
	}

	resp := h.cmd.Invoke(r.Context(), chi.URLParam(r, "command"), body)
	status := http.StatusOK
	if !resp.OK {
		status = statusFor(resp.Err)
	}
	writeJSON(w, status, resp)
}
