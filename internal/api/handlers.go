package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/redisnotes/internal/connector"
)

// maxBodyBytes caps note request bodies.
const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	conn *connector.Connector
	now  func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(conn *connector.Connector) *Handler {
	return &Handler{conn: conn, now: time.Now}
}

// noteID parses the {id} URL parameter.
func noteID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func decodeSave(w http.ResponseWriter, r *http.Request) (SaveNoteRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req SaveNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return req, false
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("text is required"))
		return req, false
	}
	return req, true
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List note ids, newest first
//	@Tags			notes
//	@Produce		json
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	ids, err := h.conn.ListNotes(r.Context())
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{IDs: ids, Total: len(ids)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note by timestamp
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		int	true	"Note timestamp"
//	@Success		200	{object}	Note
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	note, err := h.conn.GetNote(r.Context(), id)
	if err != nil {
		writeError(w, "get note", err, slog.Int64("id", id))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Save a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SaveNoteRequest	true	"Note to save"
//	@Success		201		{object}	Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSave(w, r)
	if !ok {
		return
	}
	ts := h.now().Unix()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}
	if err := h.conn.SaveNote(r.Context(), ts, req.Text); err != nil {
		writeError(w, "save note", err, slog.Int64("id", ts))
		return
	}
	writeJSON(w, http.StatusCreated, Note{ID: ts, Text: req.Text})
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Replace a note, optionally moving it to a new timestamp
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int				true	"Current note timestamp"
//	@Param			body	body		SaveNoteRequest	true	"Updated note"
//	@Success		200		{object}	Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	oldID, err := noteID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	req, ok := decodeSave(w, r)
	if !ok {
		return
	}
	if _, err := h.conn.GetNote(r.Context(), oldID); err != nil {
		writeError(w, "update note", err, slog.Int64("id", oldID))
		return
	}
	newID := oldID
	if req.Timestamp != nil {
		newID = *req.Timestamp
	}
	if err := h.conn.UpdateNote(r.Context(), oldID, newID, req.Text); err != nil {
		writeError(w, "update note", err, slog.Int64("id", oldID))
		return
	}
	writeJSON(w, http.StatusOK, Note{ID: newID, Text: req.Text})
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	int	true	"Note timestamp"
//	@Success		204	"Note deleted"
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	if err := h.conn.DeleteNote(r.Context(), id); err != nil {
		writeError(w, "delete note", err, slog.Int64("id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search. Every q parameter is a search term; notes
// must match all of them.
//
//	@Summary		Word-index search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q	query		[]string	true	"Search terms"
//	@Success		200	{object}	SearchResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	terms := r.URL.Query()["q"]
	if len(terms) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	notes, err := h.conn.SearchNotes(r.Context(), terms)
	if err != nil {
		writeError(w, "search", err, slog.Any("terms", terms))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Terms: terms, Notes: notes})
}
