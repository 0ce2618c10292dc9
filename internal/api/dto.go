package api

import "github.com/starford/redisnotes/internal/notestore"

// SaveNoteRequest is the request body for creating or updating a note.
// Timestamp defaults to the current time on create and to the existing
// timestamp on update.
type SaveNoteRequest struct {
	Timestamp *int64 `json:"timestamp,omitempty" example:"1373500800"`
	Text      string `json:"text" example:"a quick note #awesome" validate:"required"`
}

// Note is a single note in API responses.
type Note = notestore.Note

// NoteListResponse wraps note id listings.
type NoteListResponse struct {
	IDs   []int64 `json:"ids" validate:"required"`
	Total int     `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Terms []string `json:"terms"`
	Notes []Note   `json:"notes" validate:"required"`
}
