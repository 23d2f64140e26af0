package handle

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"paddy-doctor/api/internal/store"
)

// AuditLog is the read side of the submission journal.
type AuditLog interface {
	Get(ctx context.Context, id string) (*store.Submission, error)
	CountByState(ctx context.Context, since time.Time) (map[string]int64, error)
}

type StatsResponse struct {
	Since  time.Time        `json:"since"`
	Counts map[string]int64 `json:"counts"`
}

// Submission отдаёт метаданные одной отправки по id.
func (h *Handle) Submission(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "audit log is disabled"})
		return
	}
	id := strings.TrimSpace(mux.Vars(r)["id"])
	// id отправки всегда uuid; остальное не может быть в журнале
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{ID: id, Error: "submission not found"})
		return
	}
	s, err := h.audit.Get(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{ID: id, Error: "submission not found"})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{ID: id, Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, s)
	}
}

// Stats: ?since=24h (Go duration), по умолчанию сутки.
func (h *Handle) Stats(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "audit log is disabled"})
		return
	}
	window := 24 * time.Hour
	if v := r.URL.Query().Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad since: use a positive duration like 24h"})
			return
		}
		window = d
	}
	since := time.Now().Add(-window).UTC()
	counts, err := h.audit.CountByState(r.Context(), since)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Since: since, Counts: counts})
}
