package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"notedraft/internal/logger"
	"notedraft/internal/persistence"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// HistoryListResponse is the generation history index, newest first.
type HistoryListResponse struct {
	Articles []persistence.ArticleSummary `json:"articles"`
	Total    int                          `json:"total"`
}

// handleListHistory handles GET /api/history.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultHistoryLimit)
	if limit < 1 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	summaries, err := s.deps.Articles.List(r.Context(), persistence.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		logger.Error("Failed to list history", err)
		s.respondError(w, err)
		return
	}
	if summaries == nil {
		summaries = []persistence.ArticleSummary{}
	}

	s.respondJSON(w, http.StatusOK, HistoryListResponse{Articles: summaries, Total: len(summaries)})
}

// handleGetHistory handles GET /api/history/{id}.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	article, err := s.deps.Articles.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, article)
}

// handleDeleteHistory handles DELETE /api/history/{id}.
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Articles.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// queryInt reads an integer query parameter, falling back on absence or
// a malformed value.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
