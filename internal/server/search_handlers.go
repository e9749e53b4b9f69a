package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"notedraft/internal/core"
	"notedraft/internal/logger"
	"notedraft/internal/search"
)

// SearchRequestBody is the request for POST /api/search. UseReranker is a
// pointer so an absent field falls back to the configured default.
type SearchRequestBody struct {
	Query       string `json:"query"`
	Category    string `json:"category"`
	TopK        int    `json:"top_k"`
	UseReranker *bool  `json:"use_reranker"`
}

// SearchResponse carries scored passages, best first.
type SearchResponse struct {
	Results []core.ScoredDocument `json:"results"`
	Total   int                   `json:"total"`
}

// handleSearch handles POST /api/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body SearchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondInvalid(w, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		s.respondInvalid(w, "query is required")
		return
	}

	opts := search.Options{
		LaneK:       s.config.Retrieval.LaneK,
		RRFK:        s.config.Retrieval.RRFK,
		FinalK:      s.config.Retrieval.FinalK,
		UseReranker: s.config.RerankerAvailable(),
		RerankTopK:  s.config.Reranker.TopK,
	}
	if body.TopK > 0 {
		opts.FinalK = body.TopK
	}
	if body.UseReranker != nil {
		opts.UseReranker = *body.UseReranker
	}
	if token := strings.TrimSpace(body.Category); token != "" {
		category, ok := core.ParseCategory(strings.ToUpper(token))
		if !ok {
			s.respondInvalid(w, fmt.Sprintf("unknown category %q", body.Category))
			return
		}
		opts.Category = category
	}

	results, err := s.deps.Searcher.Search(r.Context(), body.Query, opts)
	if err != nil {
		logger.Error("Search failed", err)
		s.respondError(w, err)
		return
	}
	if results == nil {
		results = []core.ScoredDocument{}
	}

	s.respondJSON(w, http.StatusOK, SearchResponse{Results: results, Total: len(results)})
}
