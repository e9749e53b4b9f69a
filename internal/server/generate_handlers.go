package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"notedraft/internal/core"
	"notedraft/internal/logger"
	"notedraft/internal/pipeline"
	"notedraft/internal/sse"
)

// GenerateRequestBody is the request shared by the generate endpoints.
// Category accepts the four category tokens or "auto" for classification.
type GenerateRequestBody struct {
	Material      string `json:"material"`
	Category      string `json:"category"`
	Theme         string `json:"theme"`
	DesiredLength int    `json:"desired_length"`
}

// GenerateResponse is the rendered draft and its quality metadata.
type GenerateResponse struct {
	Markdown         string        `json:"markdown"`
	DraftID          string        `json:"draft_id"`
	Category         core.Category `json:"category"`
	Theme            string        `json:"theme"`
	ActualLength     int           `json:"actual_length"`
	TagCount         int           `json:"tag_count"`
	ConsistencyScore float64       `json:"consistency_score"`
	Confidence       float64       `json:"confidence"`
}

func draftResponse(d *core.ArticleDraft) GenerateResponse {
	return GenerateResponse{
		Markdown:         d.Markdown,
		DraftID:          d.ID,
		Category:         d.Category,
		Theme:            d.Theme,
		ActualLength:     d.ActualLength,
		TagCount:         d.TagCount,
		ConsistencyScore: d.ConsistencyScore,
		Confidence:       d.Confidence,
	}
}

// decodeGenerateRequest parses and validates a generate request body and
// applies the configured default length.
func (s *Server) decodeGenerateRequest(r *http.Request) (pipeline.GenerateRequest, error) {
	var body GenerateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return pipeline.GenerateRequest{}, fmt.Errorf("invalid request body: %w", err)
	}
	if strings.TrimSpace(body.Material) == "" {
		return pipeline.GenerateRequest{}, fmt.Errorf("material is required")
	}

	req := pipeline.GenerateRequest{
		Material:      body.Material,
		Theme:         strings.TrimSpace(body.Theme),
		DesiredLength: body.DesiredLength,
	}
	if req.DesiredLength <= 0 {
		req.DesiredLength = s.config.Generation.DesiredLength
	}

	if token := strings.TrimSpace(body.Category); token != "" && !strings.EqualFold(token, "auto") {
		category, ok := core.ParseCategory(strings.ToUpper(token))
		if !ok {
			return pipeline.GenerateRequest{}, fmt.Errorf("unknown category %q", body.Category)
		}
		req.Category = category
	}

	return req, nil
}

// handleGenerate handles POST /api/generate.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeGenerateRequest(r)
	if err != nil {
		s.respondInvalid(w, err.Error())
		return
	}

	draft, err := s.deps.Generator.Generate(r.Context(), req, nil)
	if err != nil {
		logger.Error("Generation failed", err)
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, draftResponse(draft))
}

// handleGenerateStream handles POST /api/generate/stream. It relays
// pipeline progress as SSE events and terminates the stream with exactly
// one complete or error event.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeGenerateRequest(r)
	if err != nil {
		s.respondInvalid(w, err.Error())
		return
	}

	stream, err := sse.NewWriter(w)
	if err != nil {
		s.respondError(w, err)
		return
	}

	type outcome struct {
		draft *core.ArticleDraft
		err   error
	}

	// Generate never closes the progress channel, so the goroutine that
	// owns the call closes it once Generate has returned. The relay loop
	// below then drains the remaining events before the terminal event.
	progress := make(chan core.Progress, len(pipeline.Stages()))
	result := make(chan outcome, 1)
	go func() {
		draft, err := s.deps.Generator.Generate(r.Context(), req, progress)
		close(progress)
		result <- outcome{draft: draft, err: err}
	}()

	for p := range progress {
		if err := stream.Progress(p); err != nil {
			// Client is gone. Keep draining so the pipeline observes its
			// own context cancellation instead of blocking on a send.
			logger.Debug("Progress event dropped", "step", p.Step, "error", err.Error())
		}
	}

	out := <-result
	if out.err != nil {
		logger.Error("Streamed generation failed", out.err)
		if writeErr := stream.Error(out.err); writeErr != nil {
			logger.Debug("Error event dropped", "error", writeErr.Error())
		}
		return
	}

	if err := stream.Complete(out.draft.Markdown, out.draft.ID); err != nil {
		logger.Warn("Complete event dropped", "error", err.Error())
	}
}
