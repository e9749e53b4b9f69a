package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"notedraft/internal/core"
	"notedraft/internal/logger"
	"notedraft/internal/sse"
)

// StatusClientClosedRequest is the nginx convention for a request the
// client abandoned before the response was ready.
const StatusClientClosedRequest = 499

// errorEnvelope is the JSON error body. It carries the same kind/message
// pair as the SSE error event so clients parse one shape everywhere.
type errorEnvelope struct {
	Error sse.ErrorPayload `json:"error"`
}

// respondJSON writes a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", err)
	}
}

// respondError maps a pipeline or store error onto the HTTP status
// taxonomy and writes the error envelope.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	s.respondJSON(w, statusForError(err), errorEnvelope{
		Error: sse.ErrorPayload{Kind: core.ErrorKind(err), Message: err.Error()},
	})
}

// respondInvalid rejects malformed client input with a 400.
func (s *Server) respondInvalid(w http.ResponseWriter, message string) {
	s.respondJSON(w, http.StatusBadRequest, errorEnvelope{
		Error: sse.ErrorPayload{Kind: "validation", Message: message},
	})
}

// statusForError translates the error taxonomy into HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrCancelled):
		return StatusClientClosedRequest
	case errors.Is(err, core.ErrUpstream),
		errors.Is(err, core.ErrRetrieval),
		errors.Is(err, core.ErrSchema):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
