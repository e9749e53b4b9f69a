// Package sse writes Server-Sent Events for the streaming generation endpoint.
//
// Each event is a two-field envelope: an "event:" line naming the type and a
// "data:" line carrying a single-line JSON payload, terminated by a blank
// line. A stream carries any number of progress events followed by exactly
// one terminal event, either complete or error.
package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"notedraft/internal/core"
)

// Event types carried on the generation stream.
const (
	EventProgress = "progress"
	EventComplete = "complete"
	EventError    = "error"
)

// ErrStreamingUnsupported is returned when the underlying http.ResponseWriter
// cannot flush, which makes event streaming impossible.
var ErrStreamingUnsupported = errors.New("response writer does not support streaming")

// CompletePayload is the terminal payload of a successful generation.
type CompletePayload struct {
	Markdown string `json:"markdown"`
	DraftID  string `json:"draft_id"`
}

// ErrorPayload is the terminal payload of a failed generation.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Writer emits SSE frames over an http.ResponseWriter, flushing after each
// event so clients observe progress as it happens.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares w for event streaming and sets the stream headers.
// Headers must not have been written yet.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	return &Writer{w: w, flusher: flusher}, nil
}

// Progress emits one pipeline stage notification.
func (s *Writer) Progress(p core.Progress) error {
	return s.send(EventProgress, p)
}

// Complete emits the terminal success event carrying the rendered draft.
func (s *Writer) Complete(markdown, draftID string) error {
	return s.send(EventComplete, CompletePayload{Markdown: markdown, DraftID: draftID})
}

// Error emits the terminal failure event. The kind is derived from the error
// taxonomy so clients can branch without parsing messages.
func (s *Writer) Error(err error) error {
	return s.send(EventError, ErrorPayload{Kind: core.ErrorKind(err), Message: err.Error()})
}

func (s *Writer) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("write %s event: %w", event, err)
	}
	s.flusher.Flush()
	return nil
}
