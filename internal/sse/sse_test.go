package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"notedraft/internal/core"
)

// plainWriter implements http.ResponseWriter without http.Flusher.
type plainWriter struct {
	header http.Header
}

func (w *plainWriter) Header() http.Header {
	if w.header == nil {
		w.header = make(http.Header)
	}
	return w.header
}

func (w *plainWriter) Write(b []byte) (int, error) { return len(b), nil }

func (w *plainWriter) WriteHeader(int) {}

func newTestWriter(t *testing.T) (*Writer, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	return w, rec
}

// splitFrames breaks a stream body into its blank-line-delimited events.
func splitFrames(t *testing.T, body string) []string {
	t.Helper()
	if !strings.HasSuffix(body, "\n\n") {
		t.Fatalf("stream body does not end with a blank line: %q", body)
	}
	return strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
}

// decodeFrame returns the event type and raw data line of one frame.
func decodeFrame(t *testing.T, frame string) (string, string) {
	t.Helper()
	lines := strings.Split(frame, "\n")
	if len(lines) != 2 {
		t.Fatalf("frame should have an event line and a single data line, got %q", frame)
	}
	if !strings.HasPrefix(lines[0], "event: ") || !strings.HasPrefix(lines[1], "data: ") {
		t.Fatalf("malformed frame %q", frame)
	}
	return strings.TrimPrefix(lines[0], "event: "), strings.TrimPrefix(lines[1], "data: ")
}

func TestNewWriterSetsStreamHeaders(t *testing.T) {
	_, rec := newTestWriter(t)

	want := map[string]string{
		"Content-Type":  "text/event-stream",
		"Cache-Control": "no-cache",
		"Connection":    "keep-alive",
	}
	for name, value := range want {
		if got := rec.Header().Get(name); got != value {
			t.Errorf("header %s = %q, want %q", name, got, value)
		}
	}
}

func TestNewWriterRequiresFlusher(t *testing.T) {
	if _, err := NewWriter(&plainWriter{}); !errors.Is(err, ErrStreamingUnsupported) {
		t.Fatalf("err = %v, want ErrStreamingUnsupported", err)
	}
}

func TestProgressEnvelope(t *testing.T) {
	w, rec := newTestWriter(t)

	if err := w.Progress(core.Progress{Step: "retrieve", Percentage: 45, Message: "参考記事検索"}); err != nil {
		t.Fatalf("Progress: %v", err)
	}

	want := "event: progress\ndata: {\"step\":\"retrieve\",\"percentage\":45,\"message\":\"参考記事検索\"}\n\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
	if !rec.Flushed {
		t.Error("expected a flush after the event")
	}
}

func TestCompleteEnvelopeEscapesNewlines(t *testing.T) {
	w, rec := newTestWriter(t)

	if err := w.Complete("# タイトル\n\n本文です。", "draft-42"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	frames := splitFrames(t, rec.Body.String())
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	event, data := decodeFrame(t, frames[0])
	if event != EventComplete {
		t.Errorf("event = %q, want %q", event, EventComplete)
	}

	var payload CompletePayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if payload.Markdown != "# タイトル\n\n本文です。" {
		t.Errorf("markdown = %q", payload.Markdown)
	}
	if payload.DraftID != "draft-42" {
		t.Errorf("draft_id = %q, want draft-42", payload.DraftID)
	}
}

func TestErrorEnvelopeKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"upstream", fmt.Errorf("%w: gemini returned 503", core.ErrUpstream), "upstream"},
		{"schema", core.ErrSchema, "schema"},
		{"retrieval", fmt.Errorf("%w: trigram lane unavailable", core.ErrRetrieval), "retrieval"},
		{"timeout", core.ErrTimeout, "timeout"},
		{"cancelled", core.ErrCancelled, "cancelled"},
		{"not found", core.ErrNotFound, "not_found"},
		{"invariant", core.ErrInvariant, "invariant"},
		{"unclassified", errors.New("boom"), "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, rec := newTestWriter(t)
			if err := w.Error(tt.err); err != nil {
				t.Fatalf("Error: %v", err)
			}

			event, data := decodeFrame(t, splitFrames(t, rec.Body.String())[0])
			if event != EventError {
				t.Errorf("event = %q, want %q", event, EventError)
			}

			var payload ErrorPayload
			if err := json.Unmarshal([]byte(data), &payload); err != nil {
				t.Fatalf("unmarshal data: %v", err)
			}
			if payload.Kind != tt.kind {
				t.Errorf("kind = %q, want %q", payload.Kind, tt.kind)
			}
			if payload.Message != tt.err.Error() {
				t.Errorf("message = %q, want %q", payload.Message, tt.err.Error())
			}
		})
	}
}

func TestStreamSequence(t *testing.T) {
	w, rec := newTestWriter(t)

	events := []core.Progress{
		{Step: "input_parse", Percentage: 10, Message: "入力解析"},
		{Step: "classify", Percentage: 20, Message: "記事タイプ判定"},
		{Step: "assemble", Percentage: 100, Message: "記事組み立て"},
	}
	for _, p := range events {
		if err := w.Progress(p); err != nil {
			t.Fatalf("Progress(%s): %v", p.Step, err)
		}
	}
	if err := w.Complete("markdown", "id-1"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	frames := splitFrames(t, rec.Body.String())
	if len(frames) != 4 {
		t.Fatalf("got %d frames, want 4", len(frames))
	}
	for i, p := range events {
		event, data := decodeFrame(t, frames[i])
		if event != EventProgress {
			t.Errorf("frame %d event = %q, want progress", i, event)
		}
		var got core.Progress
		if err := json.Unmarshal([]byte(data), &got); err != nil {
			t.Fatalf("frame %d unmarshal: %v", i, err)
		}
		if got != p {
			t.Errorf("frame %d = %+v, want %+v", i, got, p)
		}
	}
	if event, _ := decodeFrame(t, frames[3]); event != EventComplete {
		t.Errorf("terminal event = %q, want complete", event)
	}
}
