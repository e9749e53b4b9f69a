package server

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"notedraft/internal/core"
)

func waitForJob(t *testing.T, s *Server, id string) Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if job, ok := s.jobs.Get(id); ok && (job.Status == JobComplete || job.Status == JobError) {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not finish in time")
	return Job{}
}

func TestHandleGenerateAsync(t *testing.T) {
	s, fakes := newTestServer(t)
	fakes.generator.emit = []core.Progress{{Step: "assemble", Percentage: 100, Message: "記事組み立て"}}

	rec := doJSON(t, s, http.MethodPost, "/api/generate/async", GenerateRequestBody{Material: "素材"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	created := decodeBody[JobCreatedResponse](t, rec)
	if created.JobID == "" {
		t.Fatal("empty job id")
	}

	job := waitForJob(t, s, created.JobID)
	if job.Status != JobComplete {
		t.Fatalf("status = %q, want complete", job.Status)
	}
	if job.Result == nil || job.Result.DraftID != "draft-1" {
		t.Errorf("result = %+v", job.Result)
	}
	if job.Progress == nil || job.Progress.Step != "assemble" {
		t.Errorf("progress = %+v, want last emitted stage", job.Progress)
	}
	if job.FinishedAt == nil {
		t.Error("finished job should carry a finish time")
	}

	rec = doJSON(t, s, http.MethodGet, "/api/jobs/"+created.JobID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get job status = %d", rec.Code)
	}
	got := decodeBody[Job](t, rec)
	if got.Status != JobComplete || got.Result == nil || got.Result.Markdown == "" {
		t.Errorf("job body = %+v", got)
	}
}

func TestHandleGenerateAsyncFailure(t *testing.T) {
	s, fakes := newTestServer(t)
	fakes.generator.err = fmt.Errorf("%w: gemini down", core.ErrUpstream)

	rec := doJSON(t, s, http.MethodPost, "/api/generate/async", GenerateRequestBody{Material: "素材"})
	created := decodeBody[JobCreatedResponse](t, rec)

	job := waitForJob(t, s, created.JobID)
	if job.Status != JobError {
		t.Fatalf("status = %q, want error", job.Status)
	}
	if job.Error == nil || job.Error.Kind != "upstream" {
		t.Errorf("error = %+v, want upstream kind", job.Error)
	}
	if job.Result != nil {
		t.Error("failed job must not carry a result")
	}
}

func TestHandleGenerateAsyncValidation(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/generate/async", GenerateRequestBody{Material: " "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if s.jobs.Len() != 0 {
		t.Errorf("invalid request created %d jobs", s.jobs.Len())
	}
}

func TestHandleGetJobNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/jobs/no-such-job", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if kind := errorKind(t, rec); kind != "not_found" {
		t.Errorf("kind = %q, want not_found", kind)
	}
}

func TestJobStoreSweep(t *testing.T) {
	store := NewJobStore(time.Minute)
	id := store.Create()
	store.start(id)

	if removed := store.sweep(time.Now().Add(2 * time.Minute)); removed != 0 {
		t.Errorf("running job swept (%d removed)", removed)
	}

	store.complete(id, GenerateResponse{DraftID: "x"})
	if removed := store.sweep(time.Now()); removed != 0 {
		t.Errorf("fresh finished job swept (%d removed)", removed)
	}
	if removed := store.sweep(time.Now().Add(2 * time.Minute)); removed != 1 {
		t.Errorf("expired job not swept (%d removed)", removed)
	}
	if _, ok := store.Get(id); ok {
		t.Error("swept job still retrievable")
	}
}

func TestJobStoreDefaultTTL(t *testing.T) {
	if store := NewJobStore(0); store.ttl != time.Hour {
		t.Errorf("ttl = %v, want 1h fallback", store.ttl)
	}
}

func TestJobStoreProgressSnapshot(t *testing.T) {
	store := NewJobStore(time.Minute)
	id := store.Create()
	store.start(id)
	store.progress(id, core.Progress{Step: "retrieve", Percentage: 45, Message: "参考記事検索"})

	job, ok := store.Get(id)
	if !ok {
		t.Fatal("job missing")
	}
	if job.Status != JobRunning || job.Progress == nil || job.Progress.Percentage != 45 {
		t.Errorf("job = %+v", job)
	}

	store.progress(id, core.Progress{Step: "analyze", Percentage: 55, Message: "スタイル・構成分析"})
	if job.Progress.Percentage != 45 {
		t.Error("snapshot should not change after later updates")
	}
}
