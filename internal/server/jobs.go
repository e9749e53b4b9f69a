package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"notedraft/internal/core"
	"notedraft/internal/logger"
	"notedraft/internal/pipeline"
	"notedraft/internal/sse"
)

// Job lifecycle states.
const (
	JobQueued   = "queued"
	JobRunning  = "running"
	JobComplete = "complete"
	JobError    = "error"
)

const jobSweepInterval = time.Minute

// Job tracks one asynchronous generation request.
type Job struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	Progress   *core.Progress    `json:"progress,omitempty"`
	Result     *GenerateResponse `json:"result,omitempty"`
	Error      *sse.ErrorPayload `json:"error,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

// JobStore is an in-memory job registry. Finished jobs are swept once
// their TTL expires; queued and running jobs are never evicted.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

// NewJobStore creates a store keeping finished jobs for ttl.
func NewJobStore(ttl time.Duration) *JobStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JobStore{jobs: make(map[string]*Job), ttl: ttl}
}

// Create registers a queued job and returns its id.
func (js *JobStore) Create() string {
	id := uuid.NewString()
	js.mu.Lock()
	js.jobs[id] = &Job{ID: id, Status: JobQueued, CreatedAt: time.Now().UTC()}
	js.mu.Unlock()
	return id
}

// Get returns a snapshot of the job.
func (js *JobStore) Get(id string) (Job, bool) {
	js.mu.Lock()
	defer js.mu.Unlock()
	job, ok := js.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Len reports the number of tracked jobs.
func (js *JobStore) Len() int {
	js.mu.Lock()
	defer js.mu.Unlock()
	return len(js.jobs)
}

func (js *JobStore) start(id string) {
	js.mu.Lock()
	if job, ok := js.jobs[id]; ok {
		job.Status = JobRunning
	}
	js.mu.Unlock()
}

func (js *JobStore) progress(id string, p core.Progress) {
	js.mu.Lock()
	if job, ok := js.jobs[id]; ok {
		job.Progress = &p
	}
	js.mu.Unlock()
}

func (js *JobStore) complete(id string, result GenerateResponse) {
	now := time.Now().UTC()
	js.mu.Lock()
	if job, ok := js.jobs[id]; ok {
		job.Status = JobComplete
		job.Result = &result
		job.FinishedAt = &now
	}
	js.mu.Unlock()
}

func (js *JobStore) fail(id string, err error) {
	now := time.Now().UTC()
	js.mu.Lock()
	if job, ok := js.jobs[id]; ok {
		job.Status = JobError
		job.Error = &sse.ErrorPayload{Kind: core.ErrorKind(err), Message: err.Error()}
		job.FinishedAt = &now
	}
	js.mu.Unlock()
}

// sweep drops jobs that finished more than the TTL ago.
func (js *JobStore) sweep(now time.Time) int {
	js.mu.Lock()
	defer js.mu.Unlock()
	removed := 0
	for id, job := range js.jobs {
		if job.FinishedAt != nil && now.Sub(*job.FinishedAt) > js.ttl {
			delete(js.jobs, id)
			removed++
		}
	}
	return removed
}

// sweepLoop runs the TTL sweeper until ctx is done.
func (js *JobStore) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(jobSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := js.sweep(now); removed > 0 {
				logger.Debug("Swept expired jobs", "removed", removed)
			}
		}
	}
}

// JobCreatedResponse acknowledges an accepted async generation request.
type JobCreatedResponse struct {
	JobID string `json:"job_id"`
}

// handleGenerateAsync handles POST /api/generate/async.
func (s *Server) handleGenerateAsync(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeGenerateRequest(r)
	if err != nil {
		s.respondInvalid(w, err.Error())
		return
	}

	id := s.jobs.Create()
	go s.runJob(id, req)

	s.respondJSON(w, http.StatusAccepted, JobCreatedResponse{JobID: id})
}

// runJob executes one queued generation on the server's base context, so
// a client disconnect does not abort it but a shutdown does.
func (s *Server) runJob(id string, req pipeline.GenerateRequest) {
	s.jobs.start(id)

	progress := make(chan core.Progress, len(pipeline.Stages()))
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for p := range progress {
			s.jobs.progress(id, p)
		}
	}()

	draft, err := s.deps.Generator.Generate(s.baseCtx, req, progress)
	close(progress)
	<-drained

	if err != nil {
		logger.Error("Async generation failed", err, "job_id", id)
		s.jobs.fail(id, err)
		return
	}
	s.jobs.complete(id, draftResponse(draft))
}

// handleGetJob handles GET /api/jobs/{id}.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := s.jobs.Get(id)
	if !ok {
		s.respondError(w, fmt.Errorf("%w: job %s", core.ErrNotFound, id))
		return
	}

	s.respondJSON(w, http.StatusOK, job)
}
