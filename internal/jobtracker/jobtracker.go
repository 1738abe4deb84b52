// Package jobtracker is an in-memory, single-slot registry of background
// write jobs (add, sync, embed), built around a thread-safe progress
// snapshot that readers can poll without blocking the running task.
package jobtracker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gnosis-index/gnosis/internal/errorcode"
)

// JobType is the kind of background write a job performs.
type JobType string

const (
	JobAdd   JobType = "add"
	JobSync  JobType = "sync"
	JobEmbed JobType = "embed"
)

// JobStatus is a job's lifecycle state.
type JobStatus string

const (
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// expireAfter bounds how long a terminal (completed/failed) job stays
// queryable before GetJobStatus reports it gone; running jobs never expire.
const expireAfter = time.Hour

// Progress is a task's self-reported progress, safe to update concurrently
// with reads via GetJobStatus.
type Progress struct {
	Current     int    `json:"current"`
	Total       int    `json:"total"`
	CurrentFile string `json:"currentFile,omitempty"`
}

// JobInfo is the externally visible snapshot of one job.
type JobInfo struct {
	ID               string    `json:"id"`
	Type             JobType   `json:"type"`
	Status           JobStatus `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
	Progress         *Progress `json:"progress,omitempty"`
	Result           any       `json:"result,omitempty"`
	Error            string    `json:"error,omitempty"`
	ServerInstanceID string    `json:"serverInstanceId"`
}

type job struct {
	info       JobInfo
	finishedAt time.Time
}

// Task is the long-running work a job wraps. It receives a handle to report
// progress and a context it should honor for cancellation.
type Task func(ctx context.Context, progress *ProgressReporter) (result any, err error)

// ProgressReporter lets a running task publish progress updates that
// GetJobStatus can observe, without the task holding the tracker's lock.
type ProgressReporter struct {
	tracker *Tracker
	jobID   string
}

// Update reports progress in non-decreasing current order; callers are
// expected to call it with increasing `current` values.
func (r *ProgressReporter) Update(current, total int, currentFile string) {
	r.tracker.updateProgress(r.jobID, Progress{Current: current, Total: total, CurrentFile: currentFile})
}

// Tracker is the single-slot job registry: at most one job runs at a time.
type Tracker struct {
	mu               sync.Mutex
	active           *job
	done             map[string]*job
	serverInstanceID string
}

// New builds a Tracker with a fresh serverInstanceId, distinguishing this
// process from any prior run across restarts.
func New() *Tracker {
	return &Tracker{
		done:             make(map[string]*job),
		serverInstanceID: uuid.NewString(),
	}
}

// StartJob assigns a fresh id, marks the job running, and launches task in
// its own goroutine. Returns CONFLICT if a job is already active.
func (t *Tracker) StartJob(jobType JobType, task Task) (string, error) {
	t.mu.Lock()
	if t.active != nil {
		t.mu.Unlock()
		return "", errorcode.Conflict("a job is already running")
	}

	id := uuid.NewString()
	j := &job{info: JobInfo{
		ID:               id,
		Type:             jobType,
		Status:           StatusRunning,
		CreatedAt:        time.Now().UTC(),
		ServerInstanceID: t.serverInstanceID,
	}}
	t.active = j
	t.mu.Unlock()

	go t.run(id, task)
	return id, nil
}

func (t *Tracker) run(id string, task Task) {
	reporter := &ProgressReporter{tracker: t, jobID: id}
	result, err := func() (res any, runErr error) {
		defer func() {
			if r := recover(); r != nil {
				runErr = errorcode.New(errorcode.CodeRuntime, "job panicked", nil)
			}
		}()
		return task(context.Background(), reporter)
	}()
	t.finish(id, result, err)
}

func (t *Tracker) finish(id string, result any, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil || t.active.info.ID != id {
		return
	}
	j := t.active
	t.active = nil
	if err != nil {
		j.info.Status = StatusFailed
		j.info.Error = err.Error()
	} else {
		j.info.Status = StatusCompleted
		j.info.Result = result
	}
	j.finishedAt = time.Now()
	t.done[id] = j
}

func (t *Tracker) updateProgress(id string, p Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active != nil && t.active.info.ID == id {
		t.active.info.Progress = &p
	}
}

// GetJobStatus returns the job's current snapshot, or ok = false if it was
// never known or has expired past its TTL.
func (t *Tracker) GetJobStatus(id string) (JobInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active != nil && t.active.info.ID == id {
		return t.active.info, true
	}
	if j, ok := t.done[id]; ok {
		if time.Since(j.finishedAt) > expireAfter {
			delete(t.done, id)
			return JobInfo{}, false
		}
		return j.info, true
	}
	return JobInfo{}, false
}
