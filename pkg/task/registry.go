package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"redpost/pkg/logging"
	"redpost/pkg/publish"
)

// entry pairs a job record with its own mutex so concurrent jobs never
// serialize against each other, plus the cancellation handle of the
// pipeline goroutine driving it.
type entry struct {
	mu     sync.Mutex
	job    PublishJob
	cancel context.CancelFunc
}

// Update is a partial job mutation; nil fields are left unchanged.
type Update struct {
	Status   *publish.Stage
	Progress *int
	Message  *string
	Result   *publish.Result
}

// Registry owns the set of in-flight and recently finished jobs. The outer
// map is guarded briefly for lookup and insert; all per-job mutation runs
// under that job's own lock.
type Registry struct {
	mu     sync.RWMutex
	jobs   map[string]*entry
	logger *logging.Logger
	now    func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *logging.Logger) *Registry {
	return &Registry{
		jobs:   make(map[string]*entry),
		logger: logger,
		now:    time.Now,
	}
}

// Create allocates a job id and stores a pending record for the note. It
// performs no I/O and cannot fail.
func (r *Registry) Create(note publish.Note) string {
	id := uuid.NewString()[:8]

	r.mu.Lock()
	r.jobs[id] = &entry{
		job: PublishJob{
			ID:        id,
			Note:      note,
			Status:    publish.StagePending,
			Message:   "queued",
			StartedAt: r.now(),
		},
	}
	r.mu.Unlock()

	r.logger.Infof("Created job %s (%q)", id, note.Title)
	return id
}

// RegisterCancel stores the cancellation handle of the execution driving
// this job. A no-op for unknown ids.
func (r *Registry) RegisterCancel(id string, cancel context.CancelFunc) {
	if e := r.lookup(id); e != nil {
		e.mu.Lock()
		e.cancel = cancel
		e.mu.Unlock()
	}
}

// Apply mutates the job with the non-nil fields of upd. Progress can only
// rise while the job is live; a stale id is logged and ignored so a
// lagging pipeline never crashes over an already evicted job.
func (r *Registry) Apply(id string, upd Update) {
	e := r.lookup(id)
	if e == nil {
		r.logger.Warnf("Update for unknown job %s dropped", id)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if upd.Status != nil {
		e.job.Status = *upd.Status
		if e.job.Status.Terminal() {
			e.job.EndedAt = r.now()
		}
	}
	if upd.Progress != nil {
		failed := e.job.Status == publish.StageFailed
		if *upd.Progress > e.job.Progress || failed {
			e.job.Progress = *upd.Progress
		}
	}
	if upd.Message != nil {
		e.job.Message = *upd.Message
	}
	if upd.Result != nil {
		e.job.Result = upd.Result
	}
}

// Get returns a copy of the job record.
func (r *Registry) Get(id string) (PublishJob, bool) {
	e := r.lookup(id)
	if e == nil {
		return PublishJob{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job, true
}

// Cancel aborts the execution driving the job, if one is still registered.
// The job itself transitions through the pipeline's failure path.
func (r *Registry) Cancel(id string) bool {
	e := r.lookup(id)
	if e == nil {
		return false
	}

	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	r.logger.Infof("Cancelled job %s", id)
	return true
}

// Evict removes terminal jobs whose end timestamp is older than maxAge.
// Live jobs are never evicted regardless of age. Any still-registered
// cancellation handle is fired before removal so no execution context
// outlives its job record.
func (r *Registry) Evict(maxAge time.Duration) int {
	threshold := r.now().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, e := range r.jobs {
		e.mu.Lock()
		expired := e.job.Terminal() && e.job.EndedAt.Before(threshold)
		cancel := e.cancel
		e.mu.Unlock()

		if !expired {
			continue
		}
		if cancel != nil {
			cancel()
		}
		delete(r.jobs, id)
		removed++
	}

	if removed > 0 {
		r.logger.Infof("Evicted %d finished jobs", removed)
	}
	return removed
}

// Len returns the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

func (r *Registry) lookup(id string) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs[id]
}
