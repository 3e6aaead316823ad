package schedule

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry is the concurrency-safe, in-process job table. It is injected
// wherever scheduling state is needed so tests can run isolated instances;
// there is deliberately no package-level registry.
type Registry struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
}

// NewRegistry creates an empty job registry
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[uuid.UUID]*Job)}
}

// Upsert replaces the job for a vendor. Replacing the entry is what cancels a
// stale pending schedule after a configuration change.
func (r *Registry) Upsert(job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.VendorAccountID] = job.Clone()
}

// Get returns a copy of the vendor's job, if registered
func (r *Registry) Get(vendorAccountID uuid.UUID) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[vendorAccountID]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

// Remove drops the vendor's job from the registry
func (r *Registry) Remove(vendorAccountID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, vendorAccountID)
}

// Due returns copies of every scheduled job whose next execution is at or
// before now, and atomically marks them processing so a slow tick cannot
// collect the same job twice.
func (r *Registry) Due(now time.Time) []*Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*Job
	for _, job := range r.jobs {
		if job.Status == JobScheduled && !job.NextExecution.After(now) {
			job.Status = JobProcessing
			due = append(due, job.Clone())
		}
	}
	return due
}

// Update applies fn to the vendor's job under the registry lock. Returns
// false if the vendor has no registered job.
func (r *Registry) Update(vendorAccountID uuid.UUID, fn func(job *Job)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[vendorAccountID]
	if !ok {
		return false
	}
	fn(job)
	return true
}

// Len returns the number of registered jobs
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Snapshot returns copies of all jobs, for status queries
func (r *Registry) Snapshot() []*Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job.Clone())
	}
	return jobs
}
