package cron

import (
	"context"
	"sync"
	"time"
)

// Job is one unit of periodic work run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	job     Job
	every   time.Duration
	lastRun time.Time
}

// Registry holds jobs and their cadence. A job registered without a cadence
// runs on every cycle.
type Registry struct {
	mu      sync.Mutex
	entries []*entry
}

func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

func (r *Registry) Register(job Job) {
	r.RegisterEvery(job, 0)
}

// RegisterEvery adds a job that runs at most once per every. The first cycle
// after startup always runs it.
func (r *Registry) RegisterEvery(job Job, every time.Duration) {
	if job == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, &entry{job: job, every: every})
}

// Jobs returns every registered job in registration order.
func (r *Registry) Jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs := make([]Job, 0, len(r.entries))
	for _, e := range r.entries {
		jobs = append(jobs, e.job)
	}
	return jobs
}

// Due returns the jobs whose cadence has elapsed at now and stamps them as run.
func (r *Registry) Due(now time.Time) []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []Job
	for _, e := range r.entries {
		if e.every > 0 && !e.lastRun.IsZero() && now.Sub(e.lastRun) < e.every {
			continue
		}
		e.lastRun = now
		due = append(due, e.job)
	}
	return due
}
