package cron

import (
	"context"
	"fmt"

	robfig "github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Entry pairs a job with its standard five-field cron expression.
type Entry struct {
	Spec string
	Job  Job
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Registry tracks registered cron jobs.
type Registry struct {
	entries []Entry
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a job under spec. The spec must be a standard five-field
// cron expression.
func (r *Registry) Register(spec string, job Job) error {
	if job == nil {
		return fmt.Errorf("job required")
	}
	if _, err := robfig.ParseStandard(spec); err != nil {
		return fmt.Errorf("job %s: invalid schedule %q: %w", job.Name(), spec, err)
	}
	r.entries = append(r.entries, Entry{Spec: spec, Job: job})
	return nil
}

// Entries returns the registered entries in the order they were added.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	return entries
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, 0, len(r.entries))
	for _, entry := range r.entries {
		jobs = append(jobs, entry.Job)
	}
	return jobs
}
