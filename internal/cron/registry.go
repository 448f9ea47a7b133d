package cron

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Job is one maintenance task executed on every cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs of a worker in execution order. Names are unique.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry drops nil jobs and panics on duplicate names, which is a wiring bug.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{names: map[string]struct{}{}}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			panic(err)
		}
	}
	return registry
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	if r.names == nil {
		r.names = map[string]struct{}{}
	}
	name := job.Name()
	if _, exists := r.names[name]; exists {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy of the registered jobs in registration order.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		names = append(names, job.Name())
	}
	return names
}

// Only narrows the registry to a comma separated list of job names. An empty filter keeps every job.
func (r *Registry) Only(filter string) (*Registry, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return r, nil
	}

	wanted := map[string]struct{}{}
	for _, name := range strings.Split(filter, ",") {
		if name = strings.TrimSpace(name); name != "" {
			wanted[name] = struct{}{}
		}
	}

	subset := &Registry{names: map[string]struct{}{}}
	for _, job := range r.jobs {
		if _, ok := wanted[job.Name()]; ok {
			_ = subset.Register(job)
			delete(wanted, job.Name())
		}
	}
	if len(wanted) > 0 {
		unknown := make([]string, 0, len(wanted))
		for name := range wanted {
			unknown = append(unknown, name)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown cron jobs: %s", strings.Join(unknown, ", "))
	}
	return subset, nil
}
