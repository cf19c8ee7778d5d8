// Package jobmgr tracks named cancellable background jobs. A job name can
// only run once at a time; starting a duplicate is refused. Jobs are removed
// automatically when they finish.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(func(msg string) { log.Println("[JOB]", msg) })
//	err := jm.StartAsync("backfill:123", func(ctx context.Context) error {
//	    // work until ctx is cancelled
//	    return nil
//	})
//	// later...
//	_ = jm.Stop("backfill:123")
package jobmgr

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// StatusReporter receives lifecycle events, e.g. "running:backfill:123",
// "error:backfill:123:fetch failed", "done:backfill:123".
type StatusReporter func(string)

type job struct {
	name   string
	cancel context.CancelFunc
}

// Manager orchestrates starting, stopping and tracking jobs.
// Safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	jobs     map[string]*job
	reporter StatusReporter
}

// NewManager creates a Manager. The reporter may be nil.
func NewManager(reporter StatusReporter) *Manager {
	return &Manager{
		jobs:     make(map[string]*job),
		reporter: reporter,
	}
}

func (m *Manager) report(msg string) {
	if m.reporter != nil {
		m.reporter(msg)
	}
}

// StartAsync runs a job in a separate goroutine and returns immediately.
// An error is returned if a job with the same name is already running.
func (m *Manager) StartAsync(name string, runner func(ctx context.Context) error) error {
	m.mu.Lock()
	if _, exists := m.jobs[name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("job %q is already running", name)
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.jobs[name] = &job{name: name, cancel: cancel}
	m.mu.Unlock()

	m.report("running:" + name)

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.jobs, name)
			m.mu.Unlock()
			cancel()
		}()
		if err := runner(ctx); err != nil {
			m.report("error:" + name + ":" + err.Error())
			return
		}
		m.report("done:" + name)
	}()

	return nil
}

// Stop cancels a running job. Stopping an unknown job is not an error.
func (m *Manager) Stop(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[name]
	if !ok {
		return false
	}
	j.cancel()
	return true
}

// StopAll cancels every running job.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		j.cancel()
	}
}

// Running returns the names of currently running jobs, sorted.
func (m *Manager) Running() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.jobs))
	for name := range m.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRunning reports whether a job with the given name is active.
func (m *Manager) IsRunning(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.jobs[name]
	return ok
}
