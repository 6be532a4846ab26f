// Package services tracks the external dependencies a binary needs and
// reports their health.
package services

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Registry manages dependency checkers
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewRegistry creates a new service registry
func NewRegistry() *Registry {
	return &Registry{
		checkers: make(map[string]Checker),
	}
}

// Register adds a checker to the registry
func (r *Registry) Register(name string, checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = checker
}

// Get retrieves a checker by name
func (r *Registry) Get(name string) Checker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.checkers[name]
}

// List returns all registered names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.checkers))
	for name := range r.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HealthCheckAll checks health of all registered dependencies concurrently
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]error, len(r.checkers))
	)
	for name, checker := range r.checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := checker.HealthCheck(ctx)
			mu.Lock()
			results[name] = err
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// Status is the health report of one dependency
type Status struct {
	Type    string `json:"type"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// Report runs every check with a timeout and summarizes the results.
// ok is false when any dependency is unhealthy.
func (r *Registry) Report(ctx context.Context, timeout time.Duration) (map[string]Status, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := r.HealthCheckAll(ctx)
	report := make(map[string]Status, len(results))
	ok := true
	for name, err := range results {
		st := Status{Healthy: err == nil}
		if c := r.Get(name); c != nil {
			st.Type = c.Type()
		}
		if err != nil {
			st.Error = err.Error()
			ok = false
		}
		report[name] = st
	}
	return report, ok
}

// Unregister removes a checker from the registry
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.checkers, name)
}
