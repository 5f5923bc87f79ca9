// Package observability tracks per-resource fetch outcomes for health
// reporting and troubleshooting.
package observability

import (
	"sort"
	"sync"
	"time"
)

// FetchStats records the outcome of every resource fetch or table pull.
// It is safe for concurrent use.
type FetchStats struct {
	mu        sync.RWMutex
	resources map[string]*ResourceStats
	window    time.Duration
	now       func() time.Time
}

// ResourceStats holds the counters for one resource.
type ResourceStats struct {
	Resource     string        `json:"resource"`
	Fetches      int64         `json:"fetches"`
	Failures     int64         `json:"failures"`
	LastRows     int           `json:"last_rows"`
	LastDuration time.Duration `json:"last_duration_ns"`
	LastError    string        `json:"last_error,omitempty"`
	LastSeen     time.Time     `json:"last_seen"`
}

// Healthy reports whether the most recent fetch succeeded.
func (r ResourceStats) Healthy() bool {
	return r.LastError == ""
}

// NewFetchStats creates a tracker. window is the age after which Prune drops
// a resource that has not been fetched.
func NewFetchStats(window time.Duration) *FetchStats {
	return &FetchStats{
		resources: make(map[string]*ResourceStats),
		window:    window,
		now:       time.Now,
	}
}

// Record stores one fetch outcome. err is nil on success.
func (f *FetchStats) Record(resource string, rows int, d time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.resources[resource]
	if !ok {
		s = &ResourceStats{Resource: resource}
		f.resources[resource] = s
	}

	s.Fetches++
	s.LastRows = rows
	s.LastDuration = d
	s.LastSeen = f.now()
	if err != nil {
		s.Failures++
		s.LastError = err.Error()
	} else {
		s.LastError = ""
	}
}

// Get returns a copy of the stats for resource.
func (f *FetchStats) Get(resource string) (ResourceStats, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	s, ok := f.resources[resource]
	if !ok {
		return ResourceStats{}, false
	}
	return *s, true
}

// Snapshot returns a copy of every resource's stats sorted by name.
func (f *FetchStats) Snapshot() []ResourceStats {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]ResourceStats, 0, len(f.resources))
	for _, s := range f.resources {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Resource < out[j].Resource
	})
	return out
}

// Failing returns the resources whose last fetch failed, sorted by failure
// count descending.
func (f *FetchStats) Failing() []ResourceStats {
	var out []ResourceStats
	for _, s := range f.Snapshot() {
		if !s.Healthy() {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Failures > out[j].Failures
	})
	return out
}

// Prune removes resources not fetched within the window.
func (f *FetchStats) Prune() {
	f.mu.Lock()
	defer f.mu.Unlock()

	threshold := f.now().Add(-f.window)
	for name, s := range f.resources {
		if s.LastSeen.Before(threshold) {
			delete(f.resources, name)
		}
	}
}
