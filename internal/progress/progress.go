// Package progress implements the ProgressReporter and ThroughputCounter
// capabilities of §4.5: the core pushes updates, it never renders them.
package progress

import "sync"

// Value is a snapshot of one named counter's progress.
type Value struct {
	Current int64
	Max     int64
}

// Reporter holds a mapping from named counters (e.g. "indexing",
// "flushing") to progress values in [0, max]. Updates are done under a
// short mutex; reads snapshot under the same lock (§5 shared-resource
// policy). It replaces the teacher CLI's global mutable progress state
// (tools.LogOutput progress prints) with an explicit object passed by
// reference, created by the driver before ingestion and dropped after
// close() (§9 "Global mutable state").
type Reporter struct {
	mu       sync.Mutex
	counters map[string]Value
}

func NewReporter() *Reporter {
	return &Reporter{counters: make(map[string]Value)}
}

// Update sets a named counter's current value and ceiling.
func (r *Reporter) Update(name string, current, max int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] = Value{Current: current, Max: max}
}

// Snapshot returns a copy of every counter's current state.
func (r *Reporter) Snapshot() map[string]Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Value, len(r.counters))
	for k, v := range r.counters {
		out[k] = v
	}
	return out
}
