// Package registry implements the Active-Fault Registry: a process-wide
// mapping from fault tag to its most recently enabled state. Grounded
// on FaultLogger.ACTIVE_FAULTS_DICT / set_fault_active / set_fault_inactive
// in mininet/faultlogger.py, which is a bare module-level dict because
// the original scheduler is single-threaded cooperative. This port runs
// injectors as real goroutines, so per the concurrency model's explicit
// requirement ("implementations with real parallelism MUST protect the
// Active-Fault Registry with a mutex"), every mutation and read here
// goes through a sync.RWMutex.
package registry

import (
	"sync"

	"github.com/netfault/faultctl/pkg/logging"
)

// Entry is the active-fault entry named in the data model: the tag,
// its fault type, the last rendered enable command, and that command's
// exit code.
type Entry struct {
	Tag            string
	Type           string
	LastCommand    string
	LastReturnCode int
}

// Observer receives notifications of registry activity, for a caller
// (pkg/metrics) that wants to mirror it into external counters/gauges
// without this package importing anything metrics-shaped.
type Observer interface {
	EnableRecorded()
	ActiveCountChanged(n int)
}

// Registry is the mutex-protected tag -> Entry map.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]Entry
	logger   *logging.Logger
	observer Observer
}

// New creates an empty registry.
func New(logger *logging.Logger) *Registry {
	return &Registry{
		entries: make(map[string]Entry),
		logger:  logger,
	}
}

// SetObserver registers o to be notified of every SetActive/SetInactive
// call going forward. Passing nil disables notification.
func (r *Registry) SetObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = o
}

// SetActive records tag as enabled, overwriting any previous entry for
// the same tag. Tag collisions are a documented hazard, not an error:
// the data model declares tags "assumed globally unique; collisions
// silently overwrite."
func (r *Registry) SetActive(tag, faultType, command string, retcode int) {
	r.mu.Lock()
	r.entries[tag] = Entry{
		Tag:            tag,
		Type:           faultType,
		LastCommand:    command,
		LastReturnCode: retcode,
	}
	observer, n := r.observer, len(r.entries)
	r.mu.Unlock()

	if observer != nil {
		observer.EnableRecorded()
		observer.ActiveCountChanged(n)
	}
}

// SetInactive removes tag from the registry. A missing tag is logged as
// a warning (likely a duplicate tag or a race between enable/disable),
// never as an error — per the error-handling design's "Unpaired
// disable" disposition.
func (r *Registry) SetInactive(tag string) {
	r.mu.Lock()
	if _, ok := r.entries[tag]; !ok {
		r.mu.Unlock()
		if r.logger != nil {
			r.logger.Warn("disabling a tag with no active entry (likely duplicate tag or race)", "tag", tag)
		}
		return
	}
	delete(r.entries, tag)
	observer, n := r.observer, len(r.entries)
	r.mu.Unlock()

	if observer != nil {
		observer.ActiveCountChanged(n)
	}
}

// Snapshot returns a copy of the currently active entries, safe for a
// caller (the Fault Logger) to hold onto after the call returns.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}

// Len reports the number of currently active entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
