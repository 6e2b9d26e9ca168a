package observer

import (
	"sync"
	"time"
)

// Failure is one background failure recorded in a FailureRegistry.
type Failure struct {
	// ObserverID identifies the failed observer. Empty for failures
	// recorded by callers outside any observer (e.g. test-guard errors).
	ObserverID string

	// Context is the textual identity of the failure origin.
	Context string

	// Err is the recorded error.
	Err error

	// Time is when the failure was recorded.
	Time time.Time
}

// FailureRegistry stores errors raised inside background execution contexts
// that were never retrieved by their owner. Recording never blocks and is
// safe under concurrent writers; Drain is the only read path.
type FailureRegistry struct {
	mu      sync.Mutex
	entries []Failure
}

// Unraised is the process-wide registry used by observers created with
// NewBase. Test harnesses drain it at test boundaries (see package
// testguard).
var Unraised = NewFailureRegistry()

// NewFailureRegistry creates an empty failure registry.
func NewFailureRegistry() *FailureRegistry {
	return &FailureRegistry{}
}

// Record appends a failure raised outside any observer. context names the
// origin for diagnostics.
func (r *FailureRegistry) Record(context string, err error) {
	r.record("", context, err)
}

func (r *FailureRegistry) record(observerID, context string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Failure{
		ObserverID: observerID,
		Context:    context,
		Err:        err,
		Time:       time.Now(),
	})
}

// forget removes the entry recorded for the given observer, if any. Called
// when a Result read propagates the failure directly to its caller.
func (r *FailureRegistry) forget(observerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.ObserverID == observerID {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}

// Drain atomically returns the recorded failures and clears the registry.
func (r *FailureRegistry) Drain() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.entries
	r.entries = nil
	return entries
}
