package observer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Base implements the future side of Observer. Concrete observers embed it
// and provide DataReceived:
//
//	type DiskUsage struct {
//		observer.Base
//	}
//
//	du := &DiskUsage{Base: observer.NewBase("DiskUsage", conn)}
//
// A Base must be created with NewBase and must not be copied after first use.
type Base struct {
	id   string
	name string

	mu        sync.Mutex
	conn      Connection
	outcome   Outcome
	result    any
	err       error
	running   bool
	completed chan struct{}
	failures  *FailureRegistry
}

// NewBase creates an observer core with the given type name, reading from
// conn. conn may be nil and assigned later via SetConnection. Failures set
// via SetException are recorded in the process-wide Unraised registry.
func NewBase(name string, conn Connection) Base {
	return NewBaseWithRegistry(name, conn, Unraised)
}

// NewBaseWithRegistry creates an observer core recording unretrieved
// failures into reg instead of the process-wide registry. reg may be nil to
// disable failure tracking.
func NewBaseWithRegistry(name string, conn Connection, reg *FailureRegistry) Base {
	return Base{
		id:        uuid.NewString(),
		name:      name,
		conn:      conn,
		completed: make(chan struct{}),
		failures:  reg,
	}
}

// ID returns the observer's unique identity.
func (b *Base) ID() string { return b.id }

// Name returns the observer's type name.
func (b *Base) Name() string { return b.name }

// Connection returns the attached connection, or nil.
func (b *Base) Connection() Connection {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn
}

// SetConnection attaches or reassigns the connection.
func (b *Base) SetConnection(conn Connection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conn = conn
}

// Start marks the observer as running. Starting a terminal observer fails
// with ErrObserverDone; starting twice is a no-op.
func (b *Base) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.outcome != OutcomePending {
		return ErrObserverDone
	}
	b.running = true
	return nil
}

// SetResult sets the terminal outcome to value if still pending.
func (b *Base) SetResult(value any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.outcome != OutcomePending {
		return &ResultAlreadySetError{Observer: b.String()}
	}
	b.outcome = OutcomeResult
	b.result = value
	b.finishLocked()
	return nil
}

// SetException sets the terminal outcome to err if still pending. The
// failure is recorded in the observer's failure registry; a later Result
// call that propagates the error to its caller removes the entry again, so
// retrieved failures are reported exactly once.
func (b *Base) SetException(err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.outcome != OutcomePending {
		return &ResultAlreadySetError{Observer: b.String()}
	}
	b.outcome = OutcomeFailed
	b.err = err
	// Record before finishLocked closes the completed channel: a waiter woken
	// by it may call Result immediately, and its forget must observe the
	// entry. record only takes the registry's own lock and never blocks.
	if b.failures != nil {
		b.failures.record(b.id, b.String(), err)
	}
	b.finishLocked()
	return nil
}

// Cancel cancels the observer if still pending and reports whether the
// cancellation took effect. A terminal outcome is never overwritten.
func (b *Base) Cancel() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.outcome != OutcomePending {
		return false
	}
	b.outcome = OutcomeCancelled
	b.finishLocked()
	return true
}

// finishLocked transitions running -> terminal. Callers hold b.mu and have
// already set the outcome.
func (b *Base) finishLocked() {
	b.running = false
	close(b.completed)
}

// Done reports whether the outcome is terminal.
func (b *Base) Done() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.outcome != OutcomePending
}

// Running reports whether the observer has been started and is not yet done.
func (b *Base) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Cancelled reports whether the observer was cancelled.
func (b *Base) Cancelled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.outcome == OutcomeCancelled
}

// Outcome returns the current outcome.
func (b *Base) Outcome() Outcome {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.outcome
}

// Result returns the observer's value or error according to its outcome.
func (b *Base) Result() (any, error) {
	b.mu.Lock()
	outcome := b.outcome
	result := b.result
	err := b.err
	reg := b.failures
	b.mu.Unlock()

	switch outcome {
	case OutcomeResult:
		return result, nil
	case OutcomeFailed:
		// The caller now owns the failure; drop the background entry.
		if reg != nil {
			reg.forget(b.id)
		}
		return nil, err
	case OutcomeCancelled:
		return nil, &NoResultSinceCancelError{Observer: b.String()}
	default:
		return nil, &ResultNotAvailableYetError{Observer: b.String()}
	}
}

// AwaitDone blocks until the observer is terminal and returns its result.
// A positive timeout bounds the wait; zero or negative waits indefinitely.
func (b *Base) AwaitDone(timeout time.Duration) (any, error) {
	if timeout <= 0 {
		<-b.completed
		return b.Result()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-b.completed:
		return b.Result()
	case <-timer.C:
		return nil, &TimeoutError{Observer: b.String(), Timeout: timeout}
	}
}

// Completed returns a channel closed when the observer becomes terminal.
func (b *Base) Completed() <-chan struct{} {
	return b.completed
}

// String returns the short textual identity, e.g. "DiskUsage(id:1b4e...)".
func (b *Base) String() string {
	return b.name + "(id:" + b.id + ")"
}

// GoString extends String with the connection the observer reads from,
// e.g. "DiskUsage(id:1b4e..., using tcp(10.0.0.7:23))".
func (b *Base) GoString() string {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()

	using := "<NO CONNECTION>"
	if conn != nil {
		using = conn.String()
	}
	return b.name + "(id:" + b.id + ", using " + using + ")"
}
