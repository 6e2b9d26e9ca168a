package observer

import (
	"fmt"
	"time"
)

// Outcome represents the terminal state of an observer.
type Outcome uint8

const (
	// OutcomePending indicates the observer has not finished yet.
	OutcomePending Outcome = iota

	// OutcomeResult indicates the observer finished with a result.
	OutcomeResult

	// OutcomeFailed indicates the observer finished with an error.
	OutcomeFailed

	// OutcomeCancelled indicates the observer was cancelled before finishing.
	OutcomeCancelled
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "PENDING"
	case OutcomeResult:
		return "RESULT"
	case OutcomeFailed:
		return "FAILED"
	case OutcomeCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Connection is the minimal surface an observer needs from the stream it
// reads: sending outgoing data and rendering identity for diagnostics.
// The observer never owns its connection; package connection provides the
// full lifecycle surface consumed by runners and devices.
type Connection interface {
	// Send writes data to the remote side.
	Send(data []byte) error

	// String renders the connection identity, e.g. "tcp(10.0.0.7:23)".
	String() string
}

// Observer is a future-like object representing one asynchronous operation
// driven by push-based data delivery.
//
// Implementations embed Base and provide DataReceived. All other methods
// are supplied by Base and are safe for concurrent use.
type Observer interface {
	fmt.Stringer
	fmt.GoStringer

	// ID returns the stable unique identity of this observer.
	ID() string

	// Name returns the observer's type name used in its textual identity.
	Name() string

	// Connection returns the connection this observer reads from, or nil.
	Connection() Connection

	// SetConnection attaches (or reassigns) the connection before start.
	SetConnection(conn Connection)

	// Start marks the observer as running. It validates start preconditions
	// and never transitions to running on violation.
	Start() error

	// DataReceived consumes one unit of connection data. It is the only
	// place implementations may call SetResult or SetException, and it must
	// be a no-op once the observer is done. A returned error is converted
	// by the runner into SetException.
	DataReceived(data []byte) error

	// SetResult sets the terminal outcome to a result value. Fails with
	// *ResultAlreadySetError when the observer is no longer pending.
	SetResult(value any) error

	// SetException sets the terminal outcome to a failure. Fails with
	// *ResultAlreadySetError when the observer is no longer pending.
	SetException(err error) error

	// Cancel atomically cancels the observer if it is still pending and
	// reports whether the cancellation took effect.
	Cancel() bool

	// Done reports whether the outcome is terminal.
	Done() bool

	// Running reports whether a runner has started the observer and it has
	// not reached a terminal outcome yet.
	Running() bool

	// Cancelled reports whether the observer was cancelled.
	Cancelled() bool

	// Outcome returns the current outcome.
	Outcome() Outcome

	// Result returns the value for a completed observer. It re-raises the
	// stored error for a failed one, fails with *NoResultSinceCancelError
	// for a cancelled one and with *ResultNotAvailableYetError for a
	// pending one.
	Result() (any, error)

	// AwaitDone blocks until the observer is terminal, then behaves like
	// Result. A positive timeout bounds the wait; on expiry AwaitDone fails
	// with *TimeoutError without cancelling the observer. A zero or
	// negative timeout waits indefinitely.
	AwaitDone(timeout time.Duration) (any, error)

	// Completed returns a channel closed when the observer reaches a
	// terminal outcome. Runners use it to stop delivery promptly.
	Completed() <-chan struct{}
}
