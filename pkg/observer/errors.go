package observer

import (
	"errors"
	"fmt"
	"time"
)

// Observer lifecycle errors.
var (
	ErrObserverDone    = errors.New("observer already reached a terminal outcome")
	ErrNoConnection    = errors.New("observer has no connection attached")
	ErrNoCommandString = errors.New("command has no command string")
)

// ResultAlreadySetError reports a second terminal-outcome write on an
// observer whose outcome was already set.
type ResultAlreadySetError struct {
	// Observer is the textual identity of the violated observer.
	Observer string
}

func (e *ResultAlreadySetError) Error() string {
	return fmt.Sprintf("result already set for %s", e.Observer)
}

// NoResultSinceCancelError reports a result read on a cancelled observer.
type NoResultSinceCancelError struct {
	Observer string
}

func (e *NoResultSinceCancelError) Error() string {
	return fmt.Sprintf("no result since cancel was called for %s", e.Observer)
}

// ResultNotAvailableYetError reports a result read on a pending observer.
type ResultNotAvailableYetError struct {
	Observer string
}

func (e *ResultNotAvailableYetError) Error() string {
	return fmt.Sprintf("result not available yet for %s", e.Observer)
}

// TimeoutError reports an AwaitDone wait that expired before the observer
// reached a terminal outcome. The observer itself is not cancelled.
type TimeoutError struct {
	Observer string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %v awaiting %s", e.Timeout, e.Observer)
}
