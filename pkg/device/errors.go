package device

import (
	"fmt"
	"strings"
)

// InvalidStateRequestedError reports a goto request for a state the device
// does not know, or one unreachable from the current state.
type InvalidStateRequestedError struct {
	Requested string
	Current   string
	States    []string
}

func (e *InvalidStateRequestedError) Error() string {
	return fmt.Sprintf("invalid state %q requested from %q (known states: %s)",
		e.Requested, e.Current, strings.Join(e.States, ", "))
}

// WrongStateError reports an observer started outside the state it was
// created in.
type WrongStateError struct {
	Observer      string
	CreationState string
	CurrentState  string
}

func (e *WrongStateError) Error() string {
	return fmt.Sprintf("%s was created in state %q but device is now in %q",
		e.Observer, e.CreationState, e.CurrentState)
}

// UnknownObserverError reports a (name, kind) pair with no factory available
// in the device's current state.
type UnknownObserverError struct {
	Name   string
	Kind   Kind
	State  string
	Device string
}

func (e *UnknownObserverError) Error() string {
	return fmt.Sprintf("device %s has no %s %q in state %q", e.Device, e.Kind, e.Name, e.State)
}
