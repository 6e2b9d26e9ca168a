// Package device models a remote endpoint reachable over a connection.
//
// A Device owns a connection, a state machine, and an observer registry.
// The state machine tracks which interaction state the device is in
// (connected, not connected, and any states added per instance); the
// registry maps (state, kind, name) to observer factories so callers ask
// the device for a command or event by name instead of constructing one
// by hand.
//
// Observers obtained from a device are pinned to the state they were
// created in: starting one after the device left that state fails with
// WrongStateError rather than sending a command the device can no longer
// handle.
package device
