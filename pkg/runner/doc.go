// Package runner executes observer lifecycles against connections.
//
// A Runner takes a started-or-startable observer, subscribes it to its
// connection, delivers the connection's data stream to DataReceived in
// production order, and stops promptly once the observer reaches a terminal
// outcome. Faults raised inside data consumption never escape: they are
// converted into the observer's terminal exception so delivery to other
// observers is unaffected.
//
// GoroutineRunner is the standard backend: one goroutine per submitted
// observer, so delivery is serialized per observer while independent
// observers proceed concurrently.
package runner
