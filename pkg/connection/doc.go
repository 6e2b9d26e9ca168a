// Package connection provides the byte-stream connections observers read
// from: an in-memory loopback for tests and simulated devices, a TCP
// transport with backoff-based redial, and an SSH transport built on
// golang.org/x/crypto/ssh.
//
// A Connection is a broadcast source: every data subscriber sees the full
// stream in the order the connection produced it. Connect and disconnect
// subscribers are notified on lifecycle edges; devices use those hooks to
// drive their state machines.
//
// Connections are owned by whoever opened them; observers hold only a
// non-owning reference. Callers must Close a connection they opened.
package connection
