// Package observer provides the future-like primitive at the heart of
// termprobe: a connection observer represents one in-flight asynchronous
// operation whose result is produced by consuming data pushed from a
// connection.
//
// Concrete observers embed Base (or Command, for operations that send a
// command line before reading output) and implement DataReceived, the only
// place allowed to set the terminal outcome. Callers interact with the
// future side: Start, Cancel, Result, AwaitDone.
//
// An observer's outcome is one-shot. Exactly one of SetResult, SetException
// or Cancel wins; the losers receive typed errors. Failures that nobody
// retrieves through Result are tracked in a FailureRegistry so that test
// harnesses can surface background errors at a well-defined boundary (see
// package testguard).
package observer
