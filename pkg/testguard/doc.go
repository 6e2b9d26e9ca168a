// Package testguard surfaces background observer failures inside tests.
//
// Observers fail asynchronously: an exception set on a goroutine nobody
// awaits would otherwise vanish. A Guard wraps a test body and, when the
// body returns, drains the failure registry and folds anything recorded
// there into the body's error.
package testguard
