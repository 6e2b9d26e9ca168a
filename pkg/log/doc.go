// Package log defines the session event log used across termprobe.
//
// Components emit Event values describing what happened on a connection:
// raw data in or out, device state changes, observer outcomes and errors.
// Applications plug in a Logger implementation: NoopLogger to disable
// logging, SlogAdapter for console debugging via log/slog, or Capture for
// compact CBOR capture files readable with Reader. Tee combines several
// sinks into one.
//
// Events are plain data. Loggers must tolerate concurrent callers.
package log
