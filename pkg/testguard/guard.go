package testguard

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/termprobe/termprobe-go/pkg/log"
	"github.com/termprobe/termprobe-go/pkg/observer"
)

// ErrMissingStepsEnd is reported by Run when step-end checking is enabled
// and the body never called StepsEnd.
var ErrMissingStepsEnd = errors.New("test body finished without reaching StepsEnd")

// BackgroundFailuresError aggregates observer failures that no Result or
// AwaitDone call ever surfaced.
type BackgroundFailuresError struct {
	Failures []observer.Failure
}

func (e *BackgroundFailuresError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d background failure(s):", len(e.Failures))
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n  %s: %v", f.Context, f.Err)
	}
	return b.String()
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *BackgroundFailuresError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Guard wraps a test body and drains the failure registry when it exits.
type Guard struct {
	registry      *observer.FailureRegistry
	logger        log.Logger
	checkStepsEnd bool
	stepsEnded    atomic.Bool
}

// Option customizes a Guard.
type Option func(*Guard)

// WithRegistry drains reg instead of the process-wide observer.Unraised.
func WithRegistry(reg *observer.FailureRegistry) Option {
	return func(g *Guard) { g.registry = reg }
}

// WithStepsEnd makes Run fail unless the body called StepsEnd, catching
// tests that returned early.
func WithStepsEnd() Option {
	return func(g *Guard) { g.checkStepsEnd = true }
}

// WithLogger attaches a session event logger.
func WithLogger(l log.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// New creates a guard draining observer.Unraised unless overridden.
func New(opts ...Option) *Guard {
	g := &Guard{registry: observer.Unraised}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = log.OrNoop(g.logger)
	return g
}

// Run executes fn and folds any recorded background failures into its
// error. A panic in fn still drains the registry before propagating.
func (g *Guard) Run(fn func() error) error {
	var bodyErr error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				g.drain()
				panic(rec)
			}
		}()
		bodyErr = fn()
	}()

	errs := []error{bodyErr}
	if g.checkStepsEnd && !g.stepsEnded.Load() {
		errs = append(errs, ErrMissingStepsEnd)
	}
	if background := g.drain(); background != nil {
		errs = append(errs, background)
	}
	return errors.Join(errs...)
}

// StepsEnd marks that the body reached its final step.
func (g *Guard) StepsEnd() {
	g.stepsEnded.Store(true)
	g.Info("all steps done")
}

// Info logs a test-progress message.
func (g *Guard) Info(msg string) {
	g.logger.Log(log.Event{
		Timestamp: time.Now(),
		Device:    "testguard",
		Category:  log.CategoryData,
		Data:      []byte(msg),
	})
}

// Error reports a test failure. The failure is always recorded, so it
// surfaces through Run even when the body discards the return value. With
// raise the error is additionally returned for the caller to propagate; a
// body that does both reports the failure twice.
func (g *Guard) Error(msg string, raise bool) error {
	err := errors.New(msg)
	g.logger.Log(log.ErrorLogEvent("testguard", err))
	g.registry.Record("testguard: "+msg, err)
	if raise {
		return err
	}
	return nil
}

func (g *Guard) drain() error {
	failures := g.registry.Drain()
	if len(failures) == 0 {
		return nil
	}
	for _, f := range failures {
		g.logger.Log(log.ErrorLogEvent(f.Context, f.Err))
	}
	return &BackgroundFailuresError{Failures: failures}
}
