package runner

import (
	"fmt"
	"sync"
	"time"

	"github.com/termprobe/termprobe-go/pkg/log"
	"github.com/termprobe/termprobe-go/pkg/observer"
)

// feedBacklog is the per-observer delivery queue depth. The queue preserves
// connection order; a full queue briefly blocks the connection's publish
// path rather than dropping data.
const feedBacklog = 128

// GoroutineRunner executes each submitted observer on its own goroutine.
type GoroutineRunner struct {
	logger log.Logger

	mu     sync.Mutex
	closed bool
	quit   chan struct{}
	wg     sync.WaitGroup
}

// GoroutineOption customizes a GoroutineRunner.
type GoroutineOption func(*GoroutineRunner)

// WithLogger attaches a session event logger.
func WithLogger(l log.Logger) GoroutineOption {
	return func(r *GoroutineRunner) { r.logger = l }
}

// NewGoroutineRunner creates a ready-to-use runner.
func NewGoroutineRunner(opts ...GoroutineOption) *GoroutineRunner {
	r := &GoroutineRunner{
		quit: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = log.OrNoop(r.logger)
	return r
}

// Submit starts obs and begins delivering its connection's data. The
// observer must have a subscribable connection attached.
func (r *GoroutineRunner) Submit(obs observer.Observer) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrRunnerClosed
	}

	stream, ok := obs.Connection().(Stream)
	if !ok {
		return ErrStreamUnsupported
	}

	feed := make(chan []byte, feedBacklog)
	unsubData := stream.Subscribe(func(data []byte) {
		buf := make([]byte, len(data))
		copy(buf, data)
		select {
		case feed <- buf:
		case <-obs.Completed():
		case <-r.quit:
		}
	})

	dropped := make(chan struct{})
	var dropOnce sync.Once
	unsubDrop := stream.SubscribeOnDisconnect(func() {
		dropOnce.Do(func() { close(dropped) })
	})

	// Start before any delivery; on failed preconditions nothing runs.
	if err := obs.Start(); err != nil {
		unsubData()
		unsubDrop()
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		unsubData()
		unsubDrop()
		obs.Cancel()
		return ErrRunnerClosed
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer unsubData()
		defer unsubDrop()
		r.drive(obs, feed, dropped)
	}()
	return nil
}

// Shutdown cancels pending observers and waits for delivery goroutines.
func (r *GoroutineRunner) Shutdown() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.quit)
	r.mu.Unlock()

	r.wg.Wait()
}

// drive delivers feed data to obs until it reaches a terminal outcome, the
// connection drops, or the runner shuts down.
func (r *GoroutineRunner) drive(obs observer.Observer, feed <-chan []byte, dropped <-chan struct{}) {
	defer r.logOutcome(obs)

	for {
		// Drain buffered data ahead of drop/quit signals so output that
		// already arrived can still complete the observer.
		select {
		case data := <-feed:
			if r.deliver(obs, data) {
				return
			}
			continue
		default:
		}

		select {
		case data := <-feed:
			if r.deliver(obs, data) {
				return
			}
		case <-obs.Completed():
			return
		case <-dropped:
			if !obs.Done() {
				_ = obs.SetException(fmt.Errorf("%w: %s", ErrConnectionDropped, obs))
			}
			return
		case <-r.quit:
			obs.Cancel()
			return
		}
	}
}

// deliver feeds one unit of data to obs, converting faults into the
// observer's terminal exception, and reports whether obs is now done.
func (r *GoroutineRunner) deliver(obs observer.Observer, data []byte) bool {
	r.logger.Log(log.Event{
		Timestamp: time.Now(),
		Observer:  obs.String(),
		Direction: log.DirectionIn,
		Category:  log.CategoryData,
		Data:      data,
	})

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				_ = obs.SetException(fmt.Errorf("data consumption panic: %v", rec))
			}
		}()
		if err := obs.DataReceived(data); err != nil {
			_ = obs.SetException(err)
		}
	}()

	return obs.Done()
}

// logOutcome records the observer's terminal outcome, if it reached one.
func (r *GoroutineRunner) logOutcome(obs observer.Observer) {
	out := obs.Outcome()
	if out == observer.OutcomePending {
		return
	}
	r.logger.Log(log.OutcomeLogEvent(obs.String(), out.String(), ""))
}

// Compile-time interface satisfaction check.
var _ Runner = (*GoroutineRunner)(nil)
