package runner

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/termprobe/termprobe-go/pkg/connection"
	"github.com/termprobe/termprobe-go/pkg/observer"
)

// firstLine completes with the first line of data it receives.
type firstLine struct {
	observer.Base
}

func newFirstLine(conn observer.Connection) *firstLine {
	return &firstLine{Base: observer.NewBaseWithRegistry("FirstLine", conn, observer.NewFailureRegistry())}
}

func (o *firstLine) DataReceived(data []byte) error {
	if o.Done() {
		return nil
	}
	line := strings.TrimRight(string(data), "\n")
	return o.SetResult(line)
}

// collector records every delivery in order and never completes by itself.
type collector struct {
	observer.Base
	seen chan string
}

func newCollector(conn observer.Connection) *collector {
	return &collector{
		Base: observer.NewBaseWithRegistry("Collector", conn, observer.NewFailureRegistry()),
		seen: make(chan string, 64),
	}
}

func (o *collector) DataReceived(data []byte) error {
	o.seen <- string(data)
	return nil
}

// faulty fails on the first delivery.
type faulty struct {
	observer.Base
	panics bool
}

func newFaulty(conn observer.Connection, panics bool) *faulty {
	return &faulty{
		Base:   observer.NewBaseWithRegistry("Faulty", conn, observer.NewFailureRegistry()),
		panics: panics,
	}
}

func (o *faulty) DataReceived(data []byte) error {
	if o.panics {
		panic("unexpected device output")
	}
	return errors.New("cannot parse device output")
}

func openMemory(t *testing.T) *connection.Memory {
	t.Helper()
	m := connection.NewMemory(t.Name())
	if err := m.Open(); err != nil {
		t.Fatalf("Open() = %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestSubmitDeliversUntilResult(t *testing.T) {
	conn := openMemory(t)
	r := NewGoroutineRunner()
	defer r.Shutdown()

	obs := newFirstLine(conn)
	if err := r.Submit(obs); err != nil {
		t.Fatalf("Submit() = %v", err)
	}
	if !obs.Running() {
		t.Fatal("observer not running after Submit")
	}

	if err := conn.InjectLines("7538128    /home/greg", "user@host:~$"); err != nil {
		t.Fatalf("InjectLines() = %v", err)
	}

	got, err := obs.AwaitDone(2 * time.Second)
	if err != nil {
		t.Fatalf("AwaitDone() = %v", err)
	}
	if got != "7538128    /home/greg" {
		t.Fatalf("result = %q, want first line", got)
	}
}

func TestDeliveryPreservesConnectionOrder(t *testing.T) {
	conn := openMemory(t)
	r := NewGoroutineRunner()
	defer r.Shutdown()

	obs := newCollector(conn)
	if err := r.Submit(obs); err != nil {
		t.Fatalf("Submit() = %v", err)
	}

	const n = 50
	for i := 0; i < n; i++ {
		if err := conn.Inject([]byte(fmt.Sprintf("line-%d\n", i))); err != nil {
			t.Fatalf("Inject() = %v", err)
		}
	}

	for i := 0; i < n; i++ {
		select {
		case got := <-obs.seen:
			want := fmt.Sprintf("line-%d\n", i)
			if got != want {
				t.Fatalf("delivery %d = %q, want %q", i, got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("delivery %d never arrived", i)
		}
	}
}

func TestDataReceivedErrorBecomesException(t *testing.T) {
	conn := openMemory(t)
	r := NewGoroutineRunner()
	defer r.Shutdown()

	obs := newFaulty(conn, false)
	if err := r.Submit(obs); err != nil {
		t.Fatalf("Submit() = %v", err)
	}
	if err := conn.Inject([]byte("garbage\n")); err != nil {
		t.Fatalf("Inject() = %v", err)
	}

	_, err := obs.AwaitDone(2 * time.Second)
	if err == nil || !strings.Contains(err.Error(), "cannot parse device output") {
		t.Fatalf("AwaitDone() = %v, want parse failure", err)
	}
}

func TestDataReceivedPanicBecomesException(t *testing.T) {
	conn := openMemory(t)
	r := NewGoroutineRunner()
	defer r.Shutdown()

	obs := newFaulty(conn, true)
	if err := r.Submit(obs); err != nil {
		t.Fatalf("Submit() = %v", err)
	}
	if err := conn.Inject([]byte("garbage\n")); err != nil {
		t.Fatalf("Inject() = %v", err)
	}

	_, err := obs.AwaitDone(2 * time.Second)
	if err == nil || !strings.Contains(err.Error(), "data consumption panic") {
		t.Fatalf("AwaitDone() = %v, want panic conversion", err)
	}
}

func TestDisconnectFailsPendingObserver(t *testing.T) {
	conn := openMemory(t)
	r := NewGoroutineRunner()
	defer r.Shutdown()

	obs := newCollector(conn)
	if err := r.Submit(obs); err != nil {
		t.Fatalf("Submit() = %v", err)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	_, err := obs.AwaitDone(2 * time.Second)
	if !errors.Is(err, ErrConnectionDropped) {
		t.Fatalf("AwaitDone() = %v, want ErrConnectionDropped", err)
	}
}

func TestCompletedObserverIsNotFailedByDisconnect(t *testing.T) {
	conn := openMemory(t)
	r := NewGoroutineRunner()
	defer r.Shutdown()

	obs := newFirstLine(conn)
	if err := r.Submit(obs); err != nil {
		t.Fatalf("Submit() = %v", err)
	}
	if err := conn.Inject([]byte("done\n")); err != nil {
		t.Fatalf("Inject() = %v", err)
	}
	if _, err := obs.AwaitDone(2 * time.Second); err != nil {
		t.Fatalf("AwaitDone() = %v", err)
	}

	_ = conn.Close()
	if got, err := obs.Result(); err != nil || got != "done" {
		t.Fatalf("Result() after disconnect = %v, %v; want done, nil", got, err)
	}
}

func TestShutdownCancelsPendingObservers(t *testing.T) {
	conn := openMemory(t)
	r := NewGoroutineRunner()

	obs := newCollector(conn)
	if err := r.Submit(obs); err != nil {
		t.Fatalf("Submit() = %v", err)
	}

	r.Shutdown()
	if !obs.Cancelled() {
		t.Fatal("pending observer not cancelled by Shutdown")
	}
	if err := r.Submit(newCollector(conn)); !errors.Is(err, ErrRunnerClosed) {
		t.Fatalf("Submit() after Shutdown = %v, want ErrRunnerClosed", err)
	}
}

func TestSubmitRequiresSubscribableConnection(t *testing.T) {
	r := NewGoroutineRunner()
	defer r.Shutdown()

	obs := newCollector(nil)
	if err := r.Submit(obs); !errors.Is(err, ErrStreamUnsupported) {
		t.Fatalf("Submit() = %v, want ErrStreamUnsupported", err)
	}
}

func TestFailedStartAbortsSubmission(t *testing.T) {
	conn := openMemory(t)
	r := NewGoroutineRunner()
	defer r.Shutdown()

	obs := newCollector(conn)
	obs.Cancel()
	if err := r.Submit(obs); !errors.Is(err, observer.ErrObserverDone) {
		t.Fatalf("Submit() of done observer = %v, want ErrObserverDone", err)
	}
}
