package observer

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// anyResponse completes on the first unit of data it sees.
type anyResponse struct {
	Base
}

func newAnyResponse(reg *FailureRegistry) *anyResponse {
	return &anyResponse{Base: NewBaseWithRegistry("AnyResponse", nil, reg)}
}

func (o *anyResponse) DataReceived(data []byte) error {
	if o.Done() {
		return nil
	}
	return o.SetResult(string(data))
}

// doNothing ignores all incoming data.
type doNothing struct {
	Base
}

func newDoNothing(reg *FailureRegistry) *doNothing {
	return &doNothing{Base: NewBaseWithRegistry("DoNothing", nil, reg)}
}

func (o *doNothing) DataReceived([]byte) error { return nil }

// fakeConn satisfies Connection for identity tests.
type fakeConn struct {
	name string
	sent [][]byte
}

func (c *fakeConn) Send(data []byte) error {
	c.sent = append(c.sent, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) String() string { return c.name }

func TestObserverLifecycle(t *testing.T) {
	t.Run("NotRunningUntilStart", func(t *testing.T) {
		obs := newDoNothing(nil)
		if obs.Running() {
			t.Fatal("fresh observer must not be running")
		}
		if err := obs.Start(); err != nil {
			t.Fatalf("Start() = %v", err)
		}
		if !obs.Running() {
			t.Fatal("started observer must be running")
		}
	})

	t.Run("NotRunningOnceDone", func(t *testing.T) {
		obs := newDoNothing(nil)
		if err := obs.Start(); err != nil {
			t.Fatalf("Start() = %v", err)
		}
		obs.Cancel()
		if obs.Running() {
			t.Fatal("terminal observer must not be running")
		}
	})

	t.Run("DoneMatchesEveryTerminalOutcome", func(t *testing.T) {
		complete := map[string]func(Observer){
			"result":    func(o Observer) { _ = o.SetResult(1) },
			"exception": func(o Observer) { _ = o.SetException(errors.New("boom")) },
			"cancel":    func(o Observer) { o.Cancel() },
		}
		for name, finish := range complete {
			obs := newDoNothing(nil)
			if obs.Done() {
				t.Fatalf("%s: fresh observer reported done", name)
			}
			finish(obs)
			if !obs.Done() {
				t.Fatalf("%s: terminal observer reported not done", name)
			}
		}
	})

	t.Run("StartAfterDone", func(t *testing.T) {
		obs := newDoNothing(nil)
		obs.Cancel()
		if err := obs.Start(); !errors.Is(err, ErrObserverDone) {
			t.Fatalf("Start() after cancel = %v, want ErrObserverDone", err)
		}
		if obs.Running() {
			t.Fatal("failed Start must not mark observer running")
		}
	})

	t.Run("ObservationsAreIdempotent", func(t *testing.T) {
		obs := newDoNothing(nil)
		for i := 0; i < 3; i++ {
			if obs.Done() || obs.Running() || obs.Cancelled() {
				t.Fatal("observations mutated state")
			}
		}
	})
}

func TestObserverResult(t *testing.T) {
	t.Run("ResultAfterSetResult", func(t *testing.T) {
		obs := newDoNothing(nil)
		if err := obs.SetResult(14361); err != nil {
			t.Fatalf("SetResult() = %v", err)
		}
		got, err := obs.Result()
		if err != nil {
			t.Fatalf("Result() = %v", err)
		}
		if got != 14361 {
			t.Fatalf("Result() = %v, want 14361", got)
		}
	})

	t.Run("SecondSetResultFails", func(t *testing.T) {
		obs := newDoNothing(nil)
		if err := obs.SetResult(14361); err != nil {
			t.Fatalf("first SetResult() = %v", err)
		}
		err := obs.SetResult(78990)
		var alreadySet *ResultAlreadySetError
		if !errors.As(err, &alreadySet) {
			t.Fatalf("second SetResult() = %v, want *ResultAlreadySetError", err)
		}
		if alreadySet.Observer != obs.String() {
			t.Fatalf("error identity = %q, want %q", alreadySet.Observer, obs.String())
		}
		if got, _ := obs.Result(); got != 14361 {
			t.Fatalf("Result() after failed overwrite = %v, want 14361", got)
		}
	})

	t.Run("ResultOnPendingFails", func(t *testing.T) {
		obs := newDoNothing(nil)
		_, err := obs.Result()
		var notYet *ResultNotAvailableYetError
		if !errors.As(err, &notYet) {
			t.Fatalf("Result() = %v, want *ResultNotAvailableYetError", err)
		}
	})

	t.Run("ResultOnCancelledFails", func(t *testing.T) {
		obs := newDoNothing(nil)
		obs.Cancel()
		_, err := obs.Result()
		var cancelled *NoResultSinceCancelError
		if !errors.As(err, &cancelled) {
			t.Fatalf("Result() = %v, want *NoResultSinceCancelError", err)
		}
	})

	t.Run("ResultReraisesException", func(t *testing.T) {
		obs := newDoNothing(nil)
		boom := errors.New("some error inside observer")
		if err := obs.SetException(boom); err != nil {
			t.Fatalf("SetException() = %v", err)
		}
		_, err := obs.Result()
		if !errors.Is(err, boom) {
			t.Fatalf("Result() = %v, want stored error", err)
		}
	})
}

func TestObserverCancel(t *testing.T) {
	t.Run("FirstCancelTakesEffect", func(t *testing.T) {
		obs := newDoNothing(nil)
		if !obs.Cancel() {
			t.Fatal("first Cancel() = false, want true")
		}
		if !obs.Cancelled() {
			t.Fatal("Cancelled() = false after cancel")
		}
	})

	t.Run("SecondCancelReportsFalse", func(t *testing.T) {
		obs := newDoNothing(nil)
		obs.Cancel()
		if obs.Cancel() {
			t.Fatal("second Cancel() = true, want false")
		}
	})

	t.Run("CancelAfterResultReportsFalse", func(t *testing.T) {
		obs := newDoNothing(nil)
		_ = obs.SetResult("kept")
		if obs.Cancel() {
			t.Fatal("Cancel() after result = true, want false")
		}
		if got, err := obs.Result(); err != nil || got != "kept" {
			t.Fatalf("Result() = %v, %v; want kept, nil", got, err)
		}
	})
}

func TestObserverConsumesDataToProduceResult(t *testing.T) {
	// Example output of 'du -s /home/greg' followed by the prompt. Only the
	// first line may become the result.
	obs := newAnyResponse(nil)
	for _, line := range []string{"7538128    /home/greg", "user@host:~$"} {
		if err := obs.DataReceived([]byte(line)); err != nil {
			t.Fatalf("DataReceived(%q) = %v", line, err)
		}
	}
	if !obs.Done() {
		t.Fatal("observer not done after consuming data")
	}
	got, err := obs.Result()
	if err != nil {
		t.Fatalf("Result() = %v", err)
	}
	if got != "7538128    /home/greg" {
		t.Fatalf("Result() = %q, want first line", got)
	}
}

func TestAwaitDone(t *testing.T) {
	t.Run("ImmediateWhenAlreadyDone", func(t *testing.T) {
		obs := newDoNothing(nil)
		_ = obs.SetResult(42)
		begin := time.Now()
		got, err := obs.AwaitDone(5 * time.Second)
		if err != nil || got != 42 {
			t.Fatalf("AwaitDone() = %v, %v; want 42, nil", got, err)
		}
		if elapsed := time.Since(begin); elapsed > 100*time.Millisecond {
			t.Fatalf("AwaitDone on done observer took %v", elapsed)
		}
	})

	t.Run("TimeoutDoesNotCancel", func(t *testing.T) {
		obs := newDoNothing(nil)
		_, err := obs.AwaitDone(20 * time.Millisecond)
		var timeout *TimeoutError
		if !errors.As(err, &timeout) {
			t.Fatalf("AwaitDone() = %v, want *TimeoutError", err)
		}
		if obs.Done() || obs.Cancelled() {
			t.Fatal("timeout must not finish the observer")
		}
		// The observer may still complete later.
		_ = obs.SetResult("late")
		if got, err := obs.Result(); err != nil || got != "late" {
			t.Fatalf("Result() after late completion = %v, %v", got, err)
		}
	})

	t.Run("UnblocksOnCompletionFromAnotherGoroutine", func(t *testing.T) {
		obs := newDoNothing(nil)
		go func() {
			time.Sleep(10 * time.Millisecond)
			_ = obs.SetResult("bg")
		}()
		got, err := obs.AwaitDone(2 * time.Second)
		if err != nil || got != "bg" {
			t.Fatalf("AwaitDone() = %v, %v; want bg, nil", got, err)
		}
	})
}

func TestOutcomeRaceHasExactlyOneWinner(t *testing.T) {
	const writers = 32

	obs := newDoNothing(NewFailureRegistry())
	var wg sync.WaitGroup
	wins := make(chan string, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 3 {
			case 0:
				if obs.SetResult(i) == nil {
					wins <- "result"
				}
			case 1:
				if obs.SetException(fmt.Errorf("race %d", i)) == nil {
					wins <- "exception"
				}
			default:
				if obs.Cancel() {
					wins <- "cancel"
				}
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []string
	for w := range wins {
		winners = append(winners, w)
	}
	if len(winners) != 1 {
		t.Fatalf("terminal-outcome winners = %v, want exactly one", winners)
	}
	if !obs.Done() {
		t.Fatal("observer not done after racing writers")
	}
}

func TestStringIdentity(t *testing.T) {
	obs := newDoNothing(nil)

	want := fmt.Sprintf("DoNothing(id:%s)", obs.ID())
	if obs.String() != want {
		t.Fatalf("String() = %q, want %q", obs.String(), want)
	}

	wantBare := fmt.Sprintf("DoNothing(id:%s, using <NO CONNECTION>)", obs.ID())
	if got := fmt.Sprintf("%#v", obs); got != wantBare {
		t.Fatalf("GoString() = %q, want %q", got, wantBare)
	}

	obs.SetConnection(&fakeConn{name: "ssh(127.0.0.1:22)"})
	wantConn := fmt.Sprintf("DoNothing(id:%s, using ssh(127.0.0.1:22))", obs.ID())
	if got := obs.GoString(); got != wantConn {
		t.Fatalf("GoString() = %q, want %q", got, wantConn)
	}
}

func TestCommandSendsOnStart(t *testing.T) {
	conn := &fakeConn{name: "memory(test)"}
	cmd := &struct{ Command }{Command: NewCommand("Echo", "echo hi", conn)}

	if err := cmd.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if len(conn.sent) != 1 || string(conn.sent[0]) != "echo hi\n" {
		t.Fatalf("sent = %q, want [\"echo hi\\n\"]", conn.sent)
	}
	if !cmd.Running() {
		t.Fatal("command not running after Start")
	}

	// Repeated Start must not resend the command line.
	if err := cmd.Start(); err != nil {
		t.Fatalf("second Start() = %v", err)
	}
	if len(conn.sent) != 1 {
		t.Fatalf("command resent on second Start: %q", conn.sent)
	}
}

func TestCommandStartPreconditions(t *testing.T) {
	noConn := &struct{ Command }{Command: NewCommand("Echo", "echo hi", nil)}
	if err := noConn.Start(); !errors.Is(err, ErrNoConnection) {
		t.Fatalf("Start() without connection = %v, want ErrNoConnection", err)
	}

	noString := &struct{ Command }{Command: NewCommand("Echo", "", &fakeConn{})}
	if err := noString.Start(); !errors.Is(err, ErrNoCommandString) {
		t.Fatalf("Start() without command string = %v, want ErrNoCommandString", err)
	}
}
