package device

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termprobe/termprobe-go/pkg/connection"
	"github.com/termprobe/termprobe-go/pkg/observer"
)

// echoCmd completes with the first line received after start.
type echoCmd struct {
	observer.Base
}

func (c *echoCmd) DataReceived(data []byte) error {
	if c.Done() {
		return nil
	}
	return c.SetResult(strings.TrimRight(string(data), "\n"))
}

type testSource struct{}

func (testSource) Entries(state string, kind Kind) []Entry {
	if state != StateConnected || kind != KindCommand {
		return nil
	}
	return []Entry{{
		Name: "echo",
		Kind: KindCommand,
		Factory: func(conn observer.Connection, args Args) (observer.Observer, error) {
			return &echoCmd{Base: observer.NewBase("echo", conn)}, nil
		},
	}}
}

func newTestDevice(t *testing.T, opts ...Option) (*Device, *connection.Memory) {
	t.Helper()
	conn := connection.NewMemory(t.Name())
	d, err := New(conn, append([]Option{WithSources(testSource{})}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d, conn
}

func TestNewDeviceReachesConnected(t *testing.T) {
	d, _ := newTestDevice(t)
	assert.Equal(t, StateConnected, d.CurrentState())
}

func TestGotoSameStateIsNoop(t *testing.T) {
	d, _ := newTestDevice(t)
	require.NoError(t, d.GotoState(StateConnected))
	assert.Equal(t, StateConnected, d.CurrentState())
}

func TestGotoUnknownStateFails(t *testing.T) {
	d, _ := newTestDevice(t)

	err := d.GotoState("MOONBASE")
	var invalid *InvalidStateRequestedError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "MOONBASE", invalid.Requested)
	assert.Equal(t, StateConnected, invalid.Current)
	assert.Contains(t, invalid.States, StateNotConnected)
}

func TestGotoBetweenBaseStates(t *testing.T) {
	d, _ := newTestDevice(t)

	require.NoError(t, d.GotoState(StateNotConnected))
	assert.Equal(t, StateNotConnected, d.CurrentState())

	require.NoError(t, d.GotoState(StateConnected))
	assert.Equal(t, StateConnected, d.CurrentState())
}

func TestCustomStateAndTransition(t *testing.T) {
	const stateShell = "REMOTE_SHELL"
	d, _ := newTestDevice(t,
		WithStates(stateShell),
		WithTransitions(
			Transition{Trigger: GotoTrigger(stateShell), Sources: []string{StateConnected}, Target: stateShell},
			Transition{Trigger: GotoTrigger(StateConnected), Sources: []string{stateShell}, Target: StateConnected},
		),
	)

	require.NoError(t, d.GotoState(stateShell))
	assert.Equal(t, stateShell, d.CurrentState())

	// No path from REMOTE_SHELL to NOT_CONNECTED was declared.
	err := d.GotoState(StateNotConnected)
	var invalid *InvalidStateRequestedError
	require.ErrorAs(t, err, &invalid)

	require.NoError(t, d.GotoState(StateConnected))
}

func TestDisconnectForcesNotConnected(t *testing.T) {
	d, conn := newTestDevice(t)
	require.NoError(t, conn.Close())
	assert.Equal(t, StateNotConnected, d.CurrentState())
}

func TestStateChangeHooksFire(t *testing.T) {
	d, _ := newTestDevice(t)

	var entered, exited, changed []string
	d.StateMachine().OnEnter(StateNotConnected, func(prev string) {
		entered = append(entered, prev)
	})
	d.StateMachine().OnExit(StateConnected, func(next string) {
		exited = append(exited, next)
	})
	d.StateMachine().OnChange(func(prev, next string) {
		changed = append(changed, prev+"->"+next)
	})

	require.NoError(t, d.GotoState(StateNotConnected))
	assert.Equal(t, []string{StateConnected}, entered)
	assert.Equal(t, []string{StateNotConnected}, exited)
	assert.Equal(t, []string{"CONNECTED->NOT_CONNECTED"}, changed)
}

func TestGetCommandUnknownName(t *testing.T) {
	d, _ := newTestDevice(t)

	_, err := d.GetCommand("reboot", nil, true)
	var unknown *UnknownObserverError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "reboot", unknown.Name)
	assert.Equal(t, KindCommand, unknown.Kind)
}

func TestCommandUnavailableOutsideItsState(t *testing.T) {
	d, _ := newTestDevice(t)
	require.NoError(t, d.GotoState(StateNotConnected))

	_, err := d.GetCommand("echo", nil, true)
	var unknown *UnknownObserverError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, StateNotConnected, unknown.State)
}

func TestPinnedCommandFailsAfterStateChange(t *testing.T) {
	d, _ := newTestDevice(t)

	cmd, err := d.GetCommand("echo", nil, true)
	require.NoError(t, err)

	require.NoError(t, d.GotoState(StateNotConnected))

	err = cmd.Start()
	var wrong *WrongStateError
	require.ErrorAs(t, err, &wrong)
	assert.Equal(t, StateConnected, wrong.CreationState)
	assert.Equal(t, StateNotConnected, wrong.CurrentState)
}

func TestUnpinnedCommandIgnoresStateChange(t *testing.T) {
	d, _ := newTestDevice(t)

	cmd, err := d.GetCommand("echo", nil, false)
	require.NoError(t, err)

	require.NoError(t, d.GotoState(StateNotConnected))
	assert.NoError(t, cmd.Start())
}

func TestRunCompletesFromConnectionData(t *testing.T) {
	d, conn := newTestDevice(t)

	done := make(chan struct{})
	var result any
	var runErr error
	go func() {
		defer close(done)
		result, runErr = d.Run("echo", nil)
	}()

	// Inject until the command (subscribed by Run) picks a line up.
	require.Eventually(t, func() bool {
		_ = conn.Inject([]byte("pong\n"))
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, runErr)
	assert.Equal(t, "pong", result)
}

func TestStartReturnsRunningObserver(t *testing.T) {
	d, conn := newTestDevice(t)

	cmd, err := d.Start("echo", nil)
	require.NoError(t, err)
	assert.True(t, cmd.Running())

	require.NoError(t, conn.Inject([]byte("pong\n")))
	got, err := cmd.AwaitDone(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "pong", got)
}

func TestCloseIsIdempotent(t *testing.T) {
	conn := connection.NewMemory(t.Name())
	d, err := New(conn, WithSources(testSource{}))
	require.NoError(t, err)

	require.NoError(t, d.Close())
	assert.NoError(t, d.Close())
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	reg := NewRegistry()
	first := func(conn observer.Connection, args Args) (observer.Observer, error) {
		return nil, errors.New("first")
	}
	second := func(conn observer.Connection, args Args) (observer.Observer, error) {
		return nil, errors.New("second")
	}
	reg.Register(StateConnected, KindCommand, "echo", first)
	reg.Register(StateConnected, KindCommand, "echo", second)

	f, ok := reg.Lookup(StateConnected, KindCommand, "echo")
	require.True(t, ok)
	_, err := f(nil, nil)
	assert.EqualError(t, err, "second")
}

func TestArgsString(t *testing.T) {
	args := Args{"path": "/home/greg", "count": 3}
	assert.Equal(t, "/home/greg", args.String("path", "."))
	assert.Equal(t, ".", args.String("missing", "."))
	assert.Equal(t, ".", args.String("count", "."))
}
