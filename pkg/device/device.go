package device

import (
	"fmt"
	"sync"

	"github.com/termprobe/termprobe-go/pkg/connection"
	"github.com/termprobe/termprobe-go/pkg/log"
	"github.com/termprobe/termprobe-go/pkg/observer"
	"github.com/termprobe/termprobe-go/pkg/runner"
)

// Device binds a connection, a state machine, and an observer registry.
type Device struct {
	name   string
	conn   connection.Connection
	sm     *StateMachine
	reg    *Registry
	run    runner.Runner
	ownRun bool
	logger log.Logger

	closeOnce   sync.Once
	unsubs      []func()
	extraStates []string
	extraTrans  []Transition
	sources     []Source
}

// Option customizes a Device before it opens its connection.
type Option func(*Device)

// WithName sets the device's display name. Defaults to the connection's
// String().
func WithName(name string) Option {
	return func(d *Device) { d.name = name }
}

// WithStates adds states beyond the base CONNECTED/NOT_CONNECTED pair.
func WithStates(states ...string) Option {
	return func(d *Device) { d.extraStates = append(d.extraStates, states...) }
}

// WithTransitions adds transitions beyond the base goto pair.
func WithTransitions(transitions ...Transition) Option {
	return func(d *Device) { d.extraTrans = append(d.extraTrans, transitions...) }
}

// WithSources loads observer registrations from the given sources.
func WithSources(sources ...Source) Option {
	return func(d *Device) { d.sources = append(d.sources, sources...) }
}

// WithRunner uses run instead of a device-owned GoroutineRunner. The caller
// keeps ownership; Close will not shut it down.
func WithRunner(run runner.Runner) Option {
	return func(d *Device) {
		d.run = run
		d.ownRun = false
	}
}

// WithLogger attaches a session event logger.
func WithLogger(l log.Logger) Option {
	return func(d *Device) { d.logger = l }
}

// New opens conn and returns a device tracking its connectivity. The device
// starts in NOT_CONNECTED and moves to CONNECTED once the connection
// reports up.
func New(conn connection.Connection, opts ...Option) (*Device, error) {
	d := &Device{
		conn:   conn,
		ownRun: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.name == "" {
		d.name = conn.String()
	}
	d.logger = log.OrNoop(d.logger)
	if d.run == nil {
		d.run = runner.NewGoroutineRunner(runner.WithLogger(d.logger))
	}

	states := append(BaseStates(), d.extraStates...)
	transitions := append(BaseTransitions(), d.extraTrans...)
	d.sm = NewStateMachine(StateNotConnected, states, transitions)
	d.sm.OnChange(func(prev, next string) {
		d.logger.Log(log.StateEvent(d.name, prev, next))
	})

	d.reg = NewRegistry()
	d.reg.Load(states, d.sources...)

	// Connectivity callbacks force states so a redial or a drop is
	// reflected even when no goto path exists.
	d.unsubs = append(d.unsubs,
		conn.SubscribeOnConnect(func() { d.sm.Force(StateConnected) }),
		conn.SubscribeOnDisconnect(func() { d.sm.Force(StateNotConnected) }),
	)

	if err := conn.Open(); err != nil {
		for _, unsub := range d.unsubs {
			unsub()
		}
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}
	return d, nil
}

// Name returns the device's display name.
func (d *Device) Name() string { return d.name }

// Connection returns the device's connection.
func (d *Device) Connection() connection.Connection { return d.conn }

// CurrentState returns the state machine's current state.
func (d *Device) CurrentState() string { return d.sm.Current() }

// StateMachine exposes the device's state machine for hook registration.
func (d *Device) StateMachine() *StateMachine { return d.sm }

// Registry exposes the device's observer registry.
func (d *Device) Registry() *Registry { return d.reg }

// GotoState drives the state machine to state via its goto trigger.
func (d *Device) GotoState(state string) error {
	return d.sm.Goto(state)
}

// Close shuts down the device's runner (when device-owned), drops the
// connectivity subscriptions, and closes the connection. Safe to call more
// than once.
func (d *Device) Close() error {
	var err error
	d.closeOnce.Do(func() {
		if d.ownRun {
			d.run.Shutdown()
		}
		for _, unsub := range d.unsubs {
			unsub()
		}
		err = d.conn.Close()
	})
	return err
}

// GetCommand builds the command registered under name for the current
// state. With checkState the returned command is pinned: starting it after
// the device leaves this state fails with WrongStateError.
func (d *Device) GetCommand(name string, args Args, checkState bool) (observer.Observer, error) {
	return d.build(KindCommand, name, args, checkState)
}

// GetEvent builds the event registered under name for the current state,
// pinned like GetCommand.
func (d *Device) GetEvent(name string, args Args, checkState bool) (observer.Observer, error) {
	return d.build(KindEvent, name, args, checkState)
}

func (d *Device) build(kind Kind, name string, args Args, checkState bool) (observer.Observer, error) {
	state := d.sm.Current()
	factory, ok := d.reg.Lookup(state, kind, name)
	if !ok {
		return nil, &UnknownObserverError{Name: name, Kind: kind, State: state, Device: d.name}
	}
	obs, err := factory(d.conn, args)
	if err != nil {
		return nil, fmt.Errorf("build %s %q: %w", kind, name, err)
	}
	if checkState {
		obs = &pinned{Observer: obs, device: d, creationState: state}
	}
	return obs, nil
}

// Start builds the named command, submits it, and returns it still running.
func (d *Device) Start(name string, args Args) (observer.Observer, error) {
	cmd, err := d.GetCommand(name, args, true)
	if err != nil {
		return nil, err
	}
	if err := d.run.Submit(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

// Run builds the named command, submits it, and waits for its outcome.
func (d *Device) Run(name string, args Args) (any, error) {
	cmd, err := d.Start(name, args)
	if err != nil {
		return nil, err
	}
	return cmd.AwaitDone(0)
}

// StartEvent builds the named event, submits it, and returns it running.
func (d *Device) StartEvent(name string, args Args) (observer.Observer, error) {
	ev, err := d.GetEvent(name, args, true)
	if err != nil {
		return nil, err
	}
	if err := d.run.Submit(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// pinned wraps an observer so Start verifies the device is still in the
// state the observer was created in.
type pinned struct {
	observer.Observer
	device        *Device
	creationState string
}

func (p *pinned) Start() error {
	current := p.device.sm.Current()
	if current != p.creationState {
		return &WrongStateError{
			Observer:      p.Observer.String(),
			CreationState: p.creationState,
			CurrentState:  current,
		}
	}
	return p.Observer.Start()
}

var _ observer.Observer = (*pinned)(nil)
