package device

import (
	"sort"
	"strings"
	"sync"
)

// Base device states. Per-instance configuration may add more.
const (
	StateNotConnected = "NOT_CONNECTED"
	StateConnected    = "CONNECTED"
)

// GotoTrigger names the trigger that moves the machine into state.
func GotoTrigger(state string) string {
	return "GOTO_" + strings.ToUpper(state)
}

// Transition declares that trigger moves the machine from any state in
// Sources to Target. An empty Sources slice allows the trigger from every
// state.
type Transition struct {
	Trigger string
	Sources []string
	Target  string
}

// BaseStates returns the states every device starts with.
func BaseStates() []string {
	return []string{StateNotConnected, StateConnected}
}

// BaseTransitions returns the goto triggers between the base states.
func BaseTransitions() []Transition {
	return []Transition{
		{Trigger: GotoTrigger(StateConnected), Sources: []string{StateNotConnected}, Target: StateConnected},
		{Trigger: GotoTrigger(StateNotConnected), Sources: []string{StateConnected}, Target: StateNotConnected},
	}
}

// StateMachine is an explicit-table state machine. Each instance carries its
// own states and transitions; nothing is shared between machines.
type StateMachine struct {
	mu          sync.Mutex
	current     string
	states      map[string]struct{}
	transitions map[string]map[string]string // trigger -> source -> target
	onEnter     map[string][]func(prev string)
	onExit      map[string][]func(next string)
	onChange    []func(prev, next string)
}

// NewStateMachine builds a machine starting in initial. The initial state is
// added to states if missing.
func NewStateMachine(initial string, states []string, transitions []Transition) *StateMachine {
	m := &StateMachine{
		current:     initial,
		states:      make(map[string]struct{}, len(states)+1),
		transitions: make(map[string]map[string]string),
		onEnter:     make(map[string][]func(string)),
		onExit:      make(map[string][]func(string)),
	}
	m.states[initial] = struct{}{}
	for _, s := range states {
		m.states[s] = struct{}{}
	}
	for _, t := range transitions {
		m.addTransitionLocked(t)
	}
	return m
}

func (m *StateMachine) addTransitionLocked(t Transition) {
	bySource, ok := m.transitions[t.Trigger]
	if !ok {
		bySource = make(map[string]string)
		m.transitions[t.Trigger] = bySource
	}
	if len(t.Sources) == 0 {
		bySource["*"] = t.Target
		return
	}
	for _, src := range t.Sources {
		bySource[src] = t.Target
	}
}

// AddTransition registers an additional transition on a live machine.
func (m *StateMachine) AddTransition(t Transition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[t.Target] = struct{}{}
	for _, src := range t.Sources {
		m.states[src] = struct{}{}
	}
	m.addTransitionLocked(t)
}

// Current returns the machine's current state.
func (m *StateMachine) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// States returns the known states, sorted.
func (m *StateMachine) States() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statesLocked()
}

func (m *StateMachine) statesLocked() []string {
	out := make([]string, 0, len(m.states))
	for s := range m.states {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Goto fires the goto trigger for state. Requesting the current state is a
// no-op; requesting a state with no matching transition fails with
// InvalidStateRequestedError.
func (m *StateMachine) Goto(state string) error {
	m.mu.Lock()
	prev := m.current
	if state == prev {
		m.mu.Unlock()
		return nil
	}
	bySource := m.transitions[GotoTrigger(state)]
	target, ok := bySource[prev]
	if !ok {
		target, ok = bySource["*"]
	}
	if !ok {
		err := &InvalidStateRequestedError{
			Requested: state,
			Current:   prev,
			States:    m.statesLocked(),
		}
		m.mu.Unlock()
		return err
	}
	m.moveLocked(target)
	return nil
}

// Force sets the machine to state regardless of transitions, adding the
// state if unknown. Forcing the current state is a no-op and fires no hooks.
func (m *StateMachine) Force(state string) {
	m.mu.Lock()
	m.states[state] = struct{}{}
	if state == m.current {
		m.mu.Unlock()
		return
	}
	m.moveLocked(state)
}

// moveLocked transitions to target and invokes hooks with the lock released.
// Callers must hold m.mu; it is unlocked on return.
func (m *StateMachine) moveLocked(target string) {
	prev := m.current
	m.current = target
	exits := append(([]func(string))(nil), m.onExit[prev]...)
	enters := append(([]func(string))(nil), m.onEnter[target]...)
	changes := append(([]func(string, string))(nil), m.onChange...)
	m.mu.Unlock()

	for _, fn := range exits {
		fn(target)
	}
	for _, fn := range enters {
		fn(prev)
	}
	for _, fn := range changes {
		fn(prev, target)
	}
}

// OnEnter registers fn to run after the machine enters state.
func (m *StateMachine) OnEnter(state string, fn func(prev string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEnter[state] = append(m.onEnter[state], fn)
}

// OnExit registers fn to run after the machine leaves state.
func (m *StateMachine) OnExit(state string, fn func(next string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExit[state] = append(m.onExit[state], fn)
}

// OnChange registers fn to run after every state change.
func (m *StateMachine) OnChange(fn func(prev, next string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}
