package device

import (
	"sync"

	"github.com/termprobe/termprobe-go/pkg/observer"
)

// Kind distinguishes the two observer families a device can create.
type Kind uint8

const (
	KindCommand Kind = iota
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Args carries named construction parameters for an observer factory.
type Args map[string]any

// String returns args[key] as a string, or def when absent or mistyped.
func (a Args) String(key, def string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return def
}

// Factory builds an observer bound to conn from args.
type Factory func(conn observer.Connection, args Args) (observer.Observer, error)

// Entry is one (name, kind) registration a Source offers for a state.
type Entry struct {
	Name    string
	Kind    Kind
	Factory Factory
}

// Source supplies observer registrations per device state. Implementations
// live next to the observers they register, e.g. a package of unix commands.
type Source interface {
	Entries(state string, kind Kind) []Entry
}

type registryKey struct {
	state string
	kind  Kind
	name  string
}

// Registry maps (state, kind, name) to factories. Registration order
// matters: a later registration for the same key replaces the earlier one.
type Registry struct {
	mu      sync.RWMutex
	entries map[registryKey]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[registryKey]Factory)}
}

// Register binds factory to (state, kind, name), replacing any previous
// binding for the same key.
func (r *Registry) Register(state string, kind Kind, name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[registryKey{state: state, kind: kind, name: name}] = factory
}

// Load registers every entry each source offers for each of states.
func (r *Registry) Load(states []string, sources ...Source) {
	for _, src := range sources {
		for _, state := range states {
			for _, kind := range []Kind{KindCommand, KindEvent} {
				for _, e := range src.Entries(state, kind) {
					r.Register(state, e.Kind, e.Name, e.Factory)
				}
			}
		}
	}
}

// Lookup returns the factory bound to (state, kind, name).
func (r *Registry) Lookup(state string, kind Kind, name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.entries[registryKey{state: state, kind: kind, name: name}]
	return f, ok
}
