package connection

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process loopback connection used by tests and simulated
// devices. Remote output is injected with Inject; data written with Send is
// recorded and, when echo is enabled, published back to subscribers the way
// a terminal would echo input.
type Memory struct {
	bus

	id   string
	name string
	echo bool

	mu   sync.Mutex
	open bool
	sent [][]byte
}

// MemoryOption customizes a Memory connection.
type MemoryOption func(*Memory)

// WithEcho makes Send publish the written bytes back to data subscribers.
func WithEcho() MemoryOption {
	return func(m *Memory) { m.echo = true }
}

// NewMemory creates a named loopback connection.
func NewMemory(name string, opts ...MemoryOption) *Memory {
	m := &Memory{
		id:   uuid.NewString(),
		name: name,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ID returns the connection's unique identity.
func (m *Memory) ID() string { return m.id }

// Open marks the connection open and notifies connect subscribers.
func (m *Memory) Open() error {
	m.mu.Lock()
	if m.open {
		m.mu.Unlock()
		return nil
	}
	m.open = true
	m.mu.Unlock()

	m.notifyConnect()
	return nil
}

// Close marks the connection closed and notifies disconnect subscribers.
func (m *Memory) Close() error {
	m.mu.Lock()
	if !m.open {
		m.mu.Unlock()
		return nil
	}
	m.open = false
	m.mu.Unlock()

	m.notifyDisconnect()
	return nil
}

// Send records outgoing data and echoes it back when echo is enabled.
func (m *Memory) Send(data []byte) error {
	m.mu.Lock()
	if !m.open {
		m.mu.Unlock()
		return ErrNotOpen
	}
	m.sent = append(m.sent, append([]byte(nil), data...))
	m.mu.Unlock()

	if m.echo {
		m.publish(data)
	}
	return nil
}

// Inject simulates output arriving from the remote side.
func (m *Memory) Inject(data []byte) error {
	m.mu.Lock()
	open := m.open
	m.mu.Unlock()
	if !open {
		return ErrNotOpen
	}
	m.publish(data)
	return nil
}

// InjectLines injects each line followed by a newline.
func (m *Memory) InjectLines(lines ...string) error {
	for _, line := range lines {
		if err := m.Inject(append([]byte(line), '\n')); err != nil {
			return err
		}
	}
	return nil
}

// Sent returns a copy of everything written with Send, in order.
func (m *Memory) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	copy(out, m.sent)
	return out
}

// String renders the connection identity.
func (m *Memory) String() string {
	return fmt.Sprintf("memory(%s)", m.name)
}

// Compile-time interface satisfaction check.
var _ Connection = (*Memory)(nil)
