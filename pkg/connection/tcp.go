package connection

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TCP read buffer size.
const tcpReadBuffer = 4096

// DefaultDialTimeout bounds a single TCP dial attempt.
const DefaultDialTimeout = 10 * time.Second

// TCPConfig configures a TCP connection.
type TCPConfig struct {
	// Addr is the host:port to dial.
	Addr string

	// DialTimeout bounds a single dial attempt. Zero means
	// DefaultDialTimeout.
	DialTimeout time.Duration

	// Redial enables automatic reconnection with exponential backoff when
	// the read loop hits a transport error. Explicit Close stops redialing.
	Redial bool
}

// TCP is a raw TCP byte-stream connection. Received data is published to
// subscribers from a background read loop.
type TCP struct {
	bus

	id  string
	cfg TCPConfig

	mu      sync.Mutex
	conn    net.Conn
	open    bool   // caller's view: Open called, Close not yet called
	linkUp  bool   // transport view: a dial currently holds a live socket
	redial  *Backoff
	readWG  sync.WaitGroup
	stopped chan struct{}
}

// NewTCP creates a TCP connection for the given configuration.
func NewTCP(cfg TCPConfig) *TCP {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	return &TCP{
		id:     uuid.NewString(),
		cfg:    cfg,
		redial: NewBackoff(),
	}
}

// ID returns the connection's unique identity.
func (t *TCP) ID() string { return t.id }

// Open dials the remote side and starts the read loop.
func (t *TCP) Open() error {
	t.mu.Lock()
	if t.open {
		t.mu.Unlock()
		return ErrAlreadyOpen
	}

	conn, err := net.DialTimeout("tcp", t.cfg.Addr, t.cfg.DialTimeout)
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	t.conn = conn
	t.open = true
	t.linkUp = true
	t.stopped = make(chan struct{})
	t.redial.Reset()
	t.readWG.Add(1)
	go t.readLoop(conn)
	t.mu.Unlock()

	t.notifyConnect()
	return nil
}

// Close tears the connection down and stops any redialing.
func (t *TCP) Close() error {
	t.mu.Lock()
	if !t.open {
		t.mu.Unlock()
		return nil
	}
	t.open = false
	wasUp := t.linkUp
	t.linkUp = false
	conn := t.conn
	t.conn = nil
	close(t.stopped)
	t.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	t.readWG.Wait()

	if wasUp {
		t.notifyDisconnect()
	}
	return nil
}

// Send writes data to the remote side.
func (t *TCP) Send(data []byte) error {
	t.mu.Lock()
	conn := t.conn
	up := t.linkUp
	t.mu.Unlock()

	if !up || conn == nil {
		return ErrNotOpen
	}
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

// String renders the connection identity.
func (t *TCP) String() string {
	return fmt.Sprintf("tcp(%s)", t.cfg.Addr)
}

// readLoop publishes received data until the socket fails or is closed.
func (t *TCP) readLoop(conn net.Conn) {
	defer t.readWG.Done()

	buf := make([]byte, tcpReadBuffer)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			t.publish(data)
		}
		if err != nil {
			t.linkDown()
			return
		}
	}
}

// linkDown handles a transport failure seen by the read loop.
func (t *TCP) linkDown() {
	t.mu.Lock()
	if !t.linkUp {
		// Close already tore the link down and notified.
		t.mu.Unlock()
		return
	}
	t.linkUp = false
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
	redial := t.open && t.cfg.Redial
	stopped := t.stopped
	t.mu.Unlock()

	t.notifyDisconnect()

	if redial {
		go t.redialLoop(stopped)
	}
}

// redialLoop re-establishes the transport with exponential backoff until it
// succeeds or the connection is closed.
func (t *TCP) redialLoop(stopped chan struct{}) {
	for {
		select {
		case <-stopped:
			return
		case <-time.After(t.redial.Next()):
		}

		conn, err := net.DialTimeout("tcp", t.cfg.Addr, t.cfg.DialTimeout)
		if err != nil {
			continue
		}

		t.mu.Lock()
		if !t.open {
			t.mu.Unlock()
			_ = conn.Close()
			return
		}
		t.conn = conn
		t.linkUp = true
		t.redial.Reset()
		t.readWG.Add(1)
		go t.readLoop(conn)
		t.mu.Unlock()

		t.notifyConnect()
		return
	}
}

// Compile-time interface satisfaction check.
var _ Connection = (*TCP)(nil)
