package connection

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/ssh"
)

// SSH read buffer size.
const sshReadBuffer = 4096

// SSHConfig configures an SSH connection.
type SSHConfig struct {
	// Addr is the host:port to dial.
	Addr string

	// User is the login user.
	User string

	// Password enables password authentication when non-empty.
	Password string

	// Signers enables public-key authentication.
	Signers []ssh.Signer

	// HostKeyCallback validates the server host key. Nil accepts any host
	// key, which is only acceptable inside an isolated lab network.
	HostKeyCallback ssh.HostKeyCallback

	// DialTimeout bounds the dial attempt. Zero means DefaultDialTimeout.
	DialTimeout time.Duration

	// Term is the requested PTY type. Empty means "xterm".
	Term string
}

// SSH is an interactive SSH shell session. Open dials the server, requests
// a PTY and starts a shell; everything the shell writes is published to
// data subscribers, and Send writes to the shell's stdin.
type SSH struct {
	bus

	id  string
	cfg SSHConfig

	mu      sync.Mutex
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	open    bool
	readWG  sync.WaitGroup
}

// NewSSH creates an SSH connection for the given configuration.
func NewSSH(cfg SSHConfig) *SSH {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.Term == "" {
		cfg.Term = "xterm"
	}
	return &SSH{
		id:  uuid.NewString(),
		cfg: cfg,
	}
}

// ID returns the connection's unique identity.
func (s *SSH) ID() string { return s.id }

// Open dials the server, starts an interactive shell and begins publishing
// its output.
func (s *SSH) Open() error {
	s.mu.Lock()
	if s.open {
		s.mu.Unlock()
		return ErrAlreadyOpen
	}
	s.mu.Unlock()

	var auth []ssh.AuthMethod
	if s.cfg.Password != "" {
		auth = append(auth, ssh.Password(s.cfg.Password))
	}
	if len(s.cfg.Signers) > 0 {
		auth = append(auth, ssh.PublicKeys(s.cfg.Signers...))
	}

	hostKey := s.cfg.HostKeyCallback
	if hostKey == nil {
		hostKey = ssh.InsecureIgnoreHostKey()
	}

	client, err := ssh.Dial("tcp", s.cfg.Addr, &ssh.ClientConfig{
		User:            s.cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         s.cfg.DialTimeout,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	session, err := client.NewSession()
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty(s.cfg.Term, 24, 80, modes); err != nil {
		_ = session.Close()
		_ = client.Close()
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		_ = session.Close()
		_ = client.Close()
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		_ = session.Close()
		_ = client.Close()
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	stderr, err := session.StderrPipe()
	if err != nil {
		_ = session.Close()
		_ = client.Close()
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	if err := session.Shell(); err != nil {
		_ = session.Close()
		_ = client.Close()
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	s.mu.Lock()
	s.client = client
	s.session = session
	s.stdin = stdin
	s.open = true
	s.readWG.Add(2)
	s.mu.Unlock()

	go s.readLoop(stdout, true)
	go s.readLoop(stderr, false)

	s.notifyConnect()
	return nil
}

// Close terminates the shell session and the underlying client.
func (s *SSH) Close() error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil
	}
	s.open = false
	session := s.session
	client := s.client
	s.session = nil
	s.client = nil
	s.stdin = nil
	s.mu.Unlock()

	if session != nil {
		_ = session.Close()
	}
	var err error
	if client != nil {
		err = client.Close()
	}
	s.readWG.Wait()

	s.notifyDisconnect()
	return err
}

// Send writes data to the shell's stdin.
func (s *SSH) Send(data []byte) error {
	s.mu.Lock()
	stdin := s.stdin
	open := s.open
	s.mu.Unlock()

	if !open || stdin == nil {
		return ErrNotOpen
	}
	if _, err := stdin.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

// String renders the connection identity.
func (s *SSH) String() string {
	return fmt.Sprintf("ssh(%s@%s)", s.cfg.User, s.cfg.Addr)
}

// readLoop publishes shell output until the stream ends. The stdout loop
// additionally reports the session drop when the caller did not Close.
func (s *SSH) readLoop(r io.Reader, primary bool) {
	defer s.readWG.Done()

	buf := make([]byte, sshReadBuffer)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			s.publish(data)
		}
		if err != nil {
			break
		}
	}

	if !primary {
		return
	}

	s.mu.Lock()
	dropped := s.open
	client := s.client
	s.open = false
	s.session = nil
	s.client = nil
	s.stdin = nil
	s.mu.Unlock()

	if dropped {
		if client != nil {
			_ = client.Close()
		}
		s.notifyDisconnect()
	}
}

// Compile-time interface satisfaction check.
var _ Connection = (*SSH)(nil)
