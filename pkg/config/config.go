package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/termprobe/termprobe-go/pkg/connection"
	"github.com/termprobe/termprobe-go/pkg/device"
)

// Connection types accepted in YAML.
const (
	TypeTCP    = "tcp"
	TypeSSH    = "ssh"
	TypeMemory = "memory"
)

var (
	ErrUnknownConnection = errors.New("connection not defined")
	ErrUnknownDevice     = errors.New("device not defined")
)

// ConnectionConfig defines one named connection.
type ConnectionConfig struct {
	Type        string        `yaml:"type"`
	Addr        string        `yaml:"addr,omitempty"`
	User        string        `yaml:"user,omitempty"`
	Password    string        `yaml:"password,omitempty"`
	Term        string        `yaml:"term,omitempty"`
	DialTimeout time.Duration `yaml:"dial_timeout,omitempty"`
	Redial      bool          `yaml:"redial,omitempty"`
	Echo        bool          `yaml:"echo,omitempty"`
}

// TransitionConfig defines one extra state-machine transition.
type TransitionConfig struct {
	Trigger string   `yaml:"trigger"`
	Sources []string `yaml:"sources"`
	Target  string   `yaml:"target"`
}

// DeviceConfig defines one named device.
type DeviceConfig struct {
	Connection  string             `yaml:"connection"`
	States      []string           `yaml:"states,omitempty"`
	Transitions []TransitionConfig `yaml:"transitions,omitempty"`
}

// Config is the top-level YAML document.
type Config struct {
	Connections map[string]ConnectionConfig `yaml:"connections"`
	Devices     map[string]DeviceConfig     `yaml:"devices"`
}

// Parse decodes a YAML document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	for name, cc := range cfg.Connections {
		switch cc.Type {
		case TypeTCP, TypeSSH:
			if cc.Addr == "" {
				return nil, fmt.Errorf("connection %q: %s requires addr", name, cc.Type)
			}
		case TypeMemory:
		default:
			return nil, fmt.Errorf("connection %q: unknown type %q", name, cc.Type)
		}
	}
	for name, dc := range cfg.Devices {
		if _, ok := cfg.Connections[dc.Connection]; !ok {
			return nil, fmt.Errorf("device %q: %w: %q", name, ErrUnknownConnection, dc.Connection)
		}
	}
	return &cfg, nil
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// BuildConnection constructs the named connection, unopened.
func (c *Config) BuildConnection(name string) (connection.Connection, error) {
	cc, ok := c.Connections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConnection, name)
	}
	switch cc.Type {
	case TypeTCP:
		return connection.NewTCP(connection.TCPConfig{
			Addr:        cc.Addr,
			DialTimeout: cc.DialTimeout,
			Redial:      cc.Redial,
		}), nil
	case TypeSSH:
		return connection.NewSSH(connection.SSHConfig{
			Addr:        cc.Addr,
			User:        cc.User,
			Password:    cc.Password,
			DialTimeout: cc.DialTimeout,
			Term:        cc.Term,
		}), nil
	case TypeMemory:
		var opts []connection.MemoryOption
		if cc.Echo {
			opts = append(opts, connection.WithEcho())
		}
		return connection.NewMemory(name, opts...), nil
	default:
		return nil, fmt.Errorf("connection %q: unknown type %q", name, cc.Type)
	}
}

// BuildDevice constructs and opens the named device. Observer sources,
// loggers, and other options pass through to device.New.
func (c *Config) BuildDevice(name string, extra ...device.Option) (*device.Device, error) {
	dc, ok := c.Devices[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, name)
	}
	conn, err := c.BuildConnection(dc.Connection)
	if err != nil {
		return nil, err
	}

	opts := []device.Option{
		device.WithName(name),
		device.WithStates(dc.States...),
	}
	for _, tc := range dc.Transitions {
		opts = append(opts, device.WithTransitions(device.Transition{
			Trigger: tc.Trigger,
			Sources: tc.Sources,
			Target:  tc.Target,
		}))
	}
	return device.New(conn, append(opts, extra...)...)
}
