// Command termprobe-shell is an interactive console for probing remote
// devices.
//
// It opens a configured connection, wraps it in a device, and drops into a
// prompt where typed lines go to the remote side and remote output is
// printed as it arrives. Registered commands run through the device's
// observer machinery.
//
// Usage:
//
//	termprobe-shell -config lab.yaml -device router
//
// Flags:
//
//	-config string    Configuration file path
//	-device string    Device name from the configuration (default "sim")
//	-capture string   Write session events to a CBOR capture file
//	-log-level string Log level: debug, info, warn, error (default "info")
//
// Interactive commands start with "/"; anything else is sent verbatim:
//
//	/run <name> [key=value ...]   - run a command observer and wait
//	/goto <state>                 - drive the device state machine
//	/state                        - show the current state
//	/discover [ssh|telnet]        - browse the LAN for consoles
//	/close                        - close the device connection
//	/quit                         - exit
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/termprobe/termprobe-go/cmd/termprobe-shell/interactive"
	"github.com/termprobe/termprobe-go/pkg/config"
	"github.com/termprobe/termprobe-go/pkg/connection"
	"github.com/termprobe/termprobe-go/pkg/device"
	"github.com/termprobe/termprobe-go/pkg/log"
	"github.com/termprobe/termprobe-go/pkg/unix"
)

var (
	configFile string
	deviceName string
	capture    string
	logLevel   string
)

func init() {
	flag.StringVar(&configFile, "config", "", "Configuration file path")
	flag.StringVar(&deviceName, "device", "sim", "Device name from the configuration")
	flag.StringVar(&capture, "capture", "", "Write session events to a CBOR capture file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	logger, closeLogger, err := buildLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLogger()

	dev, err := buildDevice(logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer dev.Close()

	shell, err := interactive.New(dev)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := shell.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildLogger combines the terminal slog output with an optional CBOR
// capture file.
func buildLogger() (log.Logger, func(), error) {
	level := slog.LevelInfo
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	terminal := log.NewSlogAdapter(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	if capture == "" {
		return terminal, func() {}, nil
	}
	file, err := log.NewCapture(capture)
	if err != nil {
		return nil, nil, fmt.Errorf("open capture file: %w", err)
	}
	return log.Tee(terminal, file), func() { _ = file.Close() }, nil
}

// buildDevice opens the configured device, or an echoing in-memory one when
// no configuration is given.
func buildDevice(logger log.Logger) (*device.Device, error) {
	if configFile == "" {
		conn := connection.NewMemory("sim", connection.WithEcho())
		return device.New(conn,
			device.WithName("sim"),
			device.WithSources(unix.NewSource()),
			device.WithLogger(logger),
		)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	return cfg.BuildDevice(deviceName,
		device.WithSources(unix.NewSource()),
		device.WithLogger(logger),
	)
}
