// Package interactive provides the command loop for termprobe-shell.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/termprobe/termprobe-go/pkg/device"
	"github.com/termprobe/termprobe-go/pkg/discovery"
)

const discoverTimeout = 5 * time.Second

// Shell is the interactive session around one device.
type Shell struct {
	dev       *device.Device
	rl        *readline.Instance
	unsubData func()
}

// New creates a shell on dev. Remote output is printed through readline so
// it does not clobber the prompt.
func New(dev *device.Device) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          dev.Name() + "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	s := &Shell{dev: dev, rl: rl}
	s.unsubData = dev.Connection().Subscribe(func(data []byte) {
		_, _ = rl.Stdout().Write(data)
	})
	return s, nil
}

// Stdout returns a writer coordinated with the prompt.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run reads lines until EOF or /quit. Lines starting with "/" are shell
// commands; everything else goes to the remote side verbatim.
func (s *Shell) Run() error {
	defer s.rl.Close()
	defer s.unsubData()

	s.printHelp()

	for {
		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			return nil
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if !strings.HasPrefix(input, "/") {
			if err := s.dev.Connection().Send([]byte(input + "\n")); err != nil {
				fmt.Fprintf(s.rl.Stdout(), "send failed: %v\n", err)
			}
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "run":
			s.cmdRun(args)

		case "goto":
			s.cmdGoto(args)

		case "state":
			fmt.Fprintln(s.rl.Stdout(), s.dev.CurrentState())

		case "discover":
			s.cmdDiscover(args)

		case "close":
			if err := s.dev.Close(); err != nil {
				fmt.Fprintf(s.rl.Stdout(), "close failed: %v\n", err)
			} else {
				fmt.Fprintln(s.rl.Stdout(), "connection closed")
			}

		case "quit", "exit", "q":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			return nil

		default:
			fmt.Fprintf(s.rl.Stdout(), "unknown command %q, try /help\n", cmd)
		}
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), `Commands:
  /run <name> [key=value ...]   run a command observer and wait for it
  /goto <state>                 drive the device state machine
  /state                        show the current state
  /discover [ssh|telnet]        browse the LAN for consoles
  /close                        close the device connection
  /quit                         exit
Anything not starting with "/" is sent to the device as a line.`)
}

func (s *Shell) cmdRun(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "usage: /run <name> [key=value ...]")
		return
	}
	name := args[0]
	cmdArgs := make(device.Args, len(args)-1)
	for _, kv := range args[1:] {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			fmt.Fprintf(s.rl.Stdout(), "argument %q is not key=value\n", kv)
			return
		}
		cmdArgs[key] = value
	}

	result, err := s.dev.Run(name, cmdArgs)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "%s failed: %v\n", name, err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "%s: %v\n", name, result)
}

func (s *Shell) cmdGoto(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.rl.Stdout(), "usage: /goto <state>")
		return
	}
	if err := s.dev.GotoState(strings.ToUpper(args[0])); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "goto failed: %v\n", err)
		return
	}
	fmt.Fprintln(s.rl.Stdout(), s.dev.CurrentState())
}

func (s *Shell) cmdDiscover(args []string) {
	service := discovery.ServiceSSH
	if len(args) == 1 && args[0] == "telnet" {
		service = discovery.ServiceTelnet
	}

	ctx, cancel := context.WithTimeout(context.Background(), discoverTimeout)
	defer cancel()

	browser := discovery.NewBrowser(discovery.BrowserConfig{})
	consoles, err := browser.Browse(ctx, service)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "discover failed: %v\n", err)
		return
	}

	found := 0
	for console := range consoles {
		found++
		fmt.Fprintf(s.rl.Stdout(), "%-30s %s\n", console.InstanceName, console.Addr())
	}
	if found == 0 {
		fmt.Fprintln(s.rl.Stdout(), "no consoles found")
	}
}
