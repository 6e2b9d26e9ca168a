package unix

import (
	"regexp"

	"github.com/termprobe/termprobe-go/pkg/observer"
)

var userRe = regexp.MustCompile(`^[a-z_][a-z0-9_-]*$`)

// Whoami runs "whoami" and completes with the reported user name.
type Whoami struct {
	observer.Command
	lines lineBuffer
}

// NewWhoami creates a whoami command.
func NewWhoami(conn observer.Connection) *Whoami {
	return &Whoami{
		Command: observer.NewCommand("Whoami", "whoami", conn),
	}
}

func (c *Whoami) DataReceived(data []byte) error {
	if c.Done() {
		return nil
	}
	for _, line := range c.lines.feed(data) {
		// Skip the echoed command line and prompt noise.
		if line == c.CommandString || !userRe.MatchString(line) {
			continue
		}
		return c.SetResult(line)
	}
	return nil
}

var _ observer.Observer = (*Whoami)(nil)
