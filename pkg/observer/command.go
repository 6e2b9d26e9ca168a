package observer

// Command is the base for command-kind observers: operations that write a
// command line to the connection and then consume its output. Event-kind
// observers (which only watch the stream) embed Base directly.
type Command struct {
	Base

	// CommandString is the command line sent on Start, without trailing
	// newline.
	CommandString string
}

// NewCommand creates a command core that sends commandString on Start.
func NewCommand(name, commandString string, conn Connection) Command {
	return Command{
		Base:          NewBase(name, conn),
		CommandString: commandString,
	}
}

// Start sends the command string followed by a newline, then marks the
// observer as running. The command is not sent again on repeated Start.
func (c *Command) Start() error {
	c.mu.Lock()
	if c.outcome != OutcomePending {
		c.mu.Unlock()
		return ErrObserverDone
	}
	if c.running {
		c.mu.Unlock()
		return nil
	}
	conn := c.conn
	c.mu.Unlock()

	if c.CommandString == "" {
		return ErrNoCommandString
	}
	if conn == nil {
		return ErrNoConnection
	}
	if err := conn.Send(append([]byte(c.CommandString), '\n')); err != nil {
		return err
	}
	return c.Base.Start()
}
