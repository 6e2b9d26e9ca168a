package unix

import (
	"regexp"

	"github.com/termprobe/termprobe-go/pkg/observer"
)

// DefaultPromptPattern matches common shell prompts such as
// "user@host:~$ " or "# ".
const DefaultPromptPattern = `[\w@.:~/-]*[$#>%] ?$`

// Wait4Prompt is an event that completes once a line matching the prompt
// pattern appears on the connection.
type Wait4Prompt struct {
	observer.Base
	prompt *regexp.Regexp
	lines  lineBuffer
}

// NewWait4Prompt creates a prompt watcher. An empty pattern uses
// DefaultPromptPattern; an invalid one fails.
func NewWait4Prompt(conn observer.Connection, pattern string) (*Wait4Prompt, error) {
	if pattern == "" {
		pattern = DefaultPromptPattern
	}
	prompt, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Wait4Prompt{
		Base:   observer.NewBase("Wait4Prompt", conn),
		prompt: prompt,
	}, nil
}

func (e *Wait4Prompt) DataReceived(data []byte) error {
	if e.Done() {
		return nil
	}
	for _, line := range e.lines.feed(data) {
		if e.prompt.MatchString(line) {
			return e.SetResult(line)
		}
	}
	// A prompt usually arrives without a trailing newline; check the
	// unterminated remainder too.
	if rest := e.lines.pending; len(rest) > 0 && e.prompt.Match(rest) {
		return e.SetResult(string(rest))
	}
	return nil
}

var _ observer.Observer = (*Wait4Prompt)(nil)
