package unix

import (
	"github.com/termprobe/termprobe-go/pkg/device"
	"github.com/termprobe/termprobe-go/pkg/observer"
)

// Source registers the unix observers on connected devices.
type Source struct{}

// NewSource returns the unix registration source.
func NewSource() Source { return Source{} }

// Entries implements device.Source. The unix observers need a live shell,
// so they are offered in the CONNECTED state only.
func (Source) Entries(state string, kind device.Kind) []device.Entry {
	if state != device.StateConnected {
		return nil
	}
	switch kind {
	case device.KindCommand:
		return []device.Entry{
			{
				Name: "du",
				Kind: device.KindCommand,
				Factory: func(conn observer.Connection, args device.Args) (observer.Observer, error) {
					return NewDiskUsage(conn, args.String("path", ".")), nil
				},
			},
			{
				Name: "whoami",
				Kind: device.KindCommand,
				Factory: func(conn observer.Connection, args device.Args) (observer.Observer, error) {
					return NewWhoami(conn), nil
				},
			},
		}
	case device.KindEvent:
		return []device.Entry{
			{
				Name: "wait4prompt",
				Kind: device.KindEvent,
				Factory: func(conn observer.Connection, args device.Args) (observer.Observer, error) {
					return NewWait4Prompt(conn, args.String("prompt", ""))
				},
			},
		}
	default:
		return nil
	}
}

var _ device.Source = Source{}
