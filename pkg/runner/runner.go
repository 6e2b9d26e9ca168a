package runner

import (
	"errors"

	"github.com/termprobe/termprobe-go/pkg/observer"
)

// Runner errors.
var (
	ErrRunnerClosed      = errors.New("runner is shut down")
	ErrStreamUnsupported = errors.New("observer connection does not support subscription")
	ErrConnectionDropped = errors.New("connection dropped while observer was pending")
)

// Runner is the scheduling backend that executes observer lifecycles.
type Runner interface {
	// Submit starts the observer and drives its data delivery until it
	// reaches a terminal outcome. Submit returns once delivery is set up;
	// it does not wait for completion.
	Submit(obs observer.Observer) error

	// Shutdown stops accepting submissions, cancels still-pending
	// observers and waits for delivery goroutines to finish.
	Shutdown()
}

// Stream is the connection surface a runner needs: ordered data delivery
// and disconnect notification. Connections from package connection satisfy
// it.
type Stream interface {
	Subscribe(fn func(data []byte)) (unsubscribe func())
	SubscribeOnDisconnect(fn func()) (unsubscribe func())
}
