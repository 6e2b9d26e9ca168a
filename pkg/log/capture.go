package log

import (
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Capture files hold a CBOR sequence of Event values, deterministically
// encoded with RFC3339 nanosecond timestamps so captures of the same session
// diff cleanly. The decode side is lenient about indefinite lengths and
// duplicate keys to keep old captures readable.
var (
	captureEnc = mustEncMode(cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	})
	captureDec = mustDecMode(cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	})
)

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	mode, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	mode, err := opts.DecMode()
	if err != nil {
		panic(err)
	}
	return mode
}

// Capture appends session events to a capture file. It is safe for
// concurrent use; once closed it drops events instead of erroring, so
// teardown paths can keep logging harmlessly.
type Capture struct {
	mu   sync.Mutex
	sink io.WriteCloser
	enc  *cbor.Encoder
}

// NewCapture opens the capture file at path, creating it if needed, and
// appends to whatever it already holds.
func NewCapture(path string) (*Capture, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &Capture{sink: f, enc: captureEnc.NewEncoder(f)}, nil
}

// Log appends the event to the capture. Encoding errors are swallowed;
// logging must not take the session down.
func (c *Capture) Log(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enc == nil {
		return
	}
	_ = c.enc.Encode(event)
}

// Close closes the capture file. Closing twice is a no-op; events logged
// after Close are dropped.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enc == nil {
		return nil
	}
	c.enc = nil
	return c.sink.Close()
}

var _ Logger = (*Capture)(nil)
