package connection

import (
	"errors"
	"sync"
)

// Connection errors.
var (
	ErrNotOpen     = errors.New("connection not open")
	ErrAlreadyOpen = errors.New("connection already open")
	ErrSendFailed  = errors.New("send failed")
	ErrOpenFailed  = errors.New("open failed")
)

// Connection is an abstract bidirectional byte stream with lifecycle
// notification hooks. Implementations must be safe for concurrent use.
type Connection interface {
	// Open establishes the connection and notifies connect subscribers.
	Open() error

	// Close tears the connection down and notifies disconnect subscribers.
	// Closing an already-closed connection is a no-op.
	Close() error

	// Send writes data to the remote side.
	Send(data []byte) error

	// Subscribe registers a data subscriber. Every subscriber receives the
	// full stream in production order. The returned function unsubscribes.
	Subscribe(fn func(data []byte)) (unsubscribe func())

	// SubscribeOnConnect registers a callback invoked whenever the
	// connection (re-)establishes. The returned function unsubscribes.
	SubscribeOnConnect(fn func()) (unsubscribe func())

	// SubscribeOnDisconnect registers a callback invoked whenever the
	// connection drops or is closed. The returned function unsubscribes.
	SubscribeOnDisconnect(fn func()) (unsubscribe func())

	// String renders the connection identity for diagnostics.
	String() string
}

// subscriber pairs a registration id with its callback. Subscribers are
// kept in a slice so notification order matches subscription order.
type subscriber[F any] struct {
	id uint64
	fn F
}

// bus implements subscriber bookkeeping shared by all connection types.
// The zero value is ready to use.
type bus struct {
	mu         sync.Mutex
	nextID     uint64
	data       []subscriber[func([]byte)]
	connect    []subscriber[func()]
	disconnect []subscriber[func()]
}

// Subscribe registers a data subscriber.
func (b *bus) Subscribe(fn func(data []byte)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.data = append(b.data, subscriber[func([]byte)]{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.data = remove(b.data, id)
	}
}

// SubscribeOnConnect registers a connect subscriber.
func (b *bus) SubscribeOnConnect(fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.connect = append(b.connect, subscriber[func()]{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.connect = remove(b.connect, id)
	}
}

// SubscribeOnDisconnect registers a disconnect subscriber.
func (b *bus) SubscribeOnDisconnect(fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.disconnect = append(b.disconnect, subscriber[func()]{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.disconnect = remove(b.disconnect, id)
	}
}

// publish delivers data to every data subscriber in subscription order.
// Callbacks run outside the bus lock so they may call back into the
// connection.
func (b *bus) publish(data []byte) {
	b.mu.Lock()
	subs := make([]func([]byte), len(b.data))
	for i, s := range b.data {
		subs[i] = s.fn
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(data)
	}
}

// notifyConnect invokes every connect subscriber.
func (b *bus) notifyConnect() { b.notify(&b.connect) }

// notifyDisconnect invokes every disconnect subscriber.
func (b *bus) notifyDisconnect() { b.notify(&b.disconnect) }

func (b *bus) notify(list *[]subscriber[func()]) {
	b.mu.Lock()
	subs := make([]func(), len(*list))
	for i, s := range *list {
		subs[i] = s.fn
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

func remove[F any](subs []subscriber[F], id uint64) []subscriber[F] {
	for i, s := range subs {
		if s.id == id {
			return append(subs[:i], subs[i+1:]...)
		}
	}
	return subs
}
