// Package realtime provides the WebSocket and SSE push transports.
package realtime

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrQueueFull = errors.New("outbound queue full")
	ErrClosed    = errors.New("connection closed")
)

type message struct {
	event   string
	payload []byte
}

// outbox is the bounded queue between Send callers and a connection's single
// writer goroutine. Send never blocks.
type outbox struct {
	id    string
	queue chan message
	done  chan struct{}
	once  sync.Once
}

func newOutbox(size int) *outbox {
	if size <= 0 {
		size = 16
	}
	return &outbox{
		id:    uuid.NewString(),
		queue: make(chan message, size),
		done:  make(chan struct{}),
	}
}

func (o *outbox) ID() string {
	return o.id
}

func (o *outbox) Send(event string, payload []byte) error {
	select {
	case <-o.done:
		return ErrClosed
	default:
	}
	select {
	case o.queue <- message{event: event, payload: payload}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the writer. Safe to call more than once.
func (o *outbox) Close() {
	o.once.Do(func() { close(o.done) })
}
