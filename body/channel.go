package body

import (
	"errors"
	"io"
	"sync"

	"github.com/halfpipe/httpcore/kv"
)

// ErrReceiverGone is returned to a Send call once the receiving side has cancelled, e.g.
// because the connection died mid-response.
var ErrReceiverGone = errors.New("body channel: receiver gone")

// Channel is the bounded, back-pressured handoff between a handler goroutine producing a
// streamed response body and the connection's writer goroutine draining it, grounded on the
// teacher's internal/body/tunnel.go Gateway (an unbuffered single-slot version of the same
// idea) but generalized to a configurable capacity and FIFO ordering across producers, since
// spec §4.2 requires "multi-producer single-consumer" semantics a single slot can't give.
type Channel struct {
	ch     chan []byte
	result chan error
	cancel chan struct{}

	trailers *kv.Headers

	closeOnce  sync.Once
	cancelOnce sync.Once
}

// DefaultCapacity is used when a handler doesn't specify one explicitly.
const DefaultCapacity = 16

func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Channel{
		ch:     make(chan []byte, capacity),
		result: make(chan error, 1),
		cancel: make(chan struct{}),
	}
}

// Send pushes a chunk, blocking while the channel is full. It returns ErrReceiverGone once
// Cancel has been called, so a slow producer doesn't hang forever writing into the void.
func (c *Channel) Send(chunk []byte) error {
	select {
	case c.ch <- chunk:
		return nil
	case <-c.cancel:
		return ErrReceiverGone
	}
}

// SetTrailers attaches trailers to be written after the chunked terminator, once the body
// finishes cleanly (spec §4.2 "trailers, if present, are written after the terminator"). Must
// be called by the producer before Close, since a trailer set after the body has already ended
// would have nowhere left to go.
func (c *Channel) SetTrailers(h *kv.Headers) {
	c.trailers = h
}

// Trailers returns whatever was passed to SetTrailers, or nil if none was set. Only meaningful
// once Recv has returned io.EOF.
func (c *Channel) Trailers() *kv.Headers {
	return c.trailers
}

// Close signals a clean end of the body. Safe to call at most meaningfully once; later calls
// are no-ops.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.ch)
	})
}

// Abort signals the body ended in error; Recv will surface err after draining whatever chunks
// were already queued.
func (c *Channel) Abort(err error) {
	c.closeOnce.Do(func() {
		c.result <- err
		close(c.ch)
	})
}

// Recv returns the next chunk in FIFO order. io.EOF marks a clean end; any other error was
// passed to Abort.
func (c *Channel) Recv() ([]byte, error) {
	chunk, ok := <-c.ch
	if ok {
		return chunk, nil
	}

	select {
	case err := <-c.result:
		return nil, err
	default:
		return nil, io.EOF
	}
}

// Cancel tells producers to stop sending, used when the connection is being torn down while a
// handler is still mid-stream.
func (c *Channel) Cancel() {
	c.cancelOnce.Do(func() {
		close(c.cancel)
	})
}
