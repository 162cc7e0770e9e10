// Package body implements the two body-stream halves the connection engine drives: Inbound,
// reading a request body under one of the three framing rules, and Outbound, emitting a
// response body from one of a handler's several representations. Grounded on the teacher's
// internal/protocol/http1/body.go (plainBodyReader/chunkedBodyReader) and serializer.go
// (chunkedWriter/identityWriter), generalized to the framing/emission taxonomy this module's
// contract needs.
package body

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/halfpipe/httpcore/internal/chunked"
	"github.com/halfpipe/httpcore/kv"
	"github.com/halfpipe/httpcore/status"
	"github.com/halfpipe/httpcore/transport"
)

type framing uint8

const (
	Empty framing = iota
	Sized
	Chunked
	UntilEOF
)

// Inbound streams a request body under exactly one framing rule, chosen once by the codec
// from the request head (spec §4.1 "framing is exclusive").
type Inbound struct {
	framing framing
	client  transport.Client

	remaining int64 // Sized: bytes left to read
	maxSize   int64
	read      int64

	chunked *chunked.Parser
	pending []byte // a chunk already parsed but not yet handed to the caller
	done    bool

	beforeFirstRead func() error
	firstReadDone   bool
}

// OnFirstRead registers a hook run exactly once, right before the first byte of the body is
// actually read off the wire. The engine uses this to defer a "100 Continue" response until a
// handler actually wants the body (spec §4.3), instead of sending it eagerly for handlers that
// never read the body at all.
func (b *Inbound) OnFirstRead(fn func() error) {
	b.beforeFirstRead = fn
}

func (b *Inbound) fireBeforeFirstRead() error {
	if b.firstReadDone || b.beforeFirstRead == nil {
		return nil
	}

	b.firstReadDone = true
	return b.beforeFirstRead()
}

// FirstReadDone reports whether the body has already been read once (or CancelFirstRead was
// called), i.e. whether the OnFirstRead hook, if any, has already fired or never will.
func (b *Inbound) FirstReadDone() bool {
	return b.firstReadDone
}

// CancelFirstRead marks the first-read hook as spent without invoking it, for a caller that
// decided the informational response it would have produced can no longer go out safely (e.g.
// the definitive response has already been chosen).
func (b *Inbound) CancelFirstRead() {
	b.firstReadDone = true
}

func NewEmpty() *Inbound {
	return &Inbound{framing: Empty, done: true}
}

func NewSized(client transport.Client, length, maxSize int64) *Inbound {
	return &Inbound{framing: Sized, client: client, remaining: length, maxSize: maxSize}
}

func NewChunked(client transport.Client, maxChunkSize, maxSize int64) *Inbound {
	return &Inbound{
		framing: Chunked,
		client:  client,
		maxSize: maxSize,
		chunked: chunked.New(maxChunkSize),
	}
}

func NewUntilEOF(client transport.Client, maxSize int64) *Inbound {
	return &Inbound{framing: UntilEOF, client: client, maxSize: maxSize}
}

// Framing reports which of the three rules is in effect.
func (b *Inbound) Framing() string {
	switch b.framing {
	case Sized:
		return "sized"
	case Chunked:
		return "chunked"
	case UntilEOF:
		return "eof"
	default:
		return "empty"
	}
}

// ReadChunk returns the next piece of body data. io.EOF, with a possibly-nonempty final
// slice, signals the body is exhausted.
func (b *Inbound) ReadChunk() ([]byte, error) {
	if b.framing == Empty {
		return nil, io.EOF
	}

	if err := b.fireBeforeFirstRead(); err != nil {
		return nil, err
	}

	switch b.framing {
	case Sized:
		return b.readSized()
	case Chunked:
		return b.readChunked()
	case UntilEOF:
		return b.readUntilEOF()
	default:
		panic("unreachable")
	}
}

func (b *Inbound) readSized() ([]byte, error) {
	if b.remaining == 0 {
		return nil, io.EOF
	}

	data, err := b.client.Read()
	if err != nil {
		return nil, err
	}

	if int64(len(data)) > b.remaining {
		extra := data[b.remaining:]
		data = data[:b.remaining]
		b.client.Pushback(extra)
	}

	b.read += int64(len(data))
	if b.read > b.maxSize {
		return nil, status.ErrBodyTooLarge
	}

	b.remaining -= int64(len(data))
	if b.remaining == 0 {
		return data, io.EOF
	}

	return data, nil
}

func (b *Inbound) readChunked() ([]byte, error) {
	if b.done {
		return nil, io.EOF
	}

	if len(b.pending) > 0 {
		data := b.pending
		b.pending = nil
		return data, nil
	}

	for {
		data, err := b.client.Read()
		if err != nil {
			return nil, err
		}

		for len(data) > 0 {
			chunk, extra, err := b.chunked.Parse(data)
			data = extra

			if len(chunk) > 0 {
				b.read += int64(len(chunk))
				if b.read > b.maxSize {
					return nil, status.ErrBodyTooLarge
				}
			}

			switch err {
			case nil:
				if len(chunk) > 0 {
					if len(data) > 0 {
						b.client.Pushback(data)
					}
					return chunk, nil
				}
			case io.EOF:
				b.done = true
				if len(data) > 0 {
					b.client.Pushback(data)
				}
				if len(chunk) > 0 {
					return chunk, nil
				}
				return nil, io.EOF
			default:
				return nil, err
			}
		}
	}
}

func (b *Inbound) readUntilEOF() ([]byte, error) {
	data, err := b.client.Read()
	if len(data) > 0 {
		b.read += int64(len(data))
		if b.read > b.maxSize {
			return nil, status.ErrBodyTooLarge
		}
	}

	if err == io.EOF {
		return data, io.EOF
	}

	return data, err
}

// Trailers returns headers captured after a chunked body's terminating chunk. Empty (never
// nil) for any other framing.
func (b *Inbound) Trailers() *kv.Headers {
	if b.chunked == nil {
		return kv.New()
	}

	return b.chunked.Trailers()
}

// Drain reads and discards whatever body a handler left unread, so the connection can be
// reused for the next pipelined request. It gives up and reports ErrBodyTooLargeOnDrain past
// cap bytes, since a handler that ignores a huge body shouldn't stall the connection reading
// all of it just to throw it away.
func (b *Inbound) Drain(cap int64) error {
	var discarded int64

	for {
		chunk, err := b.ReadChunk()
		discarded += int64(len(chunk))
		if discarded > cap {
			return status.ErrBodyTooLargeOnDrain
		}

		switch err {
		case nil:
			continue
		case io.EOF:
			return nil
		default:
			return err
		}
	}
}

// ReadAll accumulates the whole body into memory, for handlers that don't need streaming.
func (b *Inbound) ReadAll() ([]byte, error) {
	var buf []byte

	for {
		chunk, err := b.ReadChunk()
		buf = append(buf, chunk...)

		switch err {
		case nil:
			continue
		case io.EOF:
			return buf, nil
		default:
			return nil, err
		}
	}
}

// JSON reads the whole body and unmarshals it into v.
func (b *Inbound) JSON(v any) error {
	data, err := b.ReadAll()
	if err != nil {
		return err
	}

	return jsoniter.Unmarshal(data, v)
}
