package body

import (
	"errors"
	"io"

	"github.com/halfpipe/httpcore/kv"
	"github.com/halfpipe/httpcore/status"
)

type kind uint8

const (
	OutEmpty kind = iota
	OutFixed
	OutReader
	OutChannel
)

// Outbound is the tagged variant a Response's body can take, mirroring the teacher's split
// between a fully-buffered []byte body (response/fields.go) and a streamed io.Writer/
// io.ReaderFrom fast path in serializer.go's writeStream, generalized into one explicit sum
// type per spec §9 ("body representation as a tagged union, not an interface grab bag").
type Outbound struct {
	kind    kind
	fixed   []byte
	reader  io.Reader
	length  int64 // -1 means unknown; forces chunked framing
	channel *Channel
}

func NewOutboundEmpty() *Outbound {
	return &Outbound{kind: OutEmpty}
}

// NewOutboundFixed carries a body whose full length is known upfront (Content-Length framing).
func NewOutboundFixed(data []byte) *Outbound {
	return &Outbound{kind: OutFixed, fixed: data, length: int64(len(data))}
}

// NewOutboundReader wraps an io.Reader. length of -1 means the size isn't known ahead of time
// (chunked framing, or EOF-framing for HTTP/1.0); a non-negative length uses Content-Length.
func NewOutboundReader(r io.Reader, length int64) *Outbound {
	return &Outbound{kind: OutReader, reader: r, length: length}
}

// NewOutboundChannel wraps a Channel a handler streams chunks into concurrently. Always
// unsized, so it's always framed chunked (or EOF-terminated, over HTTP/1.0).
func NewOutboundChannel(ch *Channel) *Outbound {
	return &Outbound{kind: OutChannel, channel: ch, length: -1}
}

func (o *Outbound) Kind() kind {
	return o.kind
}

// Length reports the declared length and whether it's known. Callers use this to choose
// between Content-Length and chunked/EOF framing (spec §4.1).
func (o *Outbound) Length() (n int64, known bool) {
	return o.length, o.length >= 0
}

// Emit drains the body into w, whatever framing w itself applies (identity or chunked). It
// does not close w.
func (o *Outbound) Emit(w io.Writer) error {
	switch o.kind {
	case OutEmpty:
		return nil
	case OutFixed:
		_, err := w.Write(o.fixed)
		return err
	case OutReader:
		_, err := io.Copy(w, o.reader)
		return err
	case OutChannel:
		return o.emitChannel(w)
	default:
		panic("unreachable")
	}
}

func (o *Outbound) emitChannel(w io.Writer) error {
	for {
		chunk, err := o.channel.Recv()
		if len(chunk) > 0 {
			if _, werr := w.Write(chunk); werr != nil {
				o.channel.Cancel()
				return werr
			}
		}

		switch err {
		case nil:
			continue
		case io.EOF:
			return nil
		default:
			return channelAbortError(err)
		}
	}
}

// channelAbortError normalizes whatever a producer passed to Channel.Abort into a value the
// engine can turn into a canonical response/disconnect reason (spec §7), the same role
// status.ErrFramingMismatch plays for a Content-Length body that ends short.
func channelAbortError(err error) error {
	var httpErr status.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	return status.ErrChannelClosedWithoutEnd
}

// Trailers returns the trailers a channel-backed body's producer set via Channel.SetTrailers,
// once Emit has finished successfully. Empty (never nil) for any other body kind, or if none
// was set.
func (o *Outbound) Trailers() *kv.Headers {
	if o.kind != OutChannel || o.channel == nil {
		return kv.New()
	}

	if t := o.channel.Trailers(); t != nil {
		return t
	}

	return kv.New()
}

// SetTrailers attaches trailers to a channel-backed body, written after the chunked terminator
// once the body finishes (spec §4.2). A no-op for any other body kind.
func (o *Outbound) SetTrailers(h *kv.Headers) {
	if o.kind == OutChannel && o.channel != nil {
		o.channel.SetTrailers(h)
	}
}
