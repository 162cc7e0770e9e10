package codec

import (
	"strconv"
	"time"

	"github.com/indigo-web/utils/strcomp"

	"github.com/halfpipe/httpcore/config"
	"github.com/halfpipe/httpcore/kv"
	"github.com/halfpipe/httpcore/message"
	"github.com/halfpipe/httpcore/proto"
	"github.com/halfpipe/httpcore/status"
	"github.com/halfpipe/httpcore/transport"
)

const crlf = "\r\n"

// Serializer writes a response head plus body onto a connection, applying exactly one framing
// rule (spec §4.1 "response framing is exclusive"): Content-Length for a known-length body,
// Transfer-Encoding: chunked for an unsized body over HTTP/1.1, or an EOF-terminated body over
// HTTP/1.0 (which forces the connection closed afterward). Grounded on the teacher's
// internal/protocol/http1/serializer.go, trimmed of compression and cookie support (out of
// scope) and simplified from its in-place hex-length gap-fill trick to a plain per-chunk
// strconv.AppendUint, since that micro-optimization isn't worth its complexity here.
type Serializer struct {
	cfg    *config.Config
	client transport.Client
	buff   []byte
}

func NewSerializer(cfg *config.Config, client transport.Client) *Serializer {
	return &Serializer{cfg: cfg, client: client, buff: make([]byte, 0, cfg.NET.WriteBufferSize)}
}

// WriteContinue writes an informational 100 Continue response, used right before a handler's
// first read of a body sent with "Expect: 100-continue" (spec §4.3).
func (s *Serializer) WriteContinue(protocol proto.Protocol) error {
	s.appendProtocol(protocol)
	s.buff = append(s.buff, "100 Continue\r\n\r\n"...)
	return s.flush()
}

// Upgrade writes a 101 Switching Protocols head without a body, then flushes immediately since
// the caller is about to hand the connection off.
func (s *Serializer) Upgrade(protocol proto.Protocol, extraHeaders map[string]string) error {
	s.appendProtocol(protocol)
	s.buff = append(s.buff, "101 Switching Protocols\r\n"...)

	for key, value := range extraHeaders {
		s.appendHeader(key, value)
	}

	s.crlf()
	return s.flush()
}

// Write serializes and flushes one response. mustClose reports whether the connection must be
// closed after this response regardless of the request's own keep-alive wish: for an EOF-framed
// body over HTTP/1.0 (spec §4.1: "EOF framing implies close"), for a body whose byte count
// differs from its declared length, and for a chunked body whose Emit failed.
func (s *Serializer) Write(protocol proto.Protocol, req *message.Request, resp *message.Response) (mustClose bool, err error) {
	s.appendProtocol(protocol)
	s.appendStatus(resp.Code)

	bodiless := req.Method.Bodiless() || status.Bodiless(resp.Code)

	for key, value := range resp.Headers.Iter() {
		// a bodiless response (1xx/204/304, or any response to HEAD) carries no framing header,
		// even if the handler set one (spec §4.3 "framing header injection").
		if bodiless && isFramingHeader(key) {
			continue
		}

		s.appendHeader(key, value)
	}

	for key, value := range s.cfg.HTTP.DefaultHeaders {
		if !resp.Headers.Has(key) {
			s.appendHeader(key, value)
		}
	}

	if !resp.Headers.Has("Date") {
		s.appendHeader("Date", time.Now().UTC().Format(time.RFC1123))
	}

	if bodiless {
		s.crlf()
		return false, s.flush()
	}

	length, known := resp.Body.Length()

	switch {
	case known:
		s.appendHeader("Content-Length", strconv.FormatInt(length, 10))
		s.crlf()

		if err := s.flush(); err != nil {
			return false, err
		}

		counted := &countingWriter{identityWriter: identityWriter{s}}
		if err := resp.Body.Emit(counted); err != nil {
			return false, err
		}

		if counted.n != length {
			return true, status.ErrFramingMismatch
		}

		return false, s.flush()
	case protocol.AtLeast11():
		s.appendHeader("Transfer-Encoding", "chunked")
		s.crlf()

		if err := s.flush(); err != nil {
			return false, err
		}

		if err := resp.Body.Emit(chunkedWriter{s}); err != nil {
			// the stream is mid-frame at this point; write the zero-length terminator anyway
			// so the connection isn't left on an unterminated chunked body before it's closed
			// (spec §7: "writes the zero-length terminator then closes").
			_ = s.safeAppend([]byte("0\r\n\r\n"))
			_ = s.flush()
			return true, err
		}

		return false, s.writeChunkedTerminator(resp.Body.Trailers())
	default:
		// HTTP/1.0 has no chunked coding; an unsized body can only be framed by closing the
		// connection once it's fully written (spec §4.1: EOF framing implies "Connection: close").
		s.appendHeader("Connection", "close")
		s.crlf()

		if err := s.flush(); err != nil {
			return true, err
		}

		if err := resp.Body.Emit(identityWriter{s}); err != nil {
			return true, err
		}

		return true, s.flush()
	}
}

// writeChunkedTerminator writes the zero-length terminating chunk, followed by any trailers a
// channel-backed body's producer attached, before the final CRLF that ends the message (spec
// §4.2: "trailers, if present, are written after the terminator").
func (s *Serializer) writeChunkedTerminator(trailers *kv.Headers) error {
	if err := s.safeAppend([]byte("0\r\n")); err != nil {
		return err
	}

	for key, value := range trailers.Iter() {
		s.appendHeader(key, value)
	}

	s.crlf()
	return s.flush()
}

func isFramingHeader(key string) bool {
	return strcomp.EqualFold(key, "Content-Length") || strcomp.EqualFold(key, "Transfer-Encoding")
}

func (s *Serializer) appendStatus(code status.Code) {
	if line := status.StringCode(code); len(line) > 0 {
		s.buff = append(s.buff, line...)
		s.crlf()
		return
	}

	s.buff = strconv.AppendUint(s.buff, uint64(code), 10)
	s.buff = append(s.buff, ' ')
	s.buff = append(s.buff, string(status.Text(code))...)
	s.crlf()
}

func (s *Serializer) appendHeader(key, value string) {
	s.buff = append(s.buff, key...)
	s.buff = append(s.buff, ':', ' ')
	s.buff = append(s.buff, value...)
	s.crlf()
}

func (s *Serializer) appendProtocol(protocol proto.Protocol) {
	if protocol == proto.Unknown {
		protocol = proto.HTTP11
	}

	s.buff = append(s.buff, protocol.String()...)
	s.buff = append(s.buff, ' ')
}

func (s *Serializer) crlf() {
	s.buff = append(s.buff, crlf...)
}

// safeAppend fills the buffer, flushing whenever it's full, so a payload larger than the
// buffer's capacity doesn't need its own allocation.
func (s *Serializer) safeAppend(data []byte) error {
	for len(data) > 0 {
		free := cap(s.buff) - len(s.buff)
		if len(data) <= free {
			s.buff = append(s.buff, data...)
			return nil
		}

		s.buff = append(s.buff, data[:free]...)
		if err := s.flush(); err != nil {
			return err
		}

		data = data[free:]
	}

	return nil
}

func (s *Serializer) flush() error {
	if len(s.buff) == 0 {
		return nil
	}

	_, err := s.client.Write(s.buff)
	s.buff = s.buff[:0]
	return err
}

// identityWriter passes bytes straight through to the connection, used for a Content-Length
// framed body.
type identityWriter struct {
	s *Serializer
}

func (w identityWriter) Write(p []byte) (int, error) {
	if err := w.s.safeAppend(p); err != nil {
		return 0, err
	}

	return len(p), nil
}

// countingWriter tracks how many bytes actually crossed the wire for a Content-Length framed
// body, so Write can catch a producer that promised one length and delivered another (spec §9:
// "if the body produces a different number of bytes, close rather than pad or truncate").
type countingWriter struct {
	identityWriter
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.identityWriter.Write(p)
	w.n += int64(n)
	return n, err
}

// chunkedWriter frames each Write call as one chunk, the same shape as body.NewOutboundChannel
// producer calls: one Write per chunk keeps chunk boundaries meaningful to a peer relying on
// them (e.g. server-sent events), rather than coalescing writes into arbitrary chunk sizes.
type chunkedWriter struct {
	s *Serializer
}

func (w chunkedWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	header := strconv.AppendUint(make([]byte, 0, 18), uint64(len(p)), 16)
	header = append(header, crlf...)

	if err := w.s.safeAppend(header); err != nil {
		return 0, err
	}

	if err := w.s.safeAppend(p); err != nil {
		return 0, err
	}

	if err := w.s.safeAppend([]byte(crlf)); err != nil {
		return 0, err
	}

	return len(p), nil
}
