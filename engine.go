// Package httpcore wires the codec, body streams and transport packages into a synchronous
// per-connection request/response loop, grounded on the teacher's
// internal/protocol/http1.Suit: one reused Parser, Serializer and Request per connection,
// looping over Read/Parse/dispatch/Write until the connection closes.
package httpcore

import (
	"errors"

	"github.com/halfpipe/httpcore/body"
	"github.com/halfpipe/httpcore/codec"
	"github.com/halfpipe/httpcore/config"
	"github.com/halfpipe/httpcore/internal/buffer"
	"github.com/halfpipe/httpcore/message"
	"github.com/halfpipe/httpcore/status"
	"github.com/halfpipe/httpcore/transport"
)

// Engine drives one connection's worth of request/response cycles against a Handler. It holds
// no per-connection state itself; Serve allocates a fresh connection struct per call so a
// single Engine value is safe to reuse across every accepted connection.
type Engine struct {
	cfg     *config.Config
	handler message.Handler
}

func NewEngine(cfg *config.Config, handler message.Handler) *Engine {
	return &Engine{cfg: cfg, handler: handler}
}

// Serve runs the request/response loop for client until the connection closes, an
// unrecoverable error occurs, or a handler switches protocol. It never returns an error: any
// failure is either turned into an error response or ends the loop by closing the connection.
func (e *Engine) Serve(client transport.Client) {
	line := buffer.New(e.cfg.URI.RequestLineSize.Default, e.cfg.URI.RequestLineSize.Maximal)
	headers := buffer.New(e.cfg.Headers.MaxLineSize, e.cfg.Headers.MaxLineSize)

	c := &conn{
		cfg:     e.cfg,
		handler: e.handler,
		client:  client,
		request: message.NewRequest(client),
		line:    &line,
		headers: &headers,
	}
	c.parser = codec.NewParser(e.cfg, c.request, c.line, c.headers)
	c.serializer = codec.NewSerializer(e.cfg, client)

	c.run()

	if !c.upgraded {
		client.Close()
	}
}

// conn is the per-connection state a single Engine.Serve call owns exclusively; it's never
// shared across goroutines.
type conn struct {
	cfg        *config.Config
	handler    message.Handler
	client     transport.Client
	request    *message.Request
	parser     *codec.Parser
	serializer *codec.Serializer
	line       *buffer.Buffer
	headers    *buffer.Buffer

	pipelined int
	upgraded  bool
}

func (c *conn) run() {
	for {
		data, err := c.client.Read()
		if err != nil {
			return
		}

		if !c.consume(data) {
			return
		}
	}
}

// consume parses one Read's worth of data. A completed head is dispatched immediately; any
// leftover bytes (the body, or the start of the next pipelined request) are pushed back onto
// the client so the next Read call — whether from the socket or from the pushback buffer
// itself — replays them in order. false means the connection must close.
func (c *conn) consume(data []byte) bool {
	done, head, extra, err := c.parser.Parse(data)
	if err != nil {
		c.respondError(err)
		return false
	}

	if !done {
		return true
	}

	c.pipelined++
	if max := c.cfg.HTTP.MaxPipelinedRequests; max > 0 && c.pipelined > max {
		c.respondError(status.ErrTooManyPipelined)
		return false
	}

	if len(extra) > 0 {
		c.client.Pushback(extra)
	}

	return c.dispatch(head)
}

// dispatch runs one already-parsed request head through the handler and writes its response.
// false means the connection must close.
func (c *conn) dispatch(head codec.Head) bool {
	req := c.request
	protocol := req.Protocol

	if protocol == 0 {
		c.respondError(status.ErrUnsupportedVersion)
		return false
	}

	req.Body = c.bodyFor(head)

	expectContinue := !c.cfg.HTTP.DisableExpectContinue && req.Headers.Value("Expect") == "100-continue" && protocol.AtLeast11()
	if expectContinue {
		req.Body.OnFirstRead(func() error {
			return c.serializer.WriteContinue(protocol)
		})
	}

	result := c.handler(req)

	if result.IsUpgrade() {
		return c.upgrade(result)
	}

	var resp *message.Response
	if result.IsFail() {
		httpErr := result.Err()
		resp = message.NewResponse().WithCode(httpErr.Code).WithString(httpErr.Message)
	} else {
		resp = result.Response()
	}

	if resp == nil {
		resp = message.NewResponse().WithCode(status.InternalServerError)
	}

	if expectContinue && !req.Body.FirstReadDone() {
		// the handler returned without ever reading the body: the interim response, if it goes
		// out at all, must precede the definitive one, never follow it (spec §4.3). An error
		// response (>= 300) skips it entirely, since the client shouldn't be told to send a body
		// no one is going to read.
		req.Body.CancelFirstRead()

		if resp.Code < 300 {
			if err := c.serializer.WriteContinue(protocol); err != nil {
				c.disconnect(err)
				return false
			}
		}
	}

	mustClose, err := c.serializer.Write(protocol, req, resp)
	if err != nil {
		c.disconnect(err)
		return false
	}

	if err := req.Body.Drain(c.cfg.Body.DrainCap); err != nil {
		c.disconnect(err)
		return false
	}

	if mustClose || !req.KeepAlive() {
		return false
	}

	req.Reset()
	return true
}

// bodyFor picks the framing rule the codec determined for this request's body (spec §4.1:
// "framing is exclusive"): chunked takes priority when both a chunked coding and a
// Content-Length are present, matching the teacher's own precedence.
func (c *conn) bodyFor(head codec.Head) *body.Inbound {
	switch {
	case head.Chunked:
		return body.NewChunked(c.client, c.cfg.Body.MaxChunkSize, c.cfg.Body.MaxSize)
	case head.HasContentLength:
		return body.NewSized(c.client, head.ContentLength, c.cfg.Body.MaxSize)
	default:
		return body.NewEmpty()
	}
}

func (c *conn) respondError(err error) {
	var httpErr status.HTTPError
	if !errors.As(err, &httpErr) {
		httpErr = status.ErrInternalServerError
	}

	resp := message.NewResponse().WithCode(httpErr.Code).WithString(httpErr.Message)
	_, _ = c.serializer.Write(c.request.Protocol, c.request, resp)
	c.disconnect(err)
}

// disconnect reports a connection ending for a reason other than a clean close or keep-alive
// timeout, per the configured HTTP.OnDisconnect hook.
func (c *conn) disconnect(err error) {
	if hook := c.cfg.HTTP.OnDisconnect; hook != nil {
		hook(err)
	}
}

// upgrade clones the transport handle for the handler's UpgradeFunc before writing anything,
// then writes the 101 response and relinquishes ownership. The engine's own loop ends
// unconditionally afterward: this connection is no longer the engine's to read, write or close
// (spec §4.3 "Upgrading"). If the transport refuses cloning (spec §4.4/§9, e.g. any TLS
// connection), the accept loop would close the very connection the callback is about to be
// handed, so the upgrade is refused with 500 before any 101 bytes go out, rather than handing
// the callback a connection about to be pulled out from under it.
func (c *conn) upgrade(result message.Result) bool {
	headers, fn := result.Upgrade()

	if fn == nil {
		_ = c.serializer.Upgrade(c.request.Protocol, headers)
		return false
	}

	clone, ok := c.client.Clone()
	if !ok {
		c.respondError(status.ErrInternalServerError)
		return false
	}

	if err := c.serializer.Upgrade(c.request.Protocol, headers); err != nil {
		return false
	}

	c.upgraded = true
	fn(clone)
	return false
}
