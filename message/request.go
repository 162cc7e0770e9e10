package message

import (
	"net"

	"github.com/halfpipe/httpcore/body"
	"github.com/halfpipe/httpcore/kv"
	"github.com/halfpipe/httpcore/method"
	"github.com/halfpipe/httpcore/proto"
	"github.com/halfpipe/httpcore/transport"
)

// Request is a single parsed request head plus a handle on its body stream. It's reused
// across pipelined requests on the same connection (spec §5 "one Request value recycled per
// connection"), so handlers must not retain a Request past the call that received it.
type Request struct {
	Method   method.Method
	Target   string // raw request-target, never percent-decoded (spec §3)
	Protocol proto.Protocol
	Headers  *kv.Headers

	// Connection and Upgrade mirror the eponymous headers, extracted during parsing since the
	// engine needs them before a handler ever runs.
	Connection string
	Upgrade    string

	Body   *body.Inbound
	Remote net.Addr

	client transport.Client
}

func NewRequest(client transport.Client) *Request {
	return &Request{Headers: kv.NewPrealloc(8), client: client}
}

// Reset clears a Request for reuse by the next pipelined request on the same connection.
func (r *Request) Reset() {
	r.Method = method.Unknown
	r.Target = ""
	r.Protocol = proto.Unknown
	r.Headers.Clear()
	r.Connection = ""
	r.Upgrade = ""
	r.Body = nil
}

// Client exposes the underlying transport handle of the connection the request arrived on.
func (r *Request) Client() transport.Client {
	return r.client
}

// Trailers returns headers captured after a chunked request body's terminating chunk. Only
// meaningful once the body has been fully read; empty until then.
func (r *Request) Trailers() *kv.Headers {
	if r.Body == nil {
		return kv.New()
	}

	return r.Body.Trailers()
}

// KeepAlive reports whether the connection should persist after this request/response pair,
// per spec §4.3: HTTP/1.1 defaults to persistent unless Connection: close; HTTP/1.0 requires
// an explicit Connection: keep-alive.
func (r *Request) KeepAlive() bool {
	switch r.Protocol {
	case proto.HTTP11:
		return !equalFoldToken(r.Connection, "close")
	case proto.HTTP10:
		return equalFoldToken(r.Connection, "keep-alive")
	default:
		return false
	}
}

func equalFoldToken(header, token string) bool {
	if len(header) != len(token) {
		return false
	}

	for i := 0; i < len(header); i++ {
		a, b := header[i], token[i]
		if 'A' <= a && a <= 'Z' {
			a += 'a' - 'A'
		}
		if 'A' <= b && b <= 'Z' {
			b += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}

	return true
}
