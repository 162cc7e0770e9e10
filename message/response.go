package message

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/halfpipe/httpcore/body"
	"github.com/halfpipe/httpcore/kv"
	"github.com/halfpipe/httpcore/status"
)

// Response is a builder for the outbound half of a request/response pair, following the
// teacher's http/response.go pattern of a mutable, reused value returned from a fluent API
// rather than an immutable struct literal.
type Response struct {
	Code    status.Code
	Headers *kv.Headers
	Body    *body.Outbound
}

// NewResponse returns a 200 OK response with an empty body, mirroring the teacher's
// NewResponse default.
func NewResponse() *Response {
	return &Response{
		Code:    status.OK,
		Headers: kv.New(),
		Body:    body.NewOutboundEmpty(),
	}
}

func (r *Response) WithCode(code status.Code) *Response {
	r.Code = code
	return r
}

func (r *Response) WithHeader(key, value string) *Response {
	r.Headers.Add(key, value)
	return r
}

// WithString sets a fixed, in-memory body, framed with Content-Length.
func (r *Response) WithString(s string) *Response {
	r.Body = body.NewOutboundFixed([]byte(s))
	return r
}

// WithBytes sets a fixed, in-memory body without copying it.
func (r *Response) WithBytes(b []byte) *Response {
	r.Body = body.NewOutboundFixed(b)
	return r
}

// WithBody attaches a caller-constructed Outbound, e.g. body.NewOutboundReader for a file or
// body.NewOutboundChannel for a handler-driven stream (spec §4.2).
func (r *Response) WithBody(b *body.Outbound) *Response {
	r.Body = b
	return r
}

// WithTrailers attaches trailers to a channel-backed body, written after the chunked
// terminator once the body finishes cleanly (spec §4.2). A no-op for any other body kind.
func (r *Response) WithTrailers(h *kv.Headers) *Response {
	r.Body.SetTrailers(h)
	return r
}

// JSON marshals v and sets it as a fixed, Content-Length framed body with a Content-Type of
// application/json. A marshal failure turns the response into a bare 500, since the fluent
// builder chain has no other way to surface the error.
func (r *Response) JSON(v any) *Response {
	data, err := jsoniter.Marshal(v)
	if err != nil {
		return r.WithCode(status.InternalServerError).WithBody(body.NewOutboundEmpty())
	}

	r.Headers.Add("Content-Type", "application/json")
	return r.WithBytes(data)
}
