// Package codec implements the HTTP/1.x wire codec: an incremental request-head parser and a
// response serializer, grounded on the teacher's internal/protocol/http1/parser.go and
// serializer.go. Unlike the teacher, the request target is kept exactly as received (spec §3:
// "the target is never percent-decoded") and no query-string or routing logic lives here.
package codec

import (
	"bytes"

	"github.com/halfpipe/httpcore/config"
	"github.com/halfpipe/httpcore/internal/buffer"
	"github.com/halfpipe/httpcore/message"
	"github.com/halfpipe/httpcore/method"
	"github.com/halfpipe/httpcore/proto"
	"github.com/halfpipe/httpcore/status"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
)

type parserState uint8

const (
	eMethod parserState = iota + 1
	eTarget
	eProtocol
	eHeaderKey
	eContentLength
	eContentLengthCR
	eHeaderValue
	eHeaderValueCRLFCR
)

// Head is what Parser produces once a full request head is read: the framing decision the
// engine needs (content length vs chunked vs neither) plus everything already written into
// the reused Request value.
type Head struct {
	ContentLength    int64
	HasContentLength bool
	Chunked          bool
}

// Parser incrementally parses one HTTP/1.x request head across repeated Parse calls, the same
// resumable-state-machine contract as the teacher's Parser: each call returns either "need
// more data" (done=false), a completed head (done=true, err=nil), or a terminal error.
type Parser struct {
	state                parserState
	metTransferEncoding  bool
	hasContentLength     bool
	contentLengthSeen    bool
	headersNumber        int
	contentLength        int64
	pendingContentLength int64

	cfg     *config.Config
	request *message.Request
	line    *buffer.Buffer
	headers *buffer.Buffer
	key     string
}

func NewParser(cfg *config.Config, request *message.Request, line, headers *buffer.Buffer) *Parser {
	return &Parser{cfg: cfg, state: eMethod, request: request, line: line, headers: headers}
}

// Parse feeds data into the parser. done reports a completed head; extra is the unconsumed
// remainder of data (the start of the body, or of the next pipelined request).
func (p *Parser) Parse(data []byte) (done bool, head Head, extra []byte, err error) {
	request := p.request
	line := p.line
	headers := p.headers
	headersCfg := p.cfg.Headers

	switch p.state {
	case eMethod:
		goto method
	case eTarget:
		goto target
	case eProtocol:
		goto protocol
	case eHeaderKey:
		goto headerKey
	case eContentLength:
		goto contentLength
	case eContentLengthCR:
		goto contentLengthCR
	case eHeaderValue:
		goto headerValue
	case eHeaderValueCRLFCR:
		goto headerValueCRLFCR
	default:
		panic("unreachable")
	}

method:
	for i := 0; i < len(data); i++ {
		if data[i] == ' ' {
			var methodValue []byte
			if line.SegmentLength() == 0 {
				methodValue = data[:i]
			} else {
				if !line.Append(data[:i]) {
					return true, head, nil, status.ErrHeadTooLarge
				}

				methodValue = line.Finish()
			}

			if len(methodValue) == 0 {
				return true, head, nil, status.ErrMalformedHead
			}

			request.Method = method.Parse(uf.B2S(methodValue))
			if request.Method == method.Unknown {
				return true, head, nil, status.ErrMalformedHead
			}

			data = data[i+1:]
			goto target
		}
	}

	if !line.Append(data) {
		return true, head, nil, status.ErrHeadTooLarge
	}

	p.state = eMethod
	return false, head, nil, nil

target:
	{
		boundary := bytes.IndexByte(data, ' ')
		if boundary == -1 {
			if !line.Append(data) {
				return true, head, nil, status.ErrHeadTooLarge
			}

			p.state = eTarget
			return false, head, nil, nil
		}

		if line.SegmentLength() == 0 {
			request.Target = string(data[:boundary])
		} else {
			if !line.Append(data[:boundary]) {
				return true, head, nil, status.ErrHeadTooLarge
			}

			request.Target = string(line.Finish())
		}

		if len(request.Target) == 0 {
			return true, head, nil, status.ErrMalformedHead
		}

		data = data[boundary+1:]
		goto protocol
	}

protocol:
	{
		boundary := bytes.IndexByte(data, '\n')
		if boundary == -1 {
			if !line.Append(data) {
				return true, head, nil, status.ErrHeadTooLarge
			}

			p.state = eProtocol
			return false, head, nil, nil
		}

		var proto_ proto.Protocol
		if line.SegmentLength() == 0 {
			proto_ = proto.FromBytes(stripCR(data[:boundary]))
		} else {
			if !line.Append(data[:boundary]) {
				return true, head, nil, status.ErrHeadTooLarge
			}

			proto_ = proto.FromBytes(stripCR(line.Finish()))
		}

		if proto_ == proto.Unknown {
			return true, head, nil, status.ErrUnsupportedVersion
		}

		request.Protocol = proto_
		data = data[boundary+1:]
	}

headerKey:
	{
		if len(data) == 0 {
			p.state = eHeaderKey
			return false, head, nil, nil
		}

		// a header line starting with SP or HTAB is obs-fold (a folded continuation of the
		// previous header's value), removed from the wire format and rejected outright rather
		// than unfolded (spec §4.1: "obs-fold is rejected").
		if headers.SegmentLength() == 0 && (data[0] == ' ' || data[0] == '\t') {
			return true, head, nil, status.ErrMalformedHead
		}

		switch data[0] {
		case '\n':
			p.finish(request, &head)
			return true, head, data[1:], nil
		case '\r':
			data = data[1:]
			goto headerValueCRLFCR
		}

		colon := bytes.IndexByte(data, ':')
		if colon == -1 {
			if !headers.Append(data) {
				return true, head, nil, status.ErrHeadTooLarge
			}

			p.state = eHeaderKey
			return false, head, nil, nil
		}

		if !headers.Append(data[:colon]) {
			return true, head, nil, status.ErrHeadTooLarge
		}

		p.key = string(headers.Finish())
		data = data[colon+1:]

		if p.headersNumber++; p.headersNumber > headersCfg.Number.Maximal {
			return true, head, nil, status.ErrHeadTooLarge
		}

		if strcomp.EqualFold(p.key, "Content-Length") {
			p.hasContentLength = true
			p.pendingContentLength = 0
			goto contentLength
		}
	}

headerValue:
	{
		lf := bytes.IndexByte(data, '\n')
		if lf == -1 {
			if !headers.Append(data) {
				return true, head, nil, status.ErrHeadTooLarge
			}

			p.state = eHeaderValue
			return false, head, nil, nil
		}

		if !headers.Append(data[:lf]) {
			return true, head, nil, status.ErrHeadTooLarge
		}

		if seg := headers.Preview(); len(seg) > 0 && seg[len(seg)-1] == '\r' {
			headers.Trunc(1)
		}

		data = data[lf+1:]
		value := string(trimPrefixSpaces(headers.Finish()))
		key := p.key
		request.Headers.Add(key, value)

		switch {
		case strcomp.EqualFold(key, "Connection"):
			request.Connection = value
		case strcomp.EqualFold(key, "Upgrade"):
			request.Upgrade = value
		case strcomp.EqualFold(key, "Transfer-Encoding"):
			if p.metTransferEncoding {
				return true, head, nil, status.ErrUnsupportedTransferCode
			}

			p.metTransferEncoding = true
			if !strcomp.EqualFold(lastToken(value), "chunked") {
				return true, head, nil, status.ErrUnsupportedTransferCode
			}

			head.Chunked = true
		}

		goto headerKey
	}

headerValueCRLFCR:
	if len(data) == 0 {
		p.state = eHeaderValueCRLFCR
		return false, head, nil, nil
	}

	if data[0] != '\n' {
		return true, head, nil, status.ErrMalformedHead
	}

	p.finish(request, &head)
	return true, head, data[1:], nil

contentLength:
	for i, char := range data {
		if char == ' ' {
			continue
		}

		if char < '0' || char > '9' {
			data = data[i:]
			goto contentLengthEnd
		}

		p.pendingContentLength = p.pendingContentLength*10 + int64(char-'0')
	}

	p.state = eContentLength
	return false, head, nil, nil

contentLengthEnd:
	switch data[0] {
	case '\r':
		data = data[1:]
		goto contentLengthCR
	case '\n':
		data = data[1:]
		if err := p.commitContentLength(); err != nil {
			return true, head, nil, err
		}
		goto headerKey
	default:
		return true, head, nil, status.ErrMalformedHead
	}

contentLengthCR:
	if len(data) == 0 {
		p.state = eContentLengthCR
		return false, head, nil, nil
	}

	if data[0] != '\n' {
		return true, head, nil, status.ErrMalformedHead
	}

	data = data[1:]
	if err := p.commitContentLength(); err != nil {
		return true, head, nil, err
	}
	goto headerKey
}

// commitContentLength finalizes one parsed Content-Length occurrence. The first occurrence is
// accepted as the request's declared length; every later one must agree exactly, or the request
// is malformed (spec §4.1) — this is also what guards against a CL.CL request-smuggling desync.
func (p *Parser) commitContentLength() error {
	if p.contentLengthSeen && p.pendingContentLength != p.contentLength {
		return status.ErrMalformedHead
	}

	p.contentLength = p.pendingContentLength
	p.contentLengthSeen = true
	return nil
}

func (p *Parser) finish(request *message.Request, head *Head) {
	head.ContentLength = p.contentLength
	head.HasContentLength = p.hasContentLength
	p.metTransferEncoding = false
	p.hasContentLength = false
	p.contentLengthSeen = false
	p.headersNumber = 0
	p.contentLength = 0
	p.pendingContentLength = 0
	p.line.Clear()
	p.headers.Clear()
	p.state = eMethod
}

func trimPrefixSpaces(b []byte) []byte {
	for i, char := range b {
		if char != ' ' {
			return b[i:]
		}
	}

	return b[:0]
}

func stripCR(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\r' {
		return b[:len(b)-1]
	}

	return b
}

// lastToken returns the final comma-separated token of a header value, used to check that
// "chunked" is the last transfer coding applied (spec §4.1: chunked must be the final coding).
func lastToken(value string) string {
	comma := bytes.LastIndexByte(uf.S2B(value), ',')
	if comma == -1 {
		return trimSpaceBoth(value)
	}

	return trimSpaceBoth(value[comma+1:])
}

func trimSpaceBoth(s string) string {
	for len(s) > 0 && s[0] == ' ' {
		s = s[1:]
	}
	for len(s) > 0 && s[len(s)-1] == ' ' {
		s = s[:len(s)-1]
	}
	return s
}
