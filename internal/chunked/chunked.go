// Package chunked implements the chunked transfer-coding frame parser: a resumable,
// goto-based state machine grounded on the teacher's internal/protocol/http1/chunked.go.
// Unlike that version, trailer field lines are captured into a kv.Headers instead of being
// scanned past and discarded, since request trailers are exposed to handlers through
// body.Inbound.Trailers.
package chunked

import (
	"bytes"
	"io"
	"strings"

	"github.com/halfpipe/httpcore/kv"
	"github.com/halfpipe/httpcore/status"
)

type state uint8

const (
	sLength state = iota
	sExt
	sLengthCR
	sBody
	sBodyDone
	sBodyCRLF
	sTrailer
	sTrailerCRLF
	sTrailerFieldLine
)

// maxLengthDigits bounds a chunk-size token to 16 hex digits (a full uint64), well past any
// sane single-chunk size; MaxChunkSize below does the real bounding.
const maxLengthDigits = 16

// Parser turns a raw chunked-encoded byte stream into a sequence of chunks, terminated by a
// zero-length chunk and an optional block of trailer headers (spec §3 "Trailers").
type Parser struct {
	state        state
	lengthDigits uint8
	chunkLength  uint64
	maxChunkSize uint64

	trailers *kv.Headers
	line     []byte // accumulates a trailer field line across Parse calls
}

func New(maxChunkSize int64) *Parser {
	return &Parser{state: sLength, maxChunkSize: uint64(maxChunkSize), trailers: kv.New()}
}

// Reset prepares the parser for a new body, clearing captured trailers.
func (p *Parser) Reset() {
	p.state = sLength
	p.lengthDigits = 0
	p.chunkLength = 0
	p.line = p.line[:0]
	p.trailers.Clear()
}

// Trailers returns the trailer headers captured by the last completed Parse pass.
func (p *Parser) Trailers() *kv.Headers {
	return p.trailers
}

// Parse consumes data and returns the next available chunk (chunk) along with whatever data
// followed it in the same buffer (extra). io.EOF signals the terminating chunk was consumed
// and trailers are ready to read via Trailers.
func (p *Parser) Parse(data []byte) (chunk, extra []byte, err error) {
	switch p.state {
	case sLength:
		goto length
	case sExt:
		goto ext
	case sLengthCR:
		goto lengthCR
	case sBody:
		goto body
	case sBodyDone:
		goto bodyDone
	case sBodyCRLF:
		goto bodyCRLF
	case sTrailer:
		goto trailer
	case sTrailerCRLF:
		goto trailerCRLF
	case sTrailerFieldLine:
		goto trailerFieldLine
	default:
		panic("unreachable")
	}

length:
	for i := 0; i < len(data); i++ {
		switch char := data[i]; char {
		case '\r':
			data = data[i+1:]
			goto lengthCR
		case '\n':
			data = data[i:]
			goto lengthCR
		case ';':
			data = data[i+1:]
			goto ext
		default:
			val := hexval(char)
			if val == 0xFF {
				return nil, nil, status.ErrBadChunk
			}

			p.chunkLength = (p.chunkLength << 4) | uint64(val)
			if p.lengthDigits++; p.lengthDigits > maxLengthDigits || p.chunkLength > p.maxChunkSize {
				return nil, nil, status.ErrBadChunk
			}
		}
	}

	p.state = sLength
	return nil, nil, nil

ext:
	{
		boundary := bytes.IndexByte(data, '\n')
		if boundary == -1 {
			p.state = sExt
			return nil, nil, nil
		}

		data = data[boundary+1:]
		if p.chunkLength == 0 {
			goto trailer
		}

		goto body
	}

lengthCR:
	if len(data) == 0 {
		p.state = sLengthCR
		return nil, nil, nil
	}

	if data[0] != '\n' {
		return nil, nil, status.ErrBadChunk
	}

	data = data[1:]

	if p.chunkLength == 0 {
		goto trailer
	}

	goto body

body:
	{
		n := min(p.chunkLength, uint64(len(data)))
		p.chunkLength -= n
		chunk = data[:n]

		if p.chunkLength == 0 {
			p.state = sBodyDone
		} else {
			p.state = sBody
		}

		return chunk, data[n:], nil
	}

bodyDone:
	p.lengthDigits = 0
	switch data[0] {
	case '\r':
		data = data[1:]
		goto bodyCRLF
	case '\n':
		data = data[1:]
		goto length
	default:
		return nil, nil, status.ErrBadChunk
	}

bodyCRLF:
	if len(data) == 0 {
		p.state = sBodyCRLF
		return nil, nil, nil
	}

	if data[0] != '\n' {
		return nil, nil, status.ErrBadChunk
	}

	data = data[1:]
	goto length

trailer:
	if len(data) == 0 {
		p.state = sTrailer
		return nil, nil, nil
	}

	switch data[0] {
	case '\r':
		data = data[1:]
		goto trailerCRLF
	case '\n':
		p.state = sLength
		return nil, data[1:], io.EOF
	default:
		goto trailerFieldLine
	}

trailerCRLF:
	if len(data) == 0 {
		p.state = sTrailerCRLF
		return nil, nil, nil
	}

	if data[0] != '\n' {
		return nil, nil, status.ErrBadChunk
	}

	p.state = sLength
	return nil, data[1:], io.EOF

trailerFieldLine:
	{
		boundary := bytes.IndexByte(data, '\n')
		if boundary == -1 {
			p.line = append(p.line, data...)
			p.state = sTrailerFieldLine
			return nil, nil, nil
		}

		p.line = append(p.line, data[:boundary+1]...)
		p.addTrailer(p.line)
		p.line = p.line[:0]

		data = data[boundary+1:]
		goto trailer
	}
}

// addTrailer parses a single "Key: Value\r\n" field line into the trailer set, ignoring
// malformed lines rather than aborting the whole body (a rogue trailer shouldn't sink an
// otherwise-complete transfer).
func (p *Parser) addTrailer(line []byte) {
	line = bytes.TrimRight(line, "\r\n")
	colon := bytes.IndexByte(line, ':')
	if colon == -1 {
		return
	}

	key := strings.TrimSpace(string(line[:colon]))
	value := strings.TrimSpace(string(line[colon+1:]))
	if len(key) == 0 {
		return
	}

	p.trailers.Add(key, value)
}

func hexval(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0xFF
	}
}
