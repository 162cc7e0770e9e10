// Package proto holds the HTTP protocol version enum, ported from the teacher's
// http/proto/proto.go.
package proto

import "github.com/indigo-web/utils/uf"

// Protocol is a bitset so upgrade negotiation (spec §4.3, "Upgrade") can express "either
// 1.0 or 1.1 accepted" as HTTP1 without a slice.
type Protocol uint8

const (
	Unknown Protocol = 0
	HTTP10  Protocol = 1 << iota
	HTTP11

	HTTP1 = HTTP10 | HTTP11
)

func (p Protocol) String() string {
	switch p {
	case HTTP10:
		return "HTTP/1.0"
	case HTTP11:
		return "HTTP/1.1"
	default:
		return ""
	}
}

// AtLeast11 reports whether p includes only HTTP/1.1 (used for 100-continue and
// chunked-response eligibility, both HTTP/1.1-only per spec §4.3/§3).
func (p Protocol) AtLeast11() bool {
	return p == HTTP11
}

const (
	tokenLength   = len("HTTP/x.x")
	majorOffset   = len("HTTP/x") - 1
	minorOffset   = len("HTTP/x.x") - 1
	schemePrefix  = "HTTP/"
	schemeLength  = len(schemePrefix)
)

// FromBytes parses a raw "HTTP/x.x" token, returning Unknown for anything else. The version
// error path (spec §7 UnsupportedVersion) is triggered by callers checking for Unknown.
func FromBytes(raw []byte) Protocol {
	if len(raw) != tokenLength || uf.B2S(raw[:schemeLength]) != schemePrefix {
		return Unknown
	}

	major, minor := raw[majorOffset]-'0', raw[minorOffset]-'0'
	if major > 9 || minor > 9 {
		return Unknown
	}

	return fromDigits(major, minor)
}

func fromDigits(major, minor byte) Protocol {
	if major == 1 {
		switch minor {
		case 0:
			return HTTP10
		case 1:
			return HTTP11
		}
	}

	return Unknown
}
