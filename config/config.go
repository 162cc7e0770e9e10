// Package config collects every tunable knob the codec, body streams and connection engine
// read from, following the teacher's config.Config: a tree of small nested structs, each with
// sane defaults, filled in once at App construction and passed down by pointer.
package config

import "time"

type Headers struct {
	// Number bounds how many header fields a single request head may carry.
	Number Number
	// MaxLineSize bounds the combined byte length of every header name and value in one request
	// head: the parser's header buffer is cleared only once a head completes, not per line.
	MaxLineSize int
}

type Number struct {
	Default, Maximal int
}

type Body struct {
	// MaxSize bounds how many bytes of a request body (Content-Length, chunked or read until
	// EOF) may be read.
	MaxSize int64
	// MaxChunkSize bounds a single chunk's declared length, guarding against a malicious
	// or malformed size prefix demanding an unreasonable allocation.
	MaxChunkSize int64
	// DrainCap bounds how many bytes PostResponse will discard from an unread request body
	// before giving up and closing the connection (spec §4.3, ErrBodyTooLargeOnDrain).
	DrainCap int64
	// ChannelCapacity is filled in by Default and Fill but not read by the engine or the body
	// package: body.NewChannel takes its capacity as an argument and falls back to
	// body.DefaultCapacity for zero or less.
	ChannelCapacity int
}

type URI struct {
	// RequestLineSize bounds the request line (method + SP + target + SP + version).
	RequestLineSize Number
}

type NET struct {
	ReadBufferSize            int
	ReadTimeout               time.Duration
	WriteTimeout              time.Duration
	WriteBufferSize           int
	AcceptLoopInterruptPeriod time.Duration
}

type TCP struct {
	// MaxConnections caps concurrently served connections. Zero means unbounded.
	MaxConnections int
	// SingleThreadMode disables the per-connection goroutine, serving strictly one
	// connection at a time on the caller's own goroutine.
	SingleThreadMode bool
}

type HTTP struct {
	// MaxPipelinedRequests bounds how many requests one connection may carry in total; the
	// request past the limit gets a 400 response and the connection closes. Zero means unbounded.
	MaxPipelinedRequests int
	// DefaultHeaders are injected into every response that doesn't already set them.
	DefaultHeaders map[string]string
	// DisableExpectContinue turns off "Expect: 100-continue" support. By default (zero value)
	// the engine honors it, deferring the informational response until the handler's first
	// body read; setting this makes the engine ignore Expect entirely, leaving a strict client
	// to time out or send its body unprompted.
	DisableExpectContinue bool
	// OnDisconnect, if set, is called whenever a connection ends for a reason other than a
	// clean client-initiated close or a normal keep-alive timeout — a parse error, a write
	// failure, or an outbound body with a declared length that produced fewer or more bytes
	// than that length.
	OnDisconnect func(error)
}

type Config struct {
	Headers Headers
	Body    Body
	URI     URI
	NET     NET
	TCP     TCP
	HTTP    HTTP
}

func Default() *Config {
	return &Config{
		Headers: Headers{
			Number:      Number{Default: 10, Maximal: 100},
			MaxLineSize: 8192,
		},
		Body: Body{
			MaxSize:         512 << 20,
			MaxChunkSize:    16 << 20,
			DrainCap:        4 << 20,
			ChannelCapacity: 16,
		},
		URI: URI{
			RequestLineSize: Number{Default: 4096, Maximal: 16384},
		},
		NET: NET{
			ReadBufferSize:            4096,
			ReadTimeout:               90 * time.Second,
			WriteTimeout:              90 * time.Second,
			WriteBufferSize:           4096,
			AcceptLoopInterruptPeriod: time.Second,
		},
		TCP: TCP{
			MaxConnections:   0,
			SingleThreadMode: false,
		},
		HTTP: HTTP{
			MaxPipelinedRequests: 0,
			DefaultHeaders:       map[string]string{"Server": "httpcore"},
		},
	}
}

// Fill replaces every zero-valued field of cfg with Default's corresponding field, so callers
// may build a Config literal specifying only the knobs they care about.
func Fill(cfg Config) *Config {
	def := Default()

	if cfg.Headers.Number.Default == 0 {
		cfg.Headers.Number = def.Headers.Number
	}
	if cfg.Headers.MaxLineSize == 0 {
		cfg.Headers.MaxLineSize = def.Headers.MaxLineSize
	}
	if cfg.Body.MaxSize == 0 {
		cfg.Body.MaxSize = def.Body.MaxSize
	}
	if cfg.Body.MaxChunkSize == 0 {
		cfg.Body.MaxChunkSize = def.Body.MaxChunkSize
	}
	if cfg.Body.DrainCap == 0 {
		cfg.Body.DrainCap = def.Body.DrainCap
	}
	if cfg.Body.ChannelCapacity == 0 {
		cfg.Body.ChannelCapacity = def.Body.ChannelCapacity
	}
	if cfg.URI.RequestLineSize.Default == 0 {
		cfg.URI.RequestLineSize = def.URI.RequestLineSize
	}
	if cfg.NET.ReadBufferSize == 0 {
		cfg.NET.ReadBufferSize = def.NET.ReadBufferSize
	}
	if cfg.NET.ReadTimeout == 0 {
		cfg.NET.ReadTimeout = def.NET.ReadTimeout
	}
	if cfg.NET.WriteTimeout == 0 {
		cfg.NET.WriteTimeout = def.NET.WriteTimeout
	}
	if cfg.NET.WriteBufferSize == 0 {
		cfg.NET.WriteBufferSize = def.NET.WriteBufferSize
	}
	if cfg.NET.AcceptLoopInterruptPeriod == 0 {
		cfg.NET.AcceptLoopInterruptPeriod = def.NET.AcceptLoopInterruptPeriod
	}
	if cfg.HTTP.DefaultHeaders == nil {
		cfg.HTTP.DefaultHeaders = def.HTTP.DefaultHeaders
	}

	return &cfg
}
