package transport

import (
	"net"
	"time"
)

type Client interface {
	Read() ([]byte, error)
	Pushback([]byte)
	Write([]byte) (int, error)
	Conn() net.Conn
	Remote() net.Addr
	Close() error

	// Clone returns an independent handle onto the same underlying connection, for handing off
	// to an UpgradeFunc without keeping the engine's own read/write state entangled with it.
	// ok is false when the transport can't be cheaply duplicated (spec §4.4, "TLS may refuse
	// cloning"); the engine then refuses the upgrade with a 500 response before writing any
	// 101 bytes.
	Clone() (Client, bool)
}

type client struct {
	conn         net.Conn
	buff         []byte
	pending      []byte
	timeout      time.Duration
	writeTimeout time.Duration
}

func NewClient(conn net.Conn, timeout, writeTimeout time.Duration, buff []byte) Client {
	return &client{
		buff:         buff,
		conn:         conn,
		timeout:      timeout,
		writeTimeout: writeTimeout,
	}
}

// Read reads data into the internal buffer and returns a piece of it back. Timeouts are also
// handled automatically.
func (c *client) Read() ([]byte, error) {
	if len(c.pending) > 0 {
		pending := c.pending
		c.pending = nil

		return pending, nil
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}

	n, err := c.conn.Read(c.buff)
	return c.buff[:n], err
}

// Pending returns data (if any) preserved via Pushback.
func (c *client) Pending() []byte {
	return c.pending
}

// Pushback preserves a chunk of data from previous read for the next read.
func (c *client) Pushback(b []byte) {
	c.pending = b
}

// Conn unwraps the underlying net.Conn.
func (c *client) Conn() net.Conn {
	return c.conn
}

// Write writes data into the underlying connection, subject to the configured write timeout.
func (c *client) Write(b []byte) (int, error) {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return 0, err
		}
	}

	return c.conn.Write(b)
}

// Remote returns the remote address of the connection.
func (c *client) Remote() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the connection.
func (c *client) Close() error {
	return c.conn.Close()
}

// Clone duplicates the connection's file descriptor for TCP and Unix sockets (spec §3/§4.4,
// "cheap clone of transport"), following the original implementation's Connection::try_clone.
// Any other net.Conn, notably a TLS connection wrapping a shared cipher session, refuses.
func (c *client) Clone() (Client, bool) {
	conn, ok := cloneConn(c.conn)
	if !ok {
		return nil, false
	}

	return NewClient(conn, c.timeout, c.writeTimeout, make([]byte, len(c.buff))), true
}
