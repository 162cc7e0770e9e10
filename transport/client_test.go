package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func tcpPipe(t *testing.T) (server, client net.Conn) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	acceptedCh := make(chan net.Conn, 1)
	go func() {
		conn, err := l.Accept()
		require.NoError(t, err)
		acceptedCh <- conn
	}()

	client, err = net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)

	return <-acceptedCh, client
}

func TestClient_PushbackIsReadFirst(t *testing.T) {
	server, conn := tcpPipe(t)
	defer server.Close()
	defer conn.Close()

	c := NewClient(server, time.Second, time.Second, make([]byte, 64))
	c.Pushback([]byte("buffered"))

	data, err := c.Read()
	require.NoError(t, err)
	require.Equal(t, "buffered", string(data))
}

func TestClient_CloneDuplicatesTCP(t *testing.T) {
	server, conn := tcpPipe(t)
	defer server.Close()
	defer conn.Close()

	c := NewClient(server, time.Second, time.Second, make([]byte, 64))
	clone, ok := c.Clone()
	require.True(t, ok)
	defer clone.Close()

	_, err := conn.Write([]byte("via-original"))
	require.NoError(t, err)

	data, err := c.Read()
	require.NoError(t, err)
	require.Equal(t, "via-original", string(data))
}
