package codec

import (
	"io"
	"net"
	"strings"
	"testing"

	"github.com/halfpipe/httpcore/body"
	"github.com/halfpipe/httpcore/config"
	"github.com/halfpipe/httpcore/kv"
	"github.com/halfpipe/httpcore/message"
	"github.com/halfpipe/httpcore/method"
	"github.com/halfpipe/httpcore/proto"
	"github.com/halfpipe/httpcore/status"
	"github.com/halfpipe/httpcore/transport"
	"github.com/stretchr/testify/require"
)

func readerBody(s string) *body.Outbound {
	return body.NewOutboundReader(strings.NewReader(s), -1)
}

type recordingClient struct {
	written []byte
}

func (c *recordingClient) Read() ([]byte, error) { return nil, nil }
func (c *recordingClient) Pushback([]byte)       {}
func (c *recordingClient) Write(b []byte) (int, error) {
	c.written = append(c.written, b...)
	return len(b), nil
}
func (c *recordingClient) Conn() net.Conn                  { return nil }
func (c *recordingClient) Remote() net.Addr                { return nil }
func (c *recordingClient) Close() error                    { return nil }
func (c *recordingClient) Clone() (transport.Client, bool) { return nil, false }

func TestSerializer_FixedBody(t *testing.T) {
	client := &recordingClient{}
	s := NewSerializer(config.Default(), client)

	req := message.NewRequest(nil)
	req.Method = method.GET
	resp := message.NewResponse().WithString("hi")

	mustClose, err := s.Write(proto.HTTP11, req, resp)
	require.NoError(t, err)
	require.False(t, mustClose)

	out := string(client.written)
	require.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"))
	require.Contains(t, out, "Content-Length: 2\r\n")
	require.True(t, strings.HasSuffix(out, "\r\n\r\nhi"))
}

func TestSerializer_HeadHasNoBody(t *testing.T) {
	client := &recordingClient{}
	s := NewSerializer(config.Default(), client)

	req := message.NewRequest(nil)
	req.Method = method.HEAD
	resp := message.NewResponse().WithString("hi")

	_, err := s.Write(proto.HTTP11, req, resp)
	require.NoError(t, err)
	require.NotContains(t, string(client.written), "Content-Length")
	require.False(t, strings.HasSuffix(string(client.written), "hi"))
}

func TestSerializer_NoContentIsBodiless(t *testing.T) {
	client := &recordingClient{}
	s := NewSerializer(config.Default(), client)

	req := message.NewRequest(nil)
	req.Method = method.GET
	resp := message.NewResponse().WithCode(status.NoContent)

	_, err := s.Write(proto.HTTP11, req, resp)
	require.NoError(t, err)
	require.NotContains(t, string(client.written), "Content-Length")
}

func TestSerializer_BodilessResponseDropsHandlerFramingHeaders(t *testing.T) {
	client := &recordingClient{}
	s := NewSerializer(config.Default(), client)

	req := message.NewRequest(nil)
	req.Method = method.GET
	resp := message.NewResponse().WithCode(status.NoContent).
		WithHeader("Content-Length", "5").
		WithHeader("Transfer-Encoding", "chunked")

	_, err := s.Write(proto.HTTP11, req, resp)
	require.NoError(t, err)
	require.NotContains(t, string(client.written), "Content-Length")
	require.NotContains(t, string(client.written), "Transfer-Encoding")
}

func TestSerializer_HTTP10UnsizedBodyClosesConnection(t *testing.T) {
	client := &recordingClient{}
	s := NewSerializer(config.Default(), client)

	req := message.NewRequest(nil)
	req.Method = method.GET
	resp := message.NewResponse().WithBody(readerBody("streamed"))

	mustClose, err := s.Write(proto.HTTP10, req, resp)
	require.NoError(t, err)
	require.True(t, mustClose)
	require.Contains(t, string(client.written), "streamed")
	require.Contains(t, string(client.written), "Connection: close\r\n")
}

func TestSerializer_FramingMismatchClosesConnection(t *testing.T) {
	client := &recordingClient{}
	s := NewSerializer(config.Default(), client)

	req := message.NewRequest(nil)
	req.Method = method.GET
	resp := message.NewResponse().WithBody(body.NewOutboundReader(strings.NewReader("hi"), 5))

	mustClose, err := s.Write(proto.HTTP11, req, resp)
	require.ErrorIs(t, err, status.ErrFramingMismatch)
	require.True(t, mustClose)
}

func TestSerializer_ChunkedBodyWritesTrailersAfterTerminator(t *testing.T) {
	client := &recordingClient{}
	s := NewSerializer(config.Default(), client)

	ch := body.NewChannel(4)
	go func() {
		require.NoError(t, ch.Send([]byte("hi")))
		ch.SetTrailers(kv.New().Add("Checksum", "abc"))
		ch.Close()
	}()

	req := message.NewRequest(nil)
	req.Method = method.GET
	resp := message.NewResponse().WithBody(body.NewOutboundChannel(ch))

	mustClose, err := s.Write(proto.HTTP11, req, resp)
	require.NoError(t, err)
	require.False(t, mustClose)

	out := string(client.written)
	require.Contains(t, out, "2\r\nhi\r\n")
	require.Contains(t, out, "0\r\nChecksum: abc\r\n\r\n")
}

func TestSerializer_ChunkedBodyAbortStillWritesTerminator(t *testing.T) {
	client := &recordingClient{}
	s := NewSerializer(config.Default(), client)

	ch := body.NewChannel(4)
	go func() {
		require.NoError(t, ch.Send([]byte("hi")))
		ch.Abort(io.ErrUnexpectedEOF)
	}()

	req := message.NewRequest(nil)
	req.Method = method.GET
	resp := message.NewResponse().WithBody(body.NewOutboundChannel(ch))

	mustClose, err := s.Write(proto.HTTP11, req, resp)
	require.Error(t, err)
	require.True(t, mustClose)
	require.Contains(t, string(client.written), "0\r\n\r\n")
}

func TestSerializer_HTTP11UnsizedBodyIsChunked(t *testing.T) {
	client := &recordingClient{}
	s := NewSerializer(config.Default(), client)

	req := message.NewRequest(nil)
	req.Method = method.GET
	resp := message.NewResponse().WithBody(readerBody("streamed"))

	mustClose, err := s.Write(proto.HTTP11, req, resp)
	require.NoError(t, err)
	require.False(t, mustClose)

	out := string(client.written)
	require.Contains(t, out, "Transfer-Encoding: chunked\r\n")
	require.Contains(t, out, "8\r\nstreamed\r\n")
	require.True(t, strings.HasSuffix(out, "0\r\n\r\n"))
}
