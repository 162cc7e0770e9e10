package codec

import (
	"testing"

	"github.com/halfpipe/httpcore/config"
	"github.com/halfpipe/httpcore/internal/buffer"
	"github.com/halfpipe/httpcore/message"
	"github.com/halfpipe/httpcore/method"
	"github.com/halfpipe/httpcore/proto"
	"github.com/halfpipe/httpcore/status"
	"github.com/dchest/uniuri"
	"github.com/stretchr/testify/require"
)

func newTestParser() (*Parser, *message.Request) {
	cfg := config.Default()
	req := message.NewRequest(nil)
	line := buffer.New(0, cfg.URI.RequestLineSize.Maximal)
	headers := buffer.New(0, cfg.Headers.MaxLineSize)

	return NewParser(cfg, req, &line, &headers), req
}

func feedHead(p *Parser, data []byte) (done bool, head Head, extra []byte, err error) {
	for len(data) > 0 {
		done, head, extra, err = p.Parse(data)
		if done || err != nil {
			return done, head, extra, err
		}

		data = extra
	}

	return false, head, nil, nil
}

func TestParser_SimpleGET(t *testing.T) {
	p, req := newTestParser()

	done, head, extra, err := feedHead(p, []byte("GET /hello HTTP/1.1\r\nHost: example.com\r\n\r\nrest"))
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, "rest", string(extra))
	require.Equal(t, method.GET, req.Method)
	require.Equal(t, "/hello", req.Target)
	require.Equal(t, proto.HTTP11, req.Protocol)
	require.Equal(t, "example.com", req.Headers.Value("Host"))
	require.Zero(t, head.ContentLength)
	require.False(t, head.Chunked)
}

func TestParser_PercentEncodedTargetIsNotDecoded(t *testing.T) {
	p, req := newTestParser()

	_, _, _, err := feedHead(p, []byte("GET /a%20b HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	require.Equal(t, "/a%20b", req.Target)
}

func TestParser_ContentLength(t *testing.T) {
	p, _ := newTestParser()

	done, head, extra, err := feedHead(p, []byte("POST / HTTP/1.1\r\nContent-Length: 13\r\n\r\nHello, world!"))
	require.NoError(t, err)
	require.True(t, done)
	require.EqualValues(t, 13, head.ContentLength)
	require.Equal(t, "Hello, world!", string(extra))
}

func TestParser_DuplicateAgreeingContentLengthIsAccepted(t *testing.T) {
	p, _ := newTestParser()

	done, head, _, err := feedHead(p, []byte(
		"POST / HTTP/1.1\r\nContent-Length: 5\r\nContent-Length: 5\r\n\r\n",
	))
	require.NoError(t, err)
	require.True(t, done)
	require.EqualValues(t, 5, head.ContentLength)
}

func TestParser_ConflictingContentLengthIsMalformed(t *testing.T) {
	p, _ := newTestParser()

	_, _, _, err := feedHead(p, []byte(
		"POST / HTTP/1.1\r\nContent-Length: 5\r\nContent-Length: 6\r\n\r\n",
	))
	require.EqualError(t, err, status.ErrMalformedHead.Error())
}

func TestParser_ObsFoldIsRejected(t *testing.T) {
	p, _ := newTestParser()

	_, _, _, err := feedHead(p, []byte(
		"GET / HTTP/1.1\r\nX-Foo: bar\r\n baz\r\n\r\n",
	))
	require.EqualError(t, err, status.ErrMalformedHead.Error())
}

func TestParser_ChunkedMustBeLastCoding(t *testing.T) {
	p, _ := newTestParser()

	_, _, _, err := feedHead(p, []byte("POST / HTTP/1.1\r\nTransfer-Encoding: chunked, gzip\r\n\r\n"))
	require.EqualError(t, err, status.ErrUnsupportedTransferCode.Error())
}

func TestParser_Chunked(t *testing.T) {
	p, _ := newTestParser()

	done, head, _, err := feedHead(p, []byte("POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n"))
	require.NoError(t, err)
	require.True(t, done)
	require.True(t, head.Chunked)
}

func TestParser_BadVersion(t *testing.T) {
	p, _ := newTestParser()

	_, _, _, err := feedHead(p, []byte("GET / HTTP/9.9\r\n\r\n"))
	require.EqualError(t, err, status.ErrUnsupportedVersion.Error())
}

func TestParser_ByteAtATime(t *testing.T) {
	sample := []byte("GET /path HTTP/1.1\r\nHost: a.b\r\nX-Foo: " + uniuri.NewLen(4) + "\r\n\r\n")

	for split := 1; split < len(sample); split++ {
		p, req := newTestParser()

		var (
			done bool
			head Head
			err  error
		)

		for offset := 0; offset < len(sample) && !done; offset += split {
			end := min(offset+split, len(sample))
			done, head, _, err = p.Parse(sample[offset:end])
			require.NoError(t, err)
		}

		require.True(t, done)
		require.Equal(t, "/path", req.Target)
		require.Zero(t, head.ContentLength)
	}
}
