package chunked

import (
	"io"
	"testing"

	"github.com/halfpipe/httpcore/status"
	"github.com/stretchr/testify/require"
)

func feed(p *Parser, input []byte) (output, extra []byte, err error) {
	for len(input) > 0 {
		var data []byte
		data, input, err = p.Parse(input)
		output = append(output, data...)
		switch err {
		case nil:
		case io.EOF:
			return output, input, nil
		default:
			return output, input, err
		}
	}

	return output, nil, nil
}

func scatter(data []byte, n int) (pieces [][]byte) {
	for len(data) > 0 {
		size := min(n, len(data))
		pieces = append(pieces, data[:size])
		data = data[size:]
	}

	return pieces
}

func TestChunked(t *testing.T) {
	t.Run("just trailer", func(t *testing.T) {
		p := New(1 << 20)
		output, extra, err := feed(p, []byte("0\r\n\r\n"))
		require.NoError(t, err)
		require.Empty(t, extra)
		require.Empty(t, output)
		require.True(t, p.Trailers().Empty())
	})

	t.Run("trailer with field lines are captured", func(t *testing.T) {
		p := New(1 << 20)
		output, extra, err := feed(p, []byte("0\r\nChecksum: abc123\r\nX-Sig: deadbeef\r\n\r\n"))
		require.NoError(t, err)
		require.Empty(t, extra)
		require.Empty(t, output)
		require.Equal(t, "abc123", p.Trailers().Value("Checksum"))
		require.Equal(t, "deadbeef", p.Trailers().Value("X-Sig"))
	})

	testSimpleChunked := func(t *testing.T, p *Parser) {
		output, extra, err := feed(p, []byte("d\r\nHello, world!\r\n0\r\n\r\n"))
		require.NoError(t, err)
		require.Empty(t, extra)
		require.Equal(t, "Hello, world!", string(output))
	}

	t.Run("single simple small chunk", func(t *testing.T) {
		testSimpleChunked(t, New(1<<20))
	})

	t.Run("reusability", func(t *testing.T) {
		p := New(1 << 20)

		for range 10 {
			p.Reset()
			testSimpleChunked(t, p)
		}
	})

	t.Run("extension", func(t *testing.T) {
		p := New(1 << 20)
		output, extra, err := feed(p, []byte("d;hello=world\r\nHello, world!\r\n0; checksum=no one cares\r\n\r\n"))
		require.NoError(t, err)
		require.Empty(t, extra)
		require.Equal(t, "Hello, world!", string(output))
	})

	t.Run("LF use", func(t *testing.T) {
		p := New(1 << 20)
		output, extra, err := feed(p, []byte("d;hello=world\nHello, world!\n0; checksum=no one cares\n\n"))
		require.NoError(t, err)
		require.Empty(t, extra)
		require.Equal(t, "Hello, world!", string(output))
	})

	t.Run("fuzz input chunk sizes", func(t *testing.T) {
		sample := []byte("d;hello=world\r\nHello, world!\r\nd\r\nHello, Pavlo!\r\n0; checksum=no one cares\r\n\r\n")
		for i := range len(sample) - 1 {
			p := New(1 << 20)
			var output []byte

			for _, chunk := range scatter(sample, i+1) {
				out, extra, err := feed(p, chunk)
				require.NoError(t, err)
				require.Empty(t, extra)
				output = append(output, out...)
			}

			require.Equal(t, "Hello, world!Hello, Pavlo!", string(output))
		}
	})

	t.Run("multiple hex characters", func(t *testing.T) {
		p := New(1 << 20)
		output, extra, err := feed(p, []byte(
			"0000d\r\nHello, world!\r\n0000d\r\nHello, Pavlo!\r\n0\r\n\r\n",
		))
		require.NoError(t, err)
		require.Empty(t, extra)
		require.Equal(t, "Hello, world!Hello, Pavlo!", string(output))
	})

	t.Run("bad hex character", func(t *testing.T) {
		p := New(1 << 20)
		_, _, err := feed(p, []byte("dg\r\nHello, world!\r\n0\r\n\r\n"))
		require.EqualError(t, err, status.ErrBadChunk.Error())
	})

	t.Run("chunk length exceeds the configured maximum", func(t *testing.T) {
		p := New(10)
		_, _, err := feed(p, []byte("ff\r\n"))
		require.EqualError(t, err, status.ErrBadChunk.Error())
	})
}
