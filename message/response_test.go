package message

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/halfpipe/httpcore/status"
)

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func TestResponse_JSON(t *testing.T) {
	resp := NewResponse().JSON(map[string]int{"a": 1})

	require.Equal(t, "application/json", resp.Headers.Value("Content-Type"))

	var buf []byte
	err := resp.Body.Emit(writerFunc(func(p []byte) (int, error) {
		buf = append(buf, p...)
		return len(p), nil
	}))
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(buf))
}

func TestResponse_JSONMarshalFailureIsInternalServerError(t *testing.T) {
	resp := NewResponse().JSON(make(chan int))

	require.Equal(t, status.InternalServerError, resp.Code)
}
