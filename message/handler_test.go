package message

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/halfpipe/httpcore/status"
)

func TestResult_Fail(t *testing.T) {
	result := Fail(status.ErrBodyTooLarge)

	require.True(t, result.IsFail())
	require.False(t, result.IsUpgrade())
	require.Equal(t, status.ErrBodyTooLarge, result.Err())
}

func TestResult_Respond(t *testing.T) {
	resp := NewResponse().WithString("ok")
	result := Respond(resp)

	require.False(t, result.IsFail())
	require.False(t, result.IsUpgrade())
	require.Same(t, resp, result.Response())
}
