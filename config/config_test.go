package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFill_WriteTimeoutDefaultsWhenUnset(t *testing.T) {
	cfg := Fill(Config{})
	require.Equal(t, Default().NET.WriteTimeout, cfg.NET.WriteTimeout)
}

func TestFill_WriteTimeoutPreservesExplicitValue(t *testing.T) {
	cfg := Fill(Config{NET: NET{WriteTimeout: 5 * time.Second}})
	require.Equal(t, 5*time.Second, cfg.NET.WriteTimeout)
}

func TestFill_ExpectContinueEnabledByDefault(t *testing.T) {
	cfg := Fill(Config{})
	require.False(t, cfg.HTTP.DisableExpectContinue)
}

func TestFill_DisableExpectContinuePreserved(t *testing.T) {
	cfg := Fill(Config{HTTP: HTTP{DisableExpectContinue: true}})
	require.True(t, cfg.HTTP.DisableExpectContinue)
}

func TestFill_OnDisconnectPreserved(t *testing.T) {
	called := false
	cfg := Fill(Config{HTTP: HTTP{OnDisconnect: func(error) { called = true }}})
	require.NotNil(t, cfg.HTTP.OnDisconnect)
	cfg.HTTP.OnDisconnect(nil)
	require.True(t, called)
}
