package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWallClock_StaysWithinResolutionOfRealTime(t *testing.T) {
	const threshold = 200 * time.Millisecond

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		drift := time.Since(wallClock())
		require.Less(t, drift, clockResolution+resolutionSlack)
		time.Sleep(threshold)
	}
}

// resolutionSlack accounts for scheduling jitter around the background updater's Sleep call,
// the same margin the ticking clock this was adapted from budgeted for.
const resolutionSlack = clockResolution / 2
