package hostinfo

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe_Snapshot(t *testing.T) {
	fixed := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	p := &Probe{now: func() time.Time { return fixed }}

	snap, err := p.Snapshot(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, snap.Hostname)
	assert.Equal(t, runtime.GOARCH, snap.Arch)
	assert.Equal(t, runtime.NumCPU(), snap.CPUCores)
	assert.Positive(t, snap.MemoryTotal)
	assert.Equal(t, snap.MemoryTotal-snap.MemoryFree, snap.MemoryUsed)
	assert.Equal(t, fixed, snap.CapturedAt)
}
