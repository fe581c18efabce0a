package ingest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusGate(t *testing.T) {
	status := NewStatus()

	assert.False(t, status.IsRunning())
	assert.True(t, status.TryStart())
	assert.True(t, status.IsRunning())

	// The slot is exclusive until released.
	assert.False(t, status.TryStart())

	status.Finish("done")
	assert.False(t, status.IsRunning())
	assert.True(t, status.TryStart())
}

func TestStatusProgressFloor(t *testing.T) {
	status := NewStatus()
	require.True(t, status.TryStart())

	status.Update("a.py", 1, 3, "")
	assert.Equal(t, 33, status.Snapshot().ProgressPercent)

	status.Update("b.py", 2, 3, "")
	assert.Equal(t, 66, status.Snapshot().ProgressPercent)

	status.Update("c.py", 3, 3, "")
	assert.Equal(t, 100, status.Snapshot().ProgressPercent)
}

func TestStatusFinishSetsHundred(t *testing.T) {
	status := NewStatus()
	require.True(t, status.TryStart())

	status.Update("a.py", 1, 7, "")
	assert.Less(t, status.Snapshot().ProgressPercent, 100)

	status.Finish("Ingestion Complete. 7 files processed.")
	view := status.Snapshot()
	assert.Equal(t, 100, view.ProgressPercent)
	assert.False(t, view.IsRunning)
	assert.Empty(t, view.CurrentFile)
}

func TestStatusFailReleasesWithoutCompleting(t *testing.T) {
	status := NewStatus()
	require.True(t, status.TryStart())

	status.Update("a.py", 1, 4, "")
	status.Fail("Logic Core Failed")

	view := status.Snapshot()
	assert.False(t, view.IsRunning)
	assert.Equal(t, 25, view.ProgressPercent)
	assert.Contains(t, view.Log[len(view.Log)-1], "Logic Core Failed")
}

func TestStatusLogCap(t *testing.T) {
	status := NewStatus()
	require.True(t, status.TryStart())

	for i := 0; i < maxLogEntries+10; i++ {
		status.Update("f", i, 100, fmt.Sprintf("entry %d", i))
	}

	log := status.Snapshot().Log
	require.Len(t, log, maxLogEntries)
	// Oldest entries were dropped.
	assert.Contains(t, log[0], "entry 10")
	assert.Contains(t, log[len(log)-1], fmt.Sprintf("entry %d", maxLogEntries+9))
}

func TestStatusLogTimestamped(t *testing.T) {
	status := NewStatus()
	require.True(t, status.TryStart())

	status.Update("f", 0, 1, "hello")
	log := status.Snapshot().Log
	require.Len(t, log, 1)
	assert.Regexp(t, `^\[\d{2}:\d{2}:\d{2}\] hello$`, log[0])
}

func TestStatusSnapshotIsCopy(t *testing.T) {
	status := NewStatus()
	require.True(t, status.TryStart())
	status.Update("f", 0, 1, "one")

	view := status.Snapshot()
	view.Log[0] = "mutated"

	assert.Contains(t, status.Snapshot().Log[0], "one")
}
