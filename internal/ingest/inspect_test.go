package ingest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectorFrameFields(t *testing.T) {
	inspector := NewInspector()

	vec := make([]float32, 8)
	for i := range vec {
		vec[i] = float32(i) / 10
	}
	inspector.Push("main.py", 3, "def main():", vec)

	frames := inspector.Drain()
	require.Len(t, frames, 1)

	frame := frames[0]
	assert.Equal(t, "main.py_3", frame.ID)
	assert.Equal(t, "main.py", frame.File)
	assert.Equal(t, 3, frame.ChunkIndex)
	assert.Equal(t, "def main():", frame.Content)
	assert.Equal(t, vec[:previewComponents], frame.VectorPreview)
	assert.NotZero(t, frame.Timestamp)
}

func TestInspectorDrainIsDestructive(t *testing.T) {
	inspector := NewInspector()
	inspector.Push("a.py", 0, "x", []float32{0, 0, 0})

	require.Len(t, inspector.Drain(), 1)
	assert.Empty(t, inspector.Drain())
	assert.Zero(t, inspector.Len())
}

func TestInspectorCap(t *testing.T) {
	inspector := NewInspector()

	for i := 0; i < maxFrames+5; i++ {
		inspector.Push("f.py", i, fmt.Sprintf("chunk %d", i), []float32{0, 0, 0})
	}

	frames := inspector.Drain()
	require.Len(t, frames, maxFrames)
	// Oldest frames were dropped.
	assert.Equal(t, 5, frames[0].ChunkIndex)
	assert.Equal(t, maxFrames+4, frames[len(frames)-1].ChunkIndex)
}

func TestInspectorClear(t *testing.T) {
	inspector := NewInspector()
	inspector.Push("a.py", 0, "x", []float32{0, 0, 0})
	inspector.Push("a.py", 1, "y", []float32{0, 0, 0})

	inspector.Clear()
	assert.Zero(t, inspector.Len())
}

func TestConceptColor(t *testing.T) {
	assert.Equal(t, "#ff7f00", conceptColor([]float32{1, 0, -1}))
	assert.Equal(t, "#7f7f7f", conceptColor([]float32{0, 0, 0}))
	// Out-of-range components clamp instead of wrapping.
	assert.Equal(t, "#ff0000", conceptColor([]float32{5, -5, -1}))
	// Short vectors fill missing channels with the midpoint.
	assert.Equal(t, "#ff7f7f", conceptColor([]float32{1}))
}
