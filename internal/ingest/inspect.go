package ingest

import (
	"fmt"
	"sync"
	"time"
)

const (
	// maxFrames caps the inspection buffer; older frames are dropped first.
	maxFrames = 20

	// previewComponents is how many leading vector components a frame carries.
	previewComponents = 5
)

// Frame is one processed chunk surfaced to the live inspection pane.
type Frame struct {
	ID            string    `json:"id"`
	File          string    `json:"file"`
	ChunkIndex    int       `json:"chunk_index"`
	Content       string    `json:"content"`
	VectorPreview []float32 `json:"vector_preview"`
	ConceptColor  string    `json:"concept_color"`
	Timestamp     float64   `json:"timestamp"`
}

// Inspector buffers the most recent chunk frames for UI polling. Drain
// is destructive so each frame is delivered at most once.
type Inspector struct {
	mu     sync.Mutex
	frames []Frame
}

// NewInspector creates an empty inspection buffer.
func NewInspector() *Inspector {
	return &Inspector{frames: make([]Frame, 0, maxFrames)}
}

// Push adds a frame for a freshly embedded chunk.
func (i *Inspector) Push(fileName string, chunkIndex int, content string, vector []float32) {
	preview := vector
	if len(preview) > previewComponents {
		preview = preview[:previewComponents]
	}
	previewCopy := make([]float32, len(preview))
	copy(previewCopy, preview)

	frame := Frame{
		ID:            fmt.Sprintf("%s_%d", fileName, chunkIndex),
		File:          fileName,
		ChunkIndex:    chunkIndex,
		Content:       content,
		VectorPreview: previewCopy,
		ConceptColor:  conceptColor(vector),
		Timestamp:     float64(time.Now().UnixNano()) / 1e9,
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.frames = append(i.frames, frame)
	if len(i.frames) > maxFrames {
		i.frames = i.frames[len(i.frames)-maxFrames:]
	}
}

// Drain returns all buffered frames and clears the buffer, so pollers
// never see the same frame twice.
func (i *Inspector) Drain() []Frame {
	i.mu.Lock()
	defer i.mu.Unlock()

	frames := make([]Frame, len(i.frames))
	copy(frames, i.frames)
	i.frames = i.frames[:0]
	return frames
}

// Clear empties the buffer. Called at the start of each job.
func (i *Inspector) Clear() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.frames = i.frames[:0]
}

// Len returns the number of buffered frames.
func (i *Inspector) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.frames)
}

// conceptColor derives a CSS hex color from the first three vector
// components, mapping [-1, 1] onto the 0-255 channel range.
func conceptColor(vector []float32) string {
	var rgb [3]int
	for i := range rgb {
		var v float32
		if i < len(vector) {
			v = vector[i]
		}
		c := int((v + 1) * 127.5)
		if c < 0 {
			c = 0
		}
		if c > 255 {
			c = 255
		}
		rgb[i] = c
	}
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}
