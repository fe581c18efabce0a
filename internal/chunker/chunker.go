package chunker

const (
	// ChunkSize is the window length in characters.
	ChunkSize = 500

	// Overlap is the number of characters shared between adjacent windows.
	Overlap = 50
)

// Chunker splits raw text into overlapping fixed-size windows.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker with the default window parameters.
func New() *Chunker {
	return &Chunker{size: ChunkSize, overlap: Overlap}
}

// Split produces the ordered sequence of windows covering text. Window i
// starts at i*(size-overlap) and extends size characters, clipped to the end
// of the text. Empty text yields no chunks; text shorter than one window
// yields a single chunk equal to the input.
//
// The split is rune-based so multi-byte characters never straddle a window
// boundary.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	step := c.size - c.overlap
	chunks := make([]string, 0, (n+step-1)/step)

	for start := 0; start < n; start += step {
		end := start + c.size
		if end > n {
			end = n
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}
