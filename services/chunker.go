package services

import (
	"fmt"
	"strings"

	"qa-agent-backend/models"
)

// ChunkerService splits raw document text into fixed-size overlapping
// windows. The split is purely positional, no sentence or paragraph
// awareness: the same input and config always produce byte-identical
// chunks, which keeps re-ingestion reproducible.
type ChunkerService struct {
	size    int
	overlap int
}

// NewChunkerService validates the window configuration. A step of
// size-overlap <= 0 would never advance, so it is rejected up front.
func NewChunkerService(size, overlap int) (*ChunkerService, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d must be > 0", ErrChunkConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must satisfy 0 <= overlap < size (%d)", ErrChunkConfig, overlap, size)
	}
	return &ChunkerService{size: size, overlap: overlap}, nil
}

// Split cuts text into size-length windows advancing by size-overlap.
// Windows are counted in code points, not bytes, so a multi-byte rune
// never straddles a boundary. Each window is trimmed of surrounding
// whitespace. Windows that trim to empty are kept; filtering is a caller
// decision. Empty input yields nil.
func (cs *ChunkerService) Split(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	runes := []rune(text)
	step := cs.size - cs.overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + cs.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, strings.TrimSpace(string(runes[start:end])))
	}
	return chunks
}

// ChunkDocument splits one source document and wraps each window in a
// Chunk with its position within the source. Index is 0-based and follows
// document order.
func (cs *ChunkerService) ChunkDocument(source, text string, newID func() string) []models.Chunk {
	pieces := cs.Split(text)
	if len(pieces) == 0 {
		return nil
	}
	chunks := make([]models.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, models.Chunk{
			ChunkID: newID(),
			Source:  source,
			Index:   i,
			Text:    piece,
			Metadata: map[string]string{
				"source": source,
			},
		})
	}
	return chunks
}
