package services

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Chunk is one slice of a source document, addressed by the rune offset at
// which it starts. The ID is stable across re-ingestion of the same file, so
// re-processing a document overwrites its previous chunks instead of
// duplicating them.
type Chunk struct {
	ID         string
	Text       string
	Source     string
	StartIndex int
}

// ChunkingService splits text into fixed-size windows with overlap, preferring
// to cut on paragraph, line, or word boundaries when one falls inside the
// window.
type ChunkingService struct {
	chunkSize int
	overlap   int
}

func NewChunkingService(chunkSize, overlap int) *ChunkingService {
	return &ChunkingService{
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

var chunkSeparators = []string{"\n\n", "\n", " "}

// Split chunks text extracted from sourcePath. Offsets are rune indices into
// the original text, and the next window starts overlap runes before the
// previous cut.
func (s *ChunkingService) Split(text, sourcePath string) []Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	base := filepath.Base(sourcePath)
	var chunks []Chunk

	start := 0
	for start < len(runes) {
		end := start + s.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.findCut(runes, start, end)
		}

		chunkText := strings.TrimSpace(string(runes[start:end]))
		if chunkText != "" {
			chunks = append(chunks, Chunk{
				ID:         fmt.Sprintf("%s_chunk_%d", base, start),
				Text:       chunkText,
				Source:     base,
				StartIndex: start,
			})
		}

		if end >= len(runes) {
			break
		}

		next := end - s.overlap
		if next <= start {
			// Overlap would stall the window; force progress.
			next = start + 1
		}
		start = next
	}

	return chunks
}

// findCut looks backwards from end for the best separator boundary inside the
// second half of the window. Falling back to a hard cut keeps pathological
// inputs (no whitespace at all) bounded.
func (s *ChunkingService) findCut(runes []rune, start, end int) int {
	window := string(runes[start:end])
	minCut := (end - start) / 2

	for _, sep := range chunkSeparators {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		cut := len([]rune(window[:idx])) + len([]rune(sep))
		if cut > minCut {
			return start + cut
		}
	}
	return end
}
