package orchestrator

import (
	"fmt"
	"regexp"
	"strings"

	"codeberg.org/lexiread/lexiread/internal/errs"
)

// Chunk is one ordered unit of a larger document. Chunks are created by the
// splitter at batch start and mutated in place as results arrive; they are
// never reordered, and Order is their identity.
type Chunk struct {
	ID        string
	Content   string
	Order     int
	Processed bool
	Summary   string
	Rewritten string
	Err       *errs.Error
}

var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// ProgressiveChunks splits text into ordered chunks of at most
// chunkSizeWords words. Paragraph boundaries are respected: paragraphs are
// packed together while they fit, and a single paragraph longer than the
// limit becomes its own oversized chunk rather than being cut mid-thought.
// Empty input yields no chunks; concatenating all chunk contents
// reconstructs the paragraph structure of the input.
func ProgressiveChunks(text string, chunkSizeWords int) []*Chunk {
	if chunkSizeWords <= 0 {
		chunkSizeWords = 300
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var paragraphs []string
	for _, p := range paragraphSplit.Split(text, -1) {
		if strings.TrimSpace(p) != "" {
			paragraphs = append(paragraphs, strings.TrimSpace(p))
		}
	}

	var chunks []*Chunk
	var current []string
	currentWords := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		order := len(chunks)
		chunks = append(chunks, &Chunk{
			ID:      fmt.Sprintf("chunk-%d", order),
			Content: strings.Join(current, "\n\n"),
			Order:   order,
		})
		current = nil
		currentWords = 0
	}

	for _, paragraph := range paragraphs {
		words := len(strings.Fields(paragraph))
		if currentWords > 0 && currentWords+words > chunkSizeWords {
			flush()
		}
		current = append(current, paragraph)
		currentWords += words
		if currentWords >= chunkSizeWords {
			flush()
		}
	}
	flush()

	return chunks
}
