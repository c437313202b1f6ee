// Package chunker splits raw input text into overlapping fixed-size chunks
// for embedding and retrieval. Chunking is a pure function: the same input
// and parameters always produce the same chunks, with stable order-derived
// IDs and source character offsets so the UI can map every chunk back to
// its position in the original text.
package chunker

import (
	"errors"
	"fmt"
)

// Default chunking parameters applied when the caller supplies none.
const (
	// DefaultSize is the default chunk window in characters.
	DefaultSize = 500
	// DefaultOverlap is the default overlap between adjacent chunks.
	DefaultOverlap = 50
)

// ErrInvalidConfig is returned when the chunk size or overlap parameters are
// out of range. Matched with errors.Is by callers that translate it into a
// user-facing validation message.
var ErrInvalidConfig = errors.New("chunker: invalid configuration")

// Chunk is a contiguous slice of the source text.
type Chunk struct {
	// ID is the stable, order-derived identifier (e.g. "chunk-0").
	ID string

	// Text is the chunk content.
	Text string

	// SourceOffset is the character offset of this chunk in the input text.
	SourceOffset int

	// Vector is the embedding for this chunk. Nil until embedded.
	Vector []float32
}

// Options configures a chunking run.
type Options struct {
	// Size is the chunk window length in characters. Must be > 0.
	Size int

	// Overlap is the number of characters shared between consecutive
	// chunks. Must satisfy 0 <= Overlap < Size.
	Overlap int

	// CleanMarkdown strips markdown formatting before windowing so the
	// embedded text carries content, not syntax.
	CleanMarkdown bool
}

// Validate checks the chunking parameters, returning ErrInvalidConfig with a
// descriptive message when they are out of range.
func (o Options) Validate() error {
	if o.Size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalidConfig, o.Size)
	}
	if o.Overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidConfig, o.Overlap)
	}
	if o.Overlap >= o.Size {
		return fmt.Errorf("%w: overlap %d must be smaller than size %d", ErrInvalidConfig, o.Overlap, o.Size)
	}
	return nil
}

// Split slides a window of opts.Size characters across text, advancing by
// Size-Overlap each step. The final chunk may be shorter than Size. The
// concatenation of the chunks, with each step's overlap removed, reproduces
// the (cleaned) input exactly.
//
// Offsets and sizes are measured in runes so multi-byte input does not split
// mid-character.
func Split(text string, opts Options) ([]Chunk, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if opts.CleanMarkdown {
		text = CleanMarkdown(text)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := opts.Size - opts.Overlap
	chunks := make([]Chunk, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + opts.Size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			ID:           fmt.Sprintf("chunk-%d", len(chunks)),
			Text:         string(runes[start:end]),
			SourceOffset: start,
		})
		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}
