// Package chunker splits normalized document text into overlapping,
// sentence-aware segments sized for embedding.
package chunker

import (
	"fmt"
	"strings"
)

const (
	DefaultMaxLength = 1200
	DefaultOverlap   = 200
	// MinLength drops navigation crumbs and other fragments.
	MinLength = 50
)

// Config controls chunking behavior. Lengths are in characters (runes).
type Config struct {
	MaxLength int
	Overlap   int
	MinLength int
}

// DefaultConfig returns the production chunking policy.
func DefaultConfig() Config {
	return Config{
		MaxLength: DefaultMaxLength,
		Overlap:   DefaultOverlap,
		MinLength: MinLength,
	}
}

// Validate guarantees that Split makes progress on every window.
func (c Config) Validate() error {
	if c.MaxLength <= 0 {
		return fmt.Errorf("chunk max length must be positive, got %d", c.MaxLength)
	}
	if c.Overlap < 0 || c.Overlap >= c.MaxLength {
		return fmt.Errorf("chunk overlap must be in [0, %d), got %d", c.MaxLength, c.Overlap)
	}
	return nil
}

// Split applies the config to text. An invalid config yields no chunks.
func (c Config) Split(text string) []string {
	if c.Validate() != nil {
		return nil
	}
	return split(text, c.MaxLength, c.Overlap, c.MinLength)
}

// Split cuts text into windows of maxLength characters whose starts are
// maxLength-overlap apart. A window that does not reach the end of the text
// is shortened to its last sentence terminator, as long as that terminator
// lies past the start of the following window, so no text falls between
// chunks. Chunks shorter than MinLength after trimming are dropped.
func Split(text string, maxLength, overlap int) []string {
	return Config{MaxLength: maxLength, Overlap: overlap, MinLength: MinLength}.Split(text)
}

func split(text string, maxLength, overlap, minLength int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := maxLength - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + maxLength
		if end >= len(runes) {
			end = len(runes)
		} else if cut := lastTerminator(runes[start:end]); cut >= step {
			end = start + cut + 1
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if len([]rune(chunk)) >= minLength {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// lastTerminator returns the index of the last '.', '!' or '?' in window, or -1.
func lastTerminator(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		switch window[i] {
		case '.', '!', '?':
			return i
		}
	}
	return -1
}
