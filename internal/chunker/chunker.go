// Package chunker splits page text into bounded-size chunks for
// downstream agent consumption.
package chunker

import (
	"errors"
	"strings"
)

// DefaultMaxChars is the chunk size used when callers do not configure one.
const DefaultMaxChars = 1200

// ErrInvalidChunkSize is returned when the requested chunk size is not positive.
var ErrInvalidChunkSize = errors.New("chunker: max chunk size must be positive")

// Split breaks text into chunks of at most maxChars characters. Lines are
// packed greedily in order: a line is appended to the current chunk while the
// chunk (including the joining newline) stays within maxChars, otherwise the
// chunk is flushed and a new one starts with that line. Whole lines are never
// split, so a single line longer than maxChars is emitted as its own
// oversized chunk. Chunks are trimmed of surrounding whitespace at flush
// time; empty input yields no chunks.
func Split(text string, maxChars int) ([]string, error) {
	if maxChars <= 0 {
		return nil, ErrInvalidChunkSize
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		if current.Len()+len(line)+1 > maxChars {
			flush()
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	flush()

	return chunks, nil
}
