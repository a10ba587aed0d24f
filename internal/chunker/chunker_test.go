package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRejectsNonPositiveLimit(t *testing.T) {
	t.Parallel()

	for _, limit := range []int{0, -1, -1200} {
		_, err := Split("some text", limit)
		require.ErrorIs(t, err, ErrInvalidChunkSize, "limit=%d", limit)
	}
}

func TestSplitEmptyInput(t *testing.T) {
	t.Parallel()

	chunks, err := Split("", 1200)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitWhitespaceOnlyInput(t *testing.T) {
	t.Parallel()

	chunks, err := Split("\n\n\n", 1200)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitAllLinesFitOneChunk(t *testing.T) {
	t.Parallel()

	chunks, err := Split("a\nb\nc", 1200)
	require.NoError(t, err)
	assert.Equal(t, []string{"a\nb\nc"}, chunks)
}

func TestSplitOversizedSingleLineIsNotTruncated(t *testing.T) {
	t.Parallel()

	line := strings.Repeat("a", 2000)
	chunks, err := Split(line, 1200)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, line, chunks[0])
}

func TestSplitPacksWholeLines(t *testing.T) {
	t.Parallel()

	input := strings.Repeat("a\n", 1000)
	chunks, err := Split(input, 5)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 5, "chunk %d exceeds limit", i)
		for line := range strings.SplitSeq(chunk, "\n") {
			assert.Equal(t, "a", line, "chunk %d contains a partial line", i)
		}
	}
}

func TestSplitTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		maxChars int
		want     []string
	}{
		{
			name:     "flush on limit",
			text:     "aaaa\nbbbb\ncccc",
			maxChars: 10,
			want:     []string{"aaaa\nbbbb", "cccc"},
		},
		{
			name:     "exact fit including newline",
			text:     "aaaa\nbbbb",
			maxChars: 10,
			want:     []string{"aaaa\nbbbb"},
		},
		{
			name:     "blank lines preserved inside chunks",
			text:     "para one\n\npara two",
			maxChars: 100,
			want:     []string{"para one\n\npara two"},
		},
		{
			name:     "blank line does not start a chunk",
			text:     "aaaaaaaa\n\nbbbbbbbb",
			maxChars: 10,
			want:     []string{"aaaaaaaa", "bbbbbbbb"},
		},
		{
			name:     "oversized line between small lines",
			text:     "ab\n" + strings.Repeat("x", 30) + "\ncd",
			maxChars: 10,
			want:     []string{"ab", strings.Repeat("x", 30), "cd"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Split(tt.text, tt.maxChars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Every chunk stays within the limit unless it is a single source line that
// already exceeds it, and joining the chunks reproduces the non-blank line
// sequence of the input in order.
func TestSplitProperties(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"single line",
		"one\ntwo\nthree\nfour\nfive",
		strings.Repeat("word word word\n", 200),
		strings.Repeat("x", 50) + "\nshort\n" + strings.Repeat("y", 80),
		"lead\n\n\nmiddle\n\ntail\n",
	}
	limits := []int{3, 7, 16, 40, 1200}

	for i, text := range inputs {
		for _, limit := range limits {
			t.Run(fmt.Sprintf("input_%d_limit_%d", i, limit), func(t *testing.T) {
				t.Parallel()

				chunks, err := Split(text, limit)
				require.NoError(t, err)

				for _, chunk := range chunks {
					if len(chunk) > limit {
						// Only a lone oversized line may exceed the limit.
						assert.NotContains(t, chunk, "\n",
							"oversized chunk must be a single line")
					}
				}

				var got []string
				for _, chunk := range chunks {
					for line := range strings.SplitSeq(chunk, "\n") {
						if strings.TrimSpace(line) != "" {
							got = append(got, line)
						}
					}
				}
				var want []string
				for line := range strings.SplitSeq(text, "\n") {
					if strings.TrimSpace(line) != "" {
						want = append(want, line)
					}
				}
				assert.Equal(t, want, got, "line sequence must survive chunking")
			})
		}
	}
}
