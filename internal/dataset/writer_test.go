package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdata/harvest/internal/record"
)

func TestMarshalKeepsNonASCIIAndMarkupUnescaped(t *testing.T) {
	t.Parallel()

	pages := []record.Page{{
		URL:    "https://shop.example/p/1?color=blau&size=42",
		Title:  "Laufschuhe für Damen",
		Text:   "<p>Größe 42</p>",
		Chunks: []string{"<p>Größe 42</p>"},
	}}

	data, err := Marshal(pages)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "Laufschuhe für Damen")
	assert.Contains(t, out, "<p>Größe 42</p>")
	assert.Contains(t, out, "color=blau&size=42")
	assert.NotContains(t, out, `\u003c`)
	assert.NotContains(t, out, `\u0026`)
}

func TestMarshalEmptySliceIsJSONArray(t *testing.T) {
	t.Parallel()

	data, err := Marshal(nil)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestWriteFileRoundTrip(t *testing.T) {
	t.Parallel()

	depth := 1
	status := 200
	pages := []record.Page{
		{
			URL:    "https://shop.example/p/1",
			Title:  "Trail Runner",
			Text:   "line one\nline two",
			Chunks: []string{"line one\nline two"},
			Metadata: record.Metadata{
				Depth:  &depth,
				Status: &status,
			},
		},
		{
			URL:    "https://shop.example/p/2",
			Chunks: nil,
		},
	}

	path := filepath.Join(t.TempDir(), "out", "dataset.json")
	require.NoError(t, WriteFile(path, pages))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got []record.Page
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, pages[0].URL, got[0].URL)
	assert.Equal(t, pages[0].Chunks, got[0].Chunks)
	require.NotNil(t, got[0].Metadata.Depth)
	assert.Equal(t, 1, *got[0].Metadata.Depth)
	assert.Nil(t, got[1].Metadata.Status)
}

func TestWriteFileRequiresPath(t *testing.T) {
	t.Parallel()

	err := WriteFile("", nil)
	require.Error(t, err)
}
