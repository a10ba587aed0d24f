// Package record maps dataset items returned by the crawl service into the
// normalized page records that make up the output dataset.
package record

import (
	"fmt"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/shopdata/harvest/internal/apify"
	"github.com/shopdata/harvest/internal/chunker"
)

// Metadata carries per-page crawl diagnostics. Both fields are optional and
// omitted from JSON when the service did not report them.
type Metadata struct {
	Depth  *int `json:"depth"`
	Status *int `json:"status"`
}

// Page is one normalized crawled page. Records are immutable after
// construction; they exist only to be serialized into the dataset file.
type Page struct {
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	Markdown string   `json:"markdown,omitempty"`
	Chunks   []string `json:"chunks"`
	Metadata Metadata `json:"metadata"`
}

// FromItem builds a Page from a service item. Normalization is a two-branch
// decision: the markdown field is taken from the item, or derived from the
// item's text via HTML-to-markdown conversion when the service omitted it;
// the text field is taken from the item, or substituted with the markdown
// when the service returned no plain text. The text is then chunked with the
// given limit.
func FromItem(item apify.Item, maxChunkChars int) (Page, error) {
	markdown := item.Markdown
	if markdown == "" && item.Text != "" {
		converted, err := htmltomarkdown.ConvertString(item.Text)
		if err != nil {
			return Page{}, fmt.Errorf("derive markdown for %s: %w", item.URL, err)
		}
		markdown = converted
	}

	text := item.Text
	if text == "" {
		text = markdown
	}

	chunks, err := chunker.Split(text, maxChunkChars)
	if err != nil {
		return Page{}, fmt.Errorf("chunk %s: %w", item.URL, err)
	}

	return Page{
		URL:      item.URL,
		Title:    item.Metadata.Title,
		Text:     text,
		Markdown: markdown,
		Chunks:   chunks,
		Metadata: Metadata{
			Depth:  item.Crawl.Depth,
			Status: item.Crawl.HTTPStatusCode,
		},
	}, nil
}
