// Package dataset serializes page records into the JSON dataset file.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopdata/harvest/internal/record"
)

// Marshal renders the pages as an indented JSON array. HTML escaping is
// disabled so markup and non-ASCII text survive unescaped in the output.
func Marshal(pages []record.Page) ([]byte, error) {
	if pages == nil {
		pages = []record.Page{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pages); err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes the pages to path, creating parent directories as needed.
func WriteFile(path string, pages []record.Page) error {
	if path == "" {
		return fmt.Errorf("dataset: output path is required")
	}

	data, err := Marshal(pages)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write dataset file: %w", err)
	}
	return nil
}
