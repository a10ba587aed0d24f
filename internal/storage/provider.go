// Package storage defines the blob storage providers used to archive dataset
// files. The abstraction keeps the pipeline independent of a specific backend
// (Google Cloud Storage, the local filesystem, or nothing at all).
package storage

import "context"

// Provider abstracts saving a dataset blob under an object name.
type Provider interface {
	// Save uploads data to the given object path/key in the blob store.
	Save(ctx context.Context, objectName string, data []byte) error
}

// NoOpProvider discards blobs. It is the default: the dataset file on disk is
// the primary output and archiving is opt-in.
type NoOpProvider struct{}

// Save for NoOpProvider does nothing and always returns nil.
func (NoOpProvider) Save(context.Context, string, []byte) error { return nil }
