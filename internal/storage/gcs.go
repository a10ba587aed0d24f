package storage

import (
	"context"
	"fmt"

	gcs "cloud.google.com/go/storage"
)

// GCSClientFactory abstracts GCS client construction so tests can point the
// provider at an httptest server.
type GCSClientFactory interface {
	NewClient(ctx context.Context) (*gcs.Client, error)
}

// DefaultGCSClientFactory builds a real client using Application Default
// Credentials.
type DefaultGCSClientFactory struct{}

// NewClient creates a GCS client with ambient credentials.
func (DefaultGCSClientFactory) NewClient(ctx context.Context) (*gcs.Client, error) {
	return gcs.NewClient(ctx)
}

// GCSProvider archives dataset blobs in a Google Cloud Storage bucket.
type GCSProvider struct {
	client *gcs.Client
	bucket string
}

// NewGCSProvider creates the client and verifies the bucket is reachable, so
// misconfiguration fails at startup rather than at upload time.
func NewGCSProvider(ctx context.Context, bucketName string, factory GCSClientFactory) (*GCSProvider, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("storage: bucket name is required")
	}
	if factory == nil {
		factory = DefaultGCSClientFactory{}
	}

	client, err := factory.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}

	if _, err := client.Bucket(bucketName).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("get GCS bucket %q attributes: %w", bucketName, err)
	}

	return &GCSProvider{client: client, bucket: bucketName}, nil
}

// Save uploads the blob to the bucket. Close must succeed for the upload to
// be finalized.
func (p *GCSProvider) Save(ctx context.Context, objectName string, data []byte) error {
	w := p.client.Bucket(p.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json; charset=utf-8"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write GCS object %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize GCS object %s: %w", objectName, err)
	}
	return nil
}

// Close releases the underlying client.
func (p *GCSProvider) Close() error {
	return p.client.Close()
}
