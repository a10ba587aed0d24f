// Package notify defines the providers used to announce completed harvest
// runs to downstream consumers, e.g. an embedding pipeline that picks up new
// datasets.
package notify

import "context"

// Provider abstracts publishing a run-completed notification.
type Provider interface {
	// Publish announces that the run identified by runID has finished and
	// where its dataset was written.
	Publish(ctx context.Context, runID, datasetPath string) error

	// Close cleans up client connections and resources.
	Close() error
}

// NoOpProvider publishes nothing. It is the default.
type NoOpProvider struct{}

// Publish for NoOpProvider does nothing and returns nil.
func (NoOpProvider) Publish(context.Context, string, string) error { return nil }

// Close for NoOpProvider does nothing and returns nil.
func (NoOpProvider) Close() error { return nil }
