// Package database defines the store interface for persisting harvest run
// metadata. The interface decouples the pipeline from Postgres so local runs
// and tests can use the no-op store.
package database

import (
	"context"
	"time"
)

// RunMetadata summarizes one completed (or failed) harvest run.
type RunMetadata struct {
	// ID is the local run identifier (UUID v7).
	ID string
	// StartURL is the crawl entry point submitted to the service.
	StartURL string
	// ActorRunID is the remote actor run identifier.
	ActorRunID string
	// DatasetID is the remote dataset holding the crawled items.
	DatasetID string
	// Status is the terminal remote run status (SUCCEEDED, FAILED, ...).
	Status string
	// Pages and Chunks count the records and chunks written locally.
	Pages  int
	Chunks int
	// OutputPath is the local dataset file the run produced.
	OutputPath string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store persists run metadata.
type Store interface {
	// SaveRun records the metadata of a finished run.
	SaveRun(ctx context.Context, meta RunMetadata) error

	// Close releases the underlying connection resources.
	Close()
}

// NoOpStore discards run metadata. It is the default store.
type NoOpStore struct{}

// SaveRun for NoOpStore does nothing and returns nil.
func (NoOpStore) SaveRun(context.Context, RunMetadata) error { return nil }

// Close for NoOpStore does nothing.
func (NoOpStore) Close() {}
