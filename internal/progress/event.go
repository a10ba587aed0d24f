// Package progress provides the event primitives, non-blocking hub, and
// emitter interface the crawl pipeline uses to report run milestones. Events
// are batched on a background goroutine and fanned out to pluggable sinks
// such as structured logs or Prometheus collectors.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the milestone represented by an Event.
type Stage string

// Supported pipeline stages.
const (
	// StageRunStart fires once the remote actor run has been triggered.
	StageRunStart Stage = "RUN_START"
	// StagePageDone fires for each dataset item turned into a page record.
	StagePageDone Stage = "PAGE_DONE"
	// StageRunDone fires after the dataset file has been written.
	StageRunDone Stage = "RUN_DONE"
	// StageRunError fires when the pipeline aborts.
	StageRunError Stage = "RUN_ERROR"
)

// Event captures a single milestone of a harvest run.
type Event struct {
	// RunID identifies the local harvest invocation, not the remote actor run.
	RunID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// URL is the page URL for PAGE_DONE events.
	URL string
	// Pages is the cumulative page count for RUN_DONE events.
	Pages int
	// Chunks carries the chunk count of the page or run.
	Chunks int
	// Dur captures wall time for RUN_DONE and RUN_ERROR events.
	Dur time.Duration
	// Note lets emitters attach low-volume context such as error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == "" {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError:
	case StagePageDone:
		if e.URL == "" {
			return errors.New("page done requires url")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
