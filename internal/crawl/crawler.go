// Package crawl orchestrates one harvest run: it submits a crawl to the
// hosted service, waits for the run to finish, normalizes the returned items
// into page records, and writes the JSON dataset file. Optional providers
// archive the dataset blob, persist run metadata, and announce completion.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/shopdata/harvest/internal/apify"
	"github.com/shopdata/harvest/internal/chunker"
	"github.com/shopdata/harvest/internal/database"
	"github.com/shopdata/harvest/internal/dataset"
	"github.com/shopdata/harvest/internal/notify"
	"github.com/shopdata/harvest/internal/progress"
	"github.com/shopdata/harvest/internal/record"
	"github.com/shopdata/harvest/internal/storage"
)

// ErrEmptyDataset is returned when the service run finished but produced no
// items. There is no partial-result salvage; the caller decides what to do.
var ErrEmptyDataset = errors.New("crawl: service returned an empty dataset")

// Service is the slice of the hosted crawl API the orchestrator uses.
type Service interface {
	StartRun(ctx context.Context, actorID string, input apify.RunInput) (apify.Run, error)
	WaitForRun(ctx context.Context, runID string, interval time.Duration) (apify.Run, error)
	DatasetItems(ctx context.Context, datasetID string, limit int) ([]apify.Item, error)
}

// IDGenerator mints local run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Options carries the per-crawler settings that do not vary between runs.
type Options struct {
	// Actor is the service-side actor to run, in tilde form.
	Actor string
	// PollInterval is the cadence for run status polling.
	PollInterval time.Duration
	// RunTimeout bounds the wait for the remote run to finish.
	RunTimeout time.Duration
	// RemoveSelector strips boilerplate elements on the service side.
	RemoveSelector string
	// UseProxy enables the service proxy pool for anti-bot handling.
	UseProxy bool
	// MaxRequestRetries and HandlerTimeoutSeconds are forwarded opaquely.
	MaxRequestRetries     int
	HandlerTimeoutSeconds int
	// BlobPrefix namespaces archived dataset objects.
	BlobPrefix string
}

// Request describes a single harvest run.
type Request struct {
	StartURL      string
	MaxPages      int
	CrawlerType   string
	IncludeGlobs  []string
	ExcludeGlobs  []string
	OutputPath    string
	MaxChunkChars int
}

// Deps bundles the orchestrator's collaborators. Service and IDs are
// required; the rest default to no-ops.
type Deps struct {
	Service  Service
	IDs      IDGenerator
	Logger   *zap.Logger
	Store    database.Store
	Blobs    storage.Provider
	Notifier notify.Provider
	Emitter  progress.Emitter
}

// Crawler runs the harvest pipeline. It is synchronous: Crawl blocks on the
// remote round trips and returns only once the dataset file is on disk.
type Crawler struct {
	svc      Service
	ids      IDGenerator
	opts     Options
	logger   *zap.Logger
	store    database.Store
	blobs    storage.Provider
	notifier notify.Provider
	emitter  progress.Emitter
}

// New validates the dependencies and builds a Crawler.
func New(deps Deps, opts Options) (*Crawler, error) {
	if deps.Service == nil {
		return nil, errors.New("crawl: service client is required")
	}
	if deps.IDs == nil {
		return nil, errors.New("crawl: id generator is required")
	}
	if opts.Actor == "" {
		return nil, errors.New("crawl: actor is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Store == nil {
		deps.Store = database.NoOpStore{}
	}
	if deps.Blobs == nil {
		deps.Blobs = storage.NoOpProvider{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NoOpProvider{}
	}
	if deps.Emitter == nil {
		deps.Emitter = progress.NopEmitter{}
	}
	return &Crawler{
		svc:      deps.Service,
		ids:      deps.IDs,
		opts:     opts,
		logger:   deps.Logger,
		store:    deps.Store,
		blobs:    deps.Blobs,
		notifier: deps.Notifier,
		emitter:  deps.Emitter,
	}, nil
}

// Crawl executes one harvest run and returns the page records it wrote.
// Service failures propagate unmodified; there is no local retry.
func (c *Crawler) Crawl(ctx context.Context, req Request) ([]record.Page, error) {
	req = c.applyDefaults(req)
	if req.StartURL == "" {
		return nil, errors.New("crawl: start url is required")
	}

	runID, err := c.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("mint run id: %w", err)
	}
	started := time.Now().UTC()

	logger := c.logger.With(zap.String("run_id", runID), zap.String("start_url", req.StartURL))
	logger.Info("starting harvest run",
		zap.Int("max_pages", req.MaxPages),
		zap.String("crawler_type", req.CrawlerType),
	)

	run, err := c.svc.StartRun(ctx, c.opts.Actor, c.buildInput(req))
	if err != nil {
		return nil, c.fail(runID, started, fmt.Errorf("start actor run: %w", err))
	}
	c.emit(progress.Event{RunID: runID, TS: time.Now().UTC(), Stage: progress.StageRunStart})
	logger.Info("actor run triggered",
		zap.String("actor_run_id", run.ID),
		zap.String("dataset_id", run.DefaultDatasetID),
	)

	waitCtx := ctx
	if c.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.opts.RunTimeout)
		defer cancel()
	}
	run, err = c.svc.WaitForRun(waitCtx, run.ID, c.opts.PollInterval)
	if err != nil {
		return nil, c.fail(runID, started, err)
	}

	items, err := c.svc.DatasetItems(ctx, run.DefaultDatasetID, req.MaxPages)
	if err != nil {
		return nil, c.fail(runID, started, err)
	}
	if len(items) == 0 {
		return nil, c.fail(runID, started, ErrEmptyDataset)
	}

	pages := make([]record.Page, 0, len(items))
	totalChunks := 0
	for _, item := range items {
		page, err := record.FromItem(item, req.MaxChunkChars)
		if err != nil {
			return nil, c.fail(runID, started, err)
		}
		pages = append(pages, page)
		totalChunks += len(page.Chunks)
		c.emit(progress.Event{
			RunID:  runID,
			TS:     time.Now().UTC(),
			Stage:  progress.StagePageDone,
			URL:    page.URL,
			Chunks: len(page.Chunks),
		})
	}

	if err := dataset.WriteFile(req.OutputPath, pages); err != nil {
		return nil, c.fail(runID, started, err)
	}
	logger.Info("dataset written",
		zap.String("output_path", req.OutputPath),
		zap.Int("pages", len(pages)),
		zap.Int("chunks", totalChunks),
	)

	c.finish(ctx, runID, req, run, pages, totalChunks, started, logger)

	c.emit(progress.Event{
		RunID:  runID,
		TS:     time.Now().UTC(),
		Stage:  progress.StageRunDone,
		Pages:  len(pages),
		Chunks: totalChunks,
		Dur:    time.Since(started),
	})
	return pages, nil
}

// finish performs the optional post-run steps. They are best-effort: a failed
// archive, metadata write, or notification is logged but does not fail a run
// whose dataset file is already on disk.
func (c *Crawler) finish(
	ctx context.Context,
	runID string,
	req Request,
	run apify.Run,
	pages []record.Page,
	totalChunks int,
	started time.Time,
	logger *zap.Logger,
) {
	if data, err := dataset.Marshal(pages); err != nil {
		logger.Warn("marshal dataset for archive", zap.Error(err))
	} else {
		objectName := path.Join(c.opts.BlobPrefix, runID+".json")
		if err := c.blobs.Save(ctx, objectName, data); err != nil {
			logger.Warn("archive dataset blob", zap.Error(err))
		}
	}

	meta := database.RunMetadata{
		ID:         runID,
		StartURL:   req.StartURL,
		ActorRunID: run.ID,
		DatasetID:  run.DefaultDatasetID,
		Status:     run.Status,
		Pages:      len(pages),
		Chunks:     totalChunks,
		OutputPath: req.OutputPath,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
	if err := c.store.SaveRun(ctx, meta); err != nil {
		logger.Warn("persist run metadata", zap.Error(err))
	}

	if err := c.notifier.Publish(ctx, runID, req.OutputPath); err != nil {
		logger.Warn("publish run notification", zap.Error(err))
	}
}

func (c *Crawler) applyDefaults(req Request) Request {
	if req.MaxPages <= 0 {
		req.MaxPages = 1
	}
	if req.CrawlerType == "" {
		req.CrawlerType = "cheerio"
	}
	if req.OutputPath == "" {
		req.OutputPath = "dataset.json"
	}
	if req.MaxChunkChars <= 0 {
		req.MaxChunkChars = chunker.DefaultMaxChars
	}
	return req
}

func (c *Crawler) buildInput(req Request) apify.RunInput {
	input := apify.RunInput{
		StartURLs:                 []apify.StartURL{{URL: req.StartURL}},
		MaxCrawlPages:             req.MaxPages,
		CrawlerType:               req.CrawlerType,
		UseSitemaps:               false,
		IncludeURLGlobs:           req.IncludeGlobs,
		ExcludeURLGlobs:           req.ExcludeGlobs,
		RemoveElementsCSSSelector: c.opts.RemoveSelector,
		MaxRequestRetries:         c.opts.MaxRequestRetries,
		RequestHandlerTimeoutSecs: c.opts.HandlerTimeoutSeconds,
		Headless:                  true,
		WaitUntil:                 "networkidle",
	}
	if c.opts.UseProxy {
		input.ProxyConfiguration = &apify.ProxyConfiguration{UseApifyProxy: true}
	}
	return input
}

func (c *Crawler) fail(runID string, started time.Time, err error) error {
	c.emit(progress.Event{
		RunID: runID,
		TS:    time.Now().UTC(),
		Stage: progress.StageRunError,
		Dur:   time.Since(started),
		Note:  err.Error(),
	})
	return err
}

func (c *Crawler) emit(evt progress.Event) {
	c.emitter.Emit(evt)
}
