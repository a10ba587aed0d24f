// Package app initializes and holds the long-lived application services,
// acting as a dependency injection container for the CLI and the HTTP server.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/shopdata/harvest/internal/apify"
	"github.com/shopdata/harvest/internal/config"
	"github.com/shopdata/harvest/internal/crawl"
	"github.com/shopdata/harvest/internal/database"
	"github.com/shopdata/harvest/internal/id/uuid"
	"github.com/shopdata/harvest/internal/logging"
	"github.com/shopdata/harvest/internal/notify"
	"github.com/shopdata/harvest/internal/progress"
	"github.com/shopdata/harvest/internal/progress/sinks"
	"github.com/shopdata/harvest/internal/storage"
)

// App holds the shared services assembled from configuration: the logger, the
// progress hub, the blob/metadata/notification providers, and the Prometheus
// registry. It is built once at startup and passed to the commands.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	storage  storage.Provider
	store    database.Store
	notifier notify.Provider
	hub      *progress.Hub
	registry *prometheus.Registry
}

// New assembles the application services from cfg. It fails fast: a provider
// named in the configuration that cannot be initialized aborts startup.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	logger.Info("initializing application services")

	blobs, err := newStorageProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := newMetadataStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	notifier, err := newNotifyProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		return nil, fmt.Errorf("initialize metrics sink: %w", err)
	}
	hub := progress.NewHub(progress.Config{Logger: logger},
		sinks.NewLogSink(logger.Named("progress")),
		promSink,
	)

	return &App{
		cfg:      cfg,
		logger:   logger,
		storage:  blobs,
		store:    store,
		notifier: notifier,
		hub:      hub,
		registry: registry,
	}, nil
}

func newStorageProvider(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Provider, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		bucket := cfg.Storage.GCS.Bucket
		if bucket == "" {
			return nil, fmt.Errorf("storage provider is gcs but storage.gcs.bucket is not set")
		}
		logger.Info("using GCS storage provider", zap.String("bucket", bucket))
		provider, err := storage.NewGCSProvider(ctx, bucket, &storage.DefaultGCSClientFactory{})
		if err != nil {
			return nil, fmt.Errorf("initialize gcs storage: %w", err)
		}
		return provider, nil
	case "local":
		logger.Info("using local storage provider", zap.String("base_dir", cfg.Storage.Local.BaseDir))
		provider, err := storage.NewLocalProvider(cfg.Storage.Local.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("initialize local storage: %w", err)
		}
		return provider, nil
	case "noop":
		logger.Info("dataset archiving disabled")
		return storage.NoOpProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Storage.Provider)
	}
}

func newMetadataStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (database.Store, error) {
	switch cfg.Database.Provider {
	case "postgres":
		if cfg.Database.Postgres.DSN == "" {
			return nil, fmt.Errorf("database provider is postgres but database.postgres.dsn is not set")
		}
		logger.Info("connecting to postgres")
		store, err := database.NewPostgresStore(ctx, database.PostgresConfig{
			DSN:   cfg.Database.Postgres.DSN,
			Table: cfg.Database.Postgres.Table,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize postgres store: %w", err)
		}
		return store, nil
	case "noop":
		logger.Info("run metadata persistence disabled")
		return database.NoOpStore{}, nil
	default:
		return nil, fmt.Errorf("unknown database provider: %s", cfg.Database.Provider)
	}
}

func newNotifyProvider(ctx context.Context, cfg config.Config, logger *zap.Logger) (notify.Provider, error) {
	switch cfg.Notify.Provider {
	case "pubsub":
		projectID := cfg.Notify.GCP.ProjectID
		topicID := cfg.Notify.GCP.TopicID
		if projectID == "" || topicID == "" {
			return nil, fmt.Errorf("notify provider is pubsub but project_id or topic_id is not set")
		}
		logger.Info("connecting to pub/sub", zap.String("topic", topicID))
		provider, err := notify.NewPubSubProvider(ctx, projectID, topicID)
		if err != nil {
			return nil, fmt.Errorf("initialize pubsub notifier: %w", err)
		}
		return provider, nil
	case "noop":
		logger.Info("run notifications disabled")
		return notify.NoOpProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown notify provider: %s", cfg.Notify.Provider)
	}
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Registry exposes the Prometheus registry backing the /metrics endpoint.
func (a *App) Registry() *prometheus.Registry { return a.registry }

// Crawler builds the run orchestrator. The service client is constructed here
// rather than in New so the application can start without a credential; the
// missing token surfaces when a crawl is actually requested.
func (a *App) Crawler() (*crawl.Crawler, error) {
	client, err := apify.NewClient(apify.Config{
		Token:      a.cfg.Apify.Token,
		BaseURL:    a.cfg.Apify.BaseURL,
		HTTPClient: &http.Client{Timeout: a.cfg.RequestTimeout()},
	})
	if err != nil {
		return nil, err
	}
	return crawl.New(crawl.Deps{
		Service:  client,
		IDs:      uuid.NewGenerator(),
		Logger:   a.logger,
		Store:    a.store,
		Blobs:    a.storage,
		Notifier: a.notifier,
		Emitter:  a.hub,
	}, crawl.Options{
		Actor:                 a.cfg.Apify.Actor,
		PollInterval:          a.cfg.PollInterval(),
		RunTimeout:            a.cfg.RunTimeout(),
		RemoveSelector:        a.cfg.Crawl.RemoveSelector,
		UseProxy:              a.cfg.Crawl.UseProxy,
		MaxRequestRetries:     a.cfg.Crawl.MaxRequestRetries,
		HandlerTimeoutSeconds: a.cfg.Crawl.HandlerTimeoutSeconds,
		BlobPrefix:            a.cfg.Storage.Prefix,
	})
}

// Close shuts the services down in reverse dependency order, draining the
// progress hub first so buffered events still reach the sinks.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.hub.Close(ctx); err != nil {
		a.logger.Warn("closing progress hub", zap.Error(err))
	}
	if err := a.notifier.Close(); err != nil {
		a.logger.Warn("closing notifier", zap.Error(err))
	}
	a.store.Close()
	_ = a.logger.Sync()
}
