package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shopdata/harvest/internal/api"
)

// newServeCmd creates the 'serve' subcommand, which runs the HTTP API until
// interrupted. The server starts without a service credential; crawl requests
// fail with 503 until one is configured.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the harvest HTTP API",
		Long: `Starts an HTTP server exposing health probes, Prometheus metrics, and a
synchronous crawl endpoint (POST /v1/crawls).`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := a.Config()

			srv, err := api.NewServer(api.Deps{
				Runner:   func() (api.CrawlRunner, error) { return a.Crawler() },
				Logger:   a.Logger(),
				Registry: a.Registry(),
				Defaults: cfg.Crawl,
				Timeout:  cfg.RunTimeout() + time.Minute,
			})
			if err != nil {
				return fmt.Errorf("build api server: %w", err)
			}

			httpServer := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.Logger().Info("http server listening", zap.String("addr", httpServer.Addr))
				if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("http server: %w", err)
			case <-ctx.Done():
			}

			a.Logger().Info("shutting down http server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown http server: %w", err)
			}
			return nil
		},
	}
}
