// Package cmd defines the CLI commands for the harvest executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shopdata/harvest/internal/app"
	"github.com/shopdata/harvest/internal/config"
)

// appKeyType keys the App in the command context.
type appKeyType struct{}

var appKey appKeyType

// newAppFactory builds the application container. It is a variable so tests
// can substitute a factory that fails or returns a preconfigured App.
var newAppFactory = app.New

// newRootCmd creates and configures the root command. Configuration is loaded
// and the service container built in PersistentPreRunE so every subcommand
// finds a ready App in its context.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Crawl product pages via a hosted crawl service into a JSON dataset",
		Long: `harvest triggers a run of the hosted website-content-crawler actor,
waits for it to finish, splits each page's text into retrieval-sized
chunks, and writes the result as a JSON dataset file.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			a, err := newAppFactory(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, ok := cmd.Context().Value(appKey).(*app.App); ok && a != nil {
				a.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*app.App, error) {
	a, ok := ctx.Value(appKey).(*app.App)
	if !ok || a == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return a, nil
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
