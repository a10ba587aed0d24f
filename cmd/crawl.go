package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shopdata/harvest/internal/crawl"
)

// newCrawlCmd creates the 'crawl' subcommand. It runs one harvest
// synchronously: flags override the configured crawl defaults, the command
// blocks until the remote run finishes and the dataset file is written.
func newCrawlCmd() *cobra.Command {
	var (
		startURL     string
		maxPages     int
		crawlerType  string
		includeGlobs []string
		excludeGlobs []string
		outputPath   string
		chunkChars   int
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run one crawl and write the JSON dataset",
		Long: `Triggers a run of the configured actor for the given start URL, waits
for it to reach a terminal status, chunks each page's text, and writes
the dataset file.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			defaults := a.Config().Crawl
			req := crawl.Request{
				StartURL:      defaults.StartURL,
				MaxPages:      defaults.MaxPages,
				CrawlerType:   defaults.CrawlerType,
				IncludeGlobs:  defaults.IncludeGlobs,
				ExcludeGlobs:  defaults.ExcludeGlobs,
				OutputPath:    defaults.OutputPath,
				MaxChunkChars: defaults.MaxChunkChars,
			}
			if startURL != "" {
				req.StartURL = startURL
			}
			if cmd.Flags().Changed("max-pages") {
				req.MaxPages = maxPages
			}
			if crawlerType != "" {
				req.CrawlerType = crawlerType
			}
			if cmd.Flags().Changed("include") {
				req.IncludeGlobs = includeGlobs
			}
			if cmd.Flags().Changed("exclude") {
				req.ExcludeGlobs = excludeGlobs
			}
			if outputPath != "" {
				req.OutputPath = outputPath
			}
			if cmd.Flags().Changed("max-chunk-chars") {
				req.MaxChunkChars = chunkChars
			}
			if req.StartURL == "" {
				return fmt.Errorf("a start URL is required (--url flag or crawl.start_url config)")
			}

			crawler, err := a.Crawler()
			if err != nil {
				return fmt.Errorf("initialize crawl service client: %w", err)
			}

			pages, err := crawler.Crawl(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("run crawl: %w", err)
			}

			chunks := 0
			for _, page := range pages {
				chunks += len(page.Chunks)
			}
			a.Logger().Info("crawl finished",
				zap.Int("pages", len(pages)),
				zap.Int("chunks", chunks),
				zap.String("output_path", req.OutputPath),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&startURL, "url", "", "crawl start URL")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum pages to crawl")
	cmd.Flags().StringVar(&crawlerType, "crawler-type", "", "service crawler engine (cheerio, playwright:adaptive, ...)")
	cmd.Flags().StringSliceVar(&includeGlobs, "include", nil, "URL globs to include")
	cmd.Flags().StringSliceVar(&excludeGlobs, "exclude", nil, "URL globs to exclude")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "dataset output path")
	cmd.Flags().IntVar(&chunkChars, "max-chunk-chars", 0, "maximum characters per text chunk")

	return cmd
}
