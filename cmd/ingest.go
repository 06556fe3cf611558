package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/docchat/pkg/scraper"
)

func ingestCMD(opts *globalOptions) *cobra.Command {
	var urls []string

	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Extract, chunk and index documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(urls) == 0 {
				return fmt.Errorf("nothing to ingest: pass files or --url")
			}
			ctx := cmd.Context()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			uploads, err := readUploads(args)
			if err != nil {
				return err
			}

			cfg := a.config.Scraper
			for _, u := range urls {
				color.Blue("Starting documentation pipeline for %s", u)
				sc, err := scraper.NewWithConfig(scraper.ScraperConfig{
					BaseURL:           u,
					MaxDepth:          cfg.MaxDepth,
					RateLimit:         cfg.RateLimit,
					IgnorePatterns:    cfg.IgnorePatterns,
					AllowedExtensions: cfg.AllowedExtensions,
				})
				if err != nil {
					return fmt.Errorf("failed to initialize scraper: %w", err)
				}
				pages, err := sc.Scrape(ctx, u)
				if err != nil && len(pages) == 0 {
					return fmt.Errorf("failed to scrape %s: %w", u, err)
				}
				color.Green("✓ Scraped %d pages", len(pages))
				uploads = append(uploads, pages...)
			}

			progress := &ingestProgress{}
			report, err := a.pipeline.Ingest(ctx, uploads, progress.update)
			progress.finish()
			printReport(report)
			if report == nil || len(report.Committed) == 0 {
				return err
			}
			if err != nil {
				// Some documents made it in; report the rest without failing.
				color.Red("%v", err)
			}

			total, err := a.index.Count(ctx)
			if err == nil {
				fmt.Printf("Index now holds %d chunks\n", total)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&urls, "url", nil, "crawl a site and ingest its pages (repeatable)")
	return cmd
}
