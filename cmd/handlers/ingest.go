package handlers

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"newslens/internal/config"
	"newslens/internal/ingest"
	"newslens/internal/logger"
	"newslens/internal/store"
)

// NewIngestCmd creates the feed ingestion command
func NewIngestCmd() *cobra.Command {
	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Pull new articles from the configured feeds",
		Long: `Fetch the configured RSS/Atom feeds, extract article text from each linked
page, and store new articles. Articles already seen (same title and body) are
skipped, so ingestion can run repeatedly.

Example:
  newslens ingest
  newslens ingest --topic sports`,
		Run: func(cmd *cobra.Command, args []string) {
			topic, _ := cmd.Flags().GetString("topic")
			if err := runIngest(cmd.Context(), topic); err != nil {
				logger.Error("Ingestion failed", err)
				os.Exit(1)
			}
		},
	}

	ingestCmd.Flags().StringP("topic", "t", "", "Ingest only this topic's feeds")
	return ingestCmd
}

func runIngest(ctx context.Context, onlyTopic string) error {
	cfg := config.Get()

	if len(cfg.Feeds.Sources) == 0 {
		fmt.Println("No feeds configured. Add feeds under feeds.sources in .newslens.yaml.")
		return nil
	}

	st, err := store.NewStore(cfg.App.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open article store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close article store", err)
		}
	}()

	timeout, err := time.ParseDuration(cfg.Feeds.Timeout)
	if err != nil {
		timeout = 30 * time.Second
	}
	fetcher := ingest.NewFetcher(timeout, cfg.Feeds.UserAgent, cfg.Feeds.MaxItems)

	totalNew := 0
	totalSkipped := 0
	for topic, feedURLs := range cfg.Feeds.Sources {
		if onlyTopic != "" && topic != onlyTopic {
			continue
		}
		fmt.Printf("Fetching %s feeds (%d)...\n", topic, len(feedURLs))

		articles, err := fetcher.FetchTopic(ctx, topic, feedURLs)
		if err != nil {
			return fmt.Errorf("failed to fetch %s feeds: %w", topic, err)
		}

		for _, article := range articles {
			hash := ingest.ContentHash(article)
			seen, err := st.HasContentHash(hash)
			if err != nil {
				return fmt.Errorf("failed to check for duplicates: %w", err)
			}
			if seen {
				totalSkipped++
				continue
			}
			if err := st.SaveArticle(article, hash); err != nil {
				return fmt.Errorf("failed to save article %s: %w", article.URL, err)
			}
			totalNew++
			fmt.Printf("  + %s\n", article.Title)
		}
	}

	logger.Info("Ingestion complete", "new", totalNew, "skipped", totalSkipped)
	fmt.Printf("\nIngested %d new articles (%d already seen)\n", totalNew, totalSkipped)
	if totalNew > 0 {
		fmt.Println("Run `newslens process` to cluster and rank them.")
	}
	return nil
}
