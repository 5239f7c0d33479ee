package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"newslens/internal/config"
	"newslens/internal/llm"
	"newslens/internal/logger"
	"newslens/internal/pipeline"
	"newslens/internal/store"
	"newslens/internal/vectorstore"
)

// NewProcessCmd creates the daily processing command
func NewProcessCmd() *cobra.Command {
	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Cluster, rank and index the ingested articles",
		Long: `Run the processing pipeline over stored articles: summarize and embed new
articles, group near-duplicate coverage per topic, recompute each topic's
ranked highlights, and refresh the question-answering index.

Each topic is processed independently, so a failure in one topic leaves the
others (and the previous run's results) intact.

Example:
  newslens process
  newslens process --topic finance`,
		Run: func(cmd *cobra.Command, args []string) {
			topic, _ := cmd.Flags().GetString("topic")
			if err := runProcess(cmd.Context(), topic); err != nil {
				logger.Error("Processing failed", err)
				os.Exit(1)
			}
		},
	}

	processCmd.Flags().StringP("topic", "t", "", "Process only this topic")
	return processCmd
}

func runProcess(ctx context.Context, onlyTopic string) error {
	cfg := config.Get()

	st, err := store.NewStore(cfg.App.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open article store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close article store", err)
		}
	}()

	index, err := vectorstore.NewSQLiteIndex(cfg.App.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open vector index: %w", err)
	}
	defer func() {
		if err := index.Close(); err != nil {
			logger.Error("Failed to close vector index", err)
		}
	}()

	client, err := llm.NewClient(ctx, cfg.AI.Gemini.Model)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	defer client.Close()

	processor := pipeline.NewProcessor(st, client, index, cfg.Pipeline)

	if onlyTopic != "" {
		if err := processor.ProcessTopic(ctx, onlyTopic); err != nil {
			return err
		}
		fmt.Printf("✅ Processed topic %s\n", onlyTopic)
		return nil
	}

	if err := processor.Run(ctx); err != nil {
		return err
	}
	fmt.Println("✅ Processing complete")
	fmt.Println("Run `newslens highlights` to see the results.")
	return nil
}
