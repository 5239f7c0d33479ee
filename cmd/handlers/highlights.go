package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"newslens/internal/config"
	"newslens/internal/logger"
	"newslens/internal/render"
	"newslens/internal/store"
)

// NewHighlightsCmd creates the highlight listing command
func NewHighlightsCmd() *cobra.Command {
	highlightsCmd := &cobra.Command{
		Use:   "highlights [topic]",
		Short: "Show the ranked highlights for a topic",
		Long: `Display the ranked highlight list produced by the latest processing run.
Without a topic, highlights for every configured topic are shown.

Example:
  newslens highlights
  newslens highlights sports`,
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			topic := ""
			if len(args) > 0 {
				topic = args[0]
			}
			if err := runHighlights(topic); err != nil {
				logger.Error("Failed to show highlights", err)
				os.Exit(1)
			}
		},
	}

	return highlightsCmd
}

func runHighlights(onlyTopic string) error {
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

	topics := cfg.Pipeline.Topics
	if onlyTopic != "" {
		topics = []string{onlyTopic}
	}

	for i, topic := range topics {
		entries, err := st.GetHighlights(topic)
		if err != nil {
			return fmt.Errorf("failed to load %s highlights: %w", topic, err)
		}
		computedAt, computed, err := st.HighlightsComputedAt(topic)
		if err != nil {
			return fmt.Errorf("failed to load %s highlight run: %w", topic, err)
		}

		render.Highlights(os.Stdout, topic, entries, computed, computedAt)
		if i < len(topics)-1 {
			fmt.Println()
		}
	}
	return nil
}
