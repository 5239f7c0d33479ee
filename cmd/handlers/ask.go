package handlers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"newslens/internal/chat"
	"newslens/internal/config"
	"newslens/internal/llm"
	"newslens/internal/logger"
	"newslens/internal/render"
	"newslens/internal/retrieval"
	"newslens/internal/vectorstore"
)

// NewAskCmd creates the one-shot question command
func NewAskCmd() *cobra.Command {
	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question about the collected news",
		Long: `Answer one question using the indexed article summaries. The answer is
grounded in the most relevant stored articles; when nothing relevant is
indexed, newslens says so instead of guessing.

Example:
  newslens ask "what happened in the cup final?"`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			question := strings.Join(args, " ")
			if err := runAsk(cmd.Context(), question); err != nil {
				logger.Error("Failed to answer question", err)
				os.Exit(1)
			}
		},
	}

	return askCmd
}

func runAsk(ctx context.Context, question string) error {
	cfg := config.Get()

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

	retriever := retrieval.NewRetriever(client, index)
	items, err := retriever.Retrieve(ctx, question, cfg.Chat.RetrievalK)
	if err != nil {
		return err
	}

	window := chat.BuildContext(items, nil, cfg.Chat.MaxContextItems, cfg.Chat.MaxHistoryTurns)
	answer, err := client.Answer(ctx, window, question)
	if err != nil {
		return err
	}

	render.Answer(os.Stdout, answer, window.Items)
	return nil
}
