package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"newslens/internal/chat"
	"newslens/internal/config"
	"newslens/internal/llm"
	"newslens/internal/logger"
	"newslens/internal/retrieval"
	"newslens/internal/vectorstore"
)

// NewChatCmd creates the interactive chat command
func NewChatCmd() *cobra.Command {
	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat interactively about the collected news",
		Long: `Start an interactive session that answers questions grounded in the
indexed article summaries. Recent turns stay in context, so follow-up
questions work. Type /help inside the session for commands.

Example:
  newslens chat`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runChat(cmd.Context()); err != nil {
				logger.Error("Chat session failed", err)
				os.Exit(1)
			}
		},
	}

	return chatCmd
}

func runChat(ctx context.Context) error {
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
	handler := chat.NewHandler(retriever, client, chat.Options{
		RetrievalK:      cfg.Chat.RetrievalK,
		MaxContextItems: cfg.Chat.MaxContextItems,
		MaxHistoryTurns: cfg.Chat.MaxHistoryTurns,
	}, os.Stdin, os.Stdout)

	return handler.Run(ctx)
}
