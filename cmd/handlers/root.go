package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"newslens/internal/config"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "newslens",
		Short: "Newslens collects news feeds and turns them into ranked highlights you can chat with.",
		Long: `Newslens pulls articles from configured RSS/Atom feeds, groups near-duplicate
coverage of the same story, ranks the day's highlights per topic, and answers
questions grounded in the collected articles.

Typical flow:
  newslens ingest      # pull new articles from feeds
  newslens process     # cluster, rank and index them
  newslens highlights  # show the ranked highlights per topic
  newslens chat        # ask questions about the coverage`,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .newslens.yaml in the current or home directory)")

	rootCmd.AddCommand(NewIngestCmd())
	rootCmd.AddCommand(NewProcessCmd())
	rootCmd.AddCommand(NewHighlightsCmd())
	rootCmd.AddCommand(NewAskCmd())
	rootCmd.AddCommand(NewChatCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}
