package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/chro-finder/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "chro-finder",
	Short: "Multi-source CHRO discovery pipeline",
	Long:  "Queries Perplexity, ChatGPT, search-grounded Gemini, and public LinkedIn results for a company's CHRO, reconciles the answers, and persists crash-safe profiles.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
