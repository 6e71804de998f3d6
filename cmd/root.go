package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/contentforge/contentforge/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "contentforge",
	Short: "Social content generation service",
	Long:  "Generates platform-tailored titles, captions, and hashtags for YouTube and Instagram, with a trending-keyword precision mode gated on a UPI payment ledger.",
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
