package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/contentforge/contentforge/internal/model"
)

var (
	genPlatform  string
	genTopic     string
	genPrecision bool
	genUser      string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate content for a topic from the command line",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, "generate")
		if err != nil {
			return err
		}
		defer env.Close()

		platform, err := model.ParsePlatform(genPlatform)
		if err != nil {
			return err
		}

		sess := env.sessions.Get(genUser)
		if err := sess.SetPlatform(platform); err != nil {
			return err
		}
		if genPrecision {
			granted, err := sess.SetPrecisionToggle(ctx, true)
			if err != nil {
				zap.L().Warn("precision toggle failed", zap.Error(err))
			}
			if !granted {
				zap.L().Warn("precision mode requires a verified payment, generating in standard mode",
					zap.String("user", genUser))
			}
		}

		result, err := sess.Submit(ctx, genTopic)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&genPlatform, "platform", "youtube", "target platform (youtube|instagram)")
	generateCmd.Flags().StringVar(&genTopic, "topic", "", "content topic (required)")
	generateCmd.Flags().BoolVar(&genPrecision, "precision", false, "request precision mode (requires verified payment)")
	generateCmd.Flags().StringVar(&genUser, "user", "", "user identity for entitlement checks")
	generateCmd.MarkFlagRequired("topic") //nolint:errcheck
	rootCmd.AddCommand(generateCmd)
}
