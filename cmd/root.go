package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/nocap/internal/config"
	"github.com/lehigh-university-libraries/nocap/internal/logging"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var cfg config.Config
	var logLevel string
	var logFormat string

	cmd := &cobra.Command{
		Use:   "nocap",
		Short: "Caption image datasets for fine-tuning, one image at a time",
		Long: `nocap walks through the images of a zip archive so you can write one
caption per image, then exports the images with sibling .txt caption files.

Existing .txt files in the upload prefill the captions, and a vision-capable LLM
(Ollama, OpenAI or Gemini) can draft captions on request.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg = config.Load()
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if logFormat != "" {
				cfg.LogFormat = logFormat
			}
			logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)

			if cfg.SentryDSN == "" {
				return nil
			}
			if err := sentry.Init(sentry.ClientOptions{
				Dsn:         cfg.SentryDSN,
				Environment: cfg.SentryEnvironment,
				Release:     "nocap@" + cmd.Root().Version,
			}); err != nil {
				return fmt.Errorf("failed to initialise sentry: %w", err)
			}
			slog.Debug("Error reporting enabled", "environment", cfg.SentryEnvironment)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			sentry.Flush(2 * time.Second)
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json (default from LOG_FORMAT)")

	// Add subcommands
	cmd.AddCommand(newServeCmd(&cfg))
	cmd.AddCommand(newCaptionCmd(&cfg))
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newDatasetCmd())

	return cmd
}
