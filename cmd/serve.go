package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/nocap/internal/config"
	"github.com/lehigh-university-libraries/nocap/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start web server for the captioning interface",
		Long: `Starts the nocap web interface on the specified port.

Upload a zip of png/jpg/jpeg images, caption them one by one in the browser
and download the images with their captions as a new zip archive.`,
		Example: `  # Start server on default port 8888
  nocap serve

  # Start server on custom port
  nocap serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				cfg.Port = port
			}
			handler := handlers.New(*cfg)

			addr := ":" + cfg.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("nocap interface available",
					"addr", addr,
					"url", "http://localhost"+addr,
					"max_upload_mb", cfg.MaxUploadMB,
					"caption_provider", cfg.CaptionProvider)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (default from NOCAP_PORT, 8888)")

	return cmd
}
