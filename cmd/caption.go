package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/nocap/internal/archive"
	"github.com/lehigh-university-libraries/nocap/internal/captioning"
	"github.com/lehigh-university-libraries/nocap/internal/config"
	"github.com/lehigh-university-libraries/nocap/internal/console"
	"github.com/lehigh-university-libraries/nocap/internal/models"
	"github.com/lehigh-university-libraries/nocap/internal/session"
	"github.com/spf13/cobra"
)

func newCaptionCmd(cfg *config.Config) *cobra.Command {
	var output string
	var suggest bool
	var provider string
	var model string

	cmd := &cobra.Command{
		Use:   "caption <images.zip>",
		Short: "Caption an archive in the terminal",
		Long: `Walks through every image of a zip archive in the terminal.

For each image type a caption and press Enter. An empty line keeps the caption
shown (from a matching .txt file or an LLM suggestion), :end finishes early and
:quit aborts without writing anything. Type \n for a line break.`,
		Example: `  # Caption a folder of photos, writing photos_captions.zip next to it
  nocap caption photos.zip

  # Prefill empty captions with suggestions from OpenAI
  nocap caption photos.zip --suggest --provider openai -o out.zip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("failed to read archive: %w", err)
			}

			name := filepath.Base(input)
			bundle, err := archive.Load(data)
			if err != nil {
				return err
			}

			state := session.Apply(nil, session.Upload{
				Identity: archive.Identity(name, data),
				Name:     name,
				Images:   bundle.Images,
				Seed:     bundle.Seed,
			})

			var opts console.Options
			if suggest {
				svc := captioning.NewService(*cfg)
				opts.Suggest = func(ctx context.Context, img models.ImageEntry) (string, error) {
					return svc.Suggest(ctx, img, provider, model)
				}
			}

			state, err = console.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), state, opts)
			if errors.Is(err, console.ErrAborted) {
				fmt.Fprintln(cmd.OutOrStdout(), "Review aborted, nothing written")
				return nil
			}
			if err != nil {
				return err
			}

			if output == "" {
				output = filepath.Join(filepath.Dir(input), archive.ExportName(name))
			}

			exported, err := state.Export()
			if err != nil {
				return fmt.Errorf("failed to export captions: %w", err)
			}
			if err := os.WriteFile(output, exported, 0644); err != nil {
				return fmt.Errorf("failed to write archive: %w", err)
			}

			slog.Info("Captions exported", "path", output, "captions", len(state.Captions), "bytes", len(exported))
			fmt.Fprintf(cmd.OutOrStdout(), "Captions saved to: %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output archive (default <name>_captions.zip beside the input)")
	cmd.Flags().BoolVar(&suggest, "suggest", false, "Prefill empty captions with an LLM suggestion")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider: ollama, openai or gemini (default from CAPTION_PROVIDER)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (default depends on provider)")

	return cmd
}
