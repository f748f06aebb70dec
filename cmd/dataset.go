package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/nocap/internal/archive"
	"github.com/lehigh-university-libraries/nocap/internal/dataset"
	"github.com/spf13/cobra"
)

func newDatasetCmd() *cobra.Command {
	var output string
	var preview int

	cmd := &cobra.Command{
		Use:   "dataset <captions.zip>",
		Short: "Convert a caption archive to a parquet dataset",
		Long: `Converts an exported caption archive into a parquet file with one
{file_name, caption, image} row per captioned image, ready for dataset hubs.

Images are paired with the .txt file of the same base name. Images without a
caption are skipped.`,
		Example: `  # Write photos_captions.parquet next to the archive
  nocap dataset photos_captions.zip

  # Choose the output and print the first rows back
  nocap dataset photos_captions.zip -o train.parquet --preview 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("failed to read archive: %w", err)
			}

			rows, err := dataset.FromArchive(data)
			if err != nil {
				return err
			}

			if output == "" {
				output = filepath.Join(filepath.Dir(input), archive.BaseName(input)+".parquet")
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create dataset file: %w", err)
			}
			if err := dataset.Write(f, rows); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to close dataset file: %w", err)
			}

			slog.Info("Dataset written", "path", output, "rows", len(rows))
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", len(rows), output)

			if preview <= 0 {
				return nil
			}

			sample, err := dataset.NewLoader(output).LoadSample(preview)
			if err != nil {
				return fmt.Errorf("failed to read back dataset: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Repeat("-", 80))
			for _, row := range sample {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes): %s\n", row.FileName, len(row.Image.Bytes), row.Caption)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output parquet file (default <name>.parquet beside the input)")
	cmd.Flags().IntVar(&preview, "preview", 0, "Print the first N rows read back from the written file")

	return cmd
}
