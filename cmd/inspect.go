package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/nocap/internal/inspect"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "inspect <images.zip>",
		Short: "Show what an upload contains",
		Long: `Prints the upload identity, the images in review order and any captions
seeded from .txt files, exactly as the captioning interface would load them.`,
		Example: `  # Human readable summary
  nocap inspect photos.zip

  # Machine readable
  nocap inspect photos.zip --format yaml

  # Spreadsheet for review outside the tool
  nocap inspect photos.zip --format xlsx -o photos.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "xlsx" && output == "" {
				return fmt.Errorf("--output is required for xlsx")
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read archive: %w", err)
			}

			report, err := inspect.Build(filepath.Base(args[0]), data)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create report file: %w", err)
				}
				defer f.Close()
				w = f
			}

			return inspect.Write(w, report, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: "+strings.Join(inspect.Formats, ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the report to a file instead of stdout")

	return cmd
}
