package inspect

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/nocap/internal/archive"
	"gopkg.in/yaml.v3"
)

// Formats lists the supported report formats.
var Formats = []string{"text", "json", "yaml", "csv", "xlsx"}

// Report describes an upload the way the archive loader sees it
type Report struct {
	Upload    string        `json:"upload" yaml:"upload"`
	Identity  string        `json:"identity" yaml:"identity"`
	Generated string        `json:"generated" yaml:"generated"`
	Images    []ImageReport `json:"images" yaml:"images"`
	Seeded    int           `json:"seeded" yaml:"seeded"`
	Export    string        `json:"export" yaml:"export"`
}

// ImageReport is one image entry in archive order
type ImageReport struct {
	Position   int    `json:"position" yaml:"position"`
	Identifier string `json:"identifier" yaml:"identifier"`
	Extension  string `json:"extension" yaml:"extension"`
	Size       int    `json:"size" yaml:"size"`
	Caption    string `json:"caption,omitempty" yaml:"caption,omitempty"`
	ExportedAs string `json:"exported_as" yaml:"exported_as"`
}

// Build loads an archive and summarises it.
func Build(uploadName string, data []byte) (*Report, error) {
	bundle, err := archive.Load(data)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Upload:    uploadName,
		Identity:  archive.Identity(uploadName, data),
		Generated: time.Now().Format(time.RFC3339),
		Images:    make([]ImageReport, 0, len(bundle.Images)),
		Seeded:    len(bundle.Seed),
		Export:    archive.ExportName(uploadName),
	}

	for i, img := range bundle.Images {
		report.Images = append(report.Images, ImageReport{
			Position:   i + 1,
			Identifier: img.Identifier,
			Extension:  img.Extension,
			Size:       img.Size(),
			Caption:    bundle.Seed[img.Identifier],
			ExportedAs: archive.FileName(img.Identifier),
		})
	}

	return report, nil
}

// Write renders the report in format. The xlsx format writes a binary workbook.
func Write(w io.Writer, report *Report, format string) error {
	switch format {
	case "text", "":
		return writeText(w, report)
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(report); err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return encoder.Close()
	case "csv":
		return writeCSV(w, report)
	case "xlsx":
		return writeXLSX(w, report)
	default:
		return fmt.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

func writeText(w io.Writer, report *Report) error {
	var b strings.Builder
	fmt.Fprintln(&b, strings.Repeat("=", 80))
	fmt.Fprintf(&b, "Upload:    %s\n", report.Upload)
	fmt.Fprintf(&b, "Identity:  %s\n", report.Identity)
	fmt.Fprintf(&b, "Detected %d images, %d with seeded captions\n", len(report.Images), report.Seeded)
	fmt.Fprintf(&b, "Export:    %s\n", report.Export)
	fmt.Fprintln(&b, strings.Repeat("=", 80))

	for _, img := range report.Images {
		fmt.Fprintf(&b, "\n[%d] %s (%s, %d bytes)\n", img.Position, img.Identifier, img.Extension, img.Size)
		if img.Caption != "" {
			fmt.Fprintf(&b, "  Caption: %s\n", truncate(img.Caption, 80))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeCSV(w io.Writer, report *Report) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(columns); err != nil {
		return err
	}
	for _, img := range report.Images {
		if err := writer.Write(img.row()); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

var columns = []string{"Position", "Identifier", "Extension", "Size", "Exported As", "Caption"}

func (img ImageReport) row() []string {
	return []string{
		strconv.Itoa(img.Position),
		img.Identifier,
		img.Extension,
		strconv.Itoa(img.Size),
		img.ExportedAs,
		img.Caption,
	}
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
