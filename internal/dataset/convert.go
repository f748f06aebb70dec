package dataset

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/lehigh-university-libraries/nocap/internal/archive"
	"github.com/parquet-go/parquet-go"
)

// FromArchive pairs every image in a caption archive with its caption file.
// Images without a caption are skipped.
func FromArchive(data []byte) ([]Row, error) {
	bundle, err := archive.Load(data)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(bundle.Seed))
	for _, img := range bundle.Images {
		caption, ok := bundle.Seed[img.Identifier]
		if !ok {
			slog.Warn("Skipping image without caption", "image", img.Identifier)
			continue
		}

		name := archive.FileName(img.Identifier)
		rows = append(rows, Row{
			FileName: name,
			Caption:  caption,
			Image: Image{
				Bytes: img.Data,
				Path:  name,
			},
		})
	}

	slog.Debug("Paired archive entries", "images", len(bundle.Images), "rows", len(rows))

	return rows, nil
}

// Write encodes rows as a parquet file.
func Write(w io.Writer, rows []Row) error {
	writer := parquet.NewGenericWriter[Row](w)

	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet: %w", err)
	}

	return nil
}
