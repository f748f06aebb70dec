package archive

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/lehigh-university-libraries/nocap/internal/models"
)

// Export writes every captioned image and a sibling caption file into a zip
// archive. Images without a caption are left out. Entries follow image order.
func Export(images []models.ImageEntry, captions models.CaptionMap) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	modified := time.Now()
	written := make(map[string]string)

	for _, img := range images {
		caption, ok := captions[img.Identifier]
		if !ok {
			continue
		}

		imageName := FileName(img.Identifier)
		if prev, dup := written[imageName]; dup {
			slog.Warn("Export contains duplicate file name", "name", imageName, "first", prev, "second", img.Identifier)
		}
		written[imageName] = img.Identifier

		if err := writeEntry(zw, imageName, img.Data, modified); err != nil {
			return nil, err
		}
		if err := writeEntry(zw, CaptionFileName(img.Identifier), []byte(caption), modified); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	slog.Info("Export archive created", "images", len(written), "bytes", buf.Len())

	return buf.Bytes(), nil
}

func writeEntry(zw *zip.Writer, name string, data []byte, modified time.Time) error {
	header := &zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	}
	header.Modified = modified

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create archive entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write archive entry %s: %w", name, err)
	}
	return nil
}
