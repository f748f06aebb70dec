package archive

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"
	"github.com/lehigh-university-libraries/nocap/internal/models"
)

// LoadError is returned when an upload is not a readable zip archive.
type LoadError struct {
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("failed to read archive entry %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("invalid archive: %v", e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Bundle is the in-memory content of an uploaded archive
type Bundle struct {
	Images []models.ImageEntry
	Seed   models.CaptionMap
}

// Identifiers returns the image identifiers in archive order.
func (b *Bundle) Identifiers() []string {
	ids := make([]string, 0, len(b.Images))
	for _, img := range b.Images {
		ids = append(ids, img.Identifier)
	}
	return ids
}

// Load reads every image entry from a zip archive and seeds captions from any
// .txt files whose base name matches an image.
func Load(data []byte) (*Bundle, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &LoadError{Err: err}
	}

	bundle := &Bundle{
		Images: []models.ImageEntry{},
		Seed:   models.CaptionMap{},
	}

	// file name -> identifier of the first image with that name
	byFileName := make(map[string]string)
	var captionFiles []*zip.File

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}

		if ext, ok := ImageExtension(f.Name); ok {
			content, err := readEntry(f)
			if err != nil {
				return nil, &LoadError{Name: f.Name, Err: err}
			}
			bundle.Images = append(bundle.Images, models.ImageEntry{
				Identifier: f.Name,
				Data:       content,
				Extension:  ext,
			})
			if _, seen := byFileName[FileName(f.Name)]; !seen {
				byFileName[FileName(f.Name)] = f.Name
			}
			continue
		}

		if IsCaptionFile(f.Name) {
			captionFiles = append(captionFiles, f)
		}
	}

	for _, f := range captionFiles {
		content, err := readEntry(f)
		if err != nil {
			slog.Debug("Skipping unreadable caption file", "name", f.Name, "err", err)
			continue
		}
		if !utf8.Valid(content) {
			slog.Debug("Skipping caption file that is not UTF-8", "name", f.Name)
			continue
		}

		base := BaseName(f.Name)
		for _, ext := range ImageExtensions {
			if id, ok := byFileName[base+"."+ext]; ok {
				bundle.Seed[id] = string(content)
				break
			}
		}
	}

	slog.Debug("Archive loaded", "images", len(bundle.Images), "seeded_captions", len(bundle.Seed))

	return bundle, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}
