package session

import (
	"fmt"

	"github.com/lehigh-university-libraries/nocap/internal/archive"
	"github.com/lehigh-university-libraries/nocap/internal/models"
)

// View describes the current review cycle for a UI host.
func (s *State) View() models.ReviewView {
	view := models.ReviewView{
		HasUpload:  s.HasUpload(),
		UploadName: s.UploadName,
		Complete:   s.IsReviewComplete(),
		EndedEarly: s.EarlyEnd,
		Total:      len(s.Images),
		Position:   s.Cursor,
		Progress:   s.Progress(),
		Captioned:  len(s.Captions),
	}

	if view.Complete {
		if view.HasUpload {
			view.DownloadName = archive.ExportName(s.UploadName)
		}
		return view
	}

	img, _ := s.CurrentImage()
	view.Current = &models.ImageSummary{
		Identifier: img.Identifier,
		Extension:  img.Extension,
		Size:       img.Size(),
	}
	view.Caption = s.Captions[img.Identifier]
	view.ProgressText = fmt.Sprintf("Captioning image %d of %d", s.Cursor+1, len(s.Images))

	return view
}

// Export builds the caption archive for everything saved so far.
func (s *State) Export() ([]byte, error) {
	return archive.Export(s.Images, s.Captions)
}
