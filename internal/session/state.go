package session

import (
	"github.com/lehigh-university-libraries/nocap/internal/models"
)

// State is the in-progress review of one upload.
//
// Cursor only moves forward, one step per saved caption, and returns to zero only
// when the state is reset or a different upload is observed. Once the review is
// complete it stays complete until a reset.
type State struct {
	Images     []models.ImageEntry
	Cursor     int
	Captions   models.CaptionMap
	EarlyEnd   bool
	LastUpload string
	UploadName string
}

// New returns an empty state with no upload.
func New() *State {
	return &State{Captions: models.CaptionMap{}}
}

// InitializeOrReset starts a fresh review of images, seeded with any captions
// already present in the upload.
func (s *State) InitializeOrReset(identity, uploadName string, images []models.ImageEntry, seed models.CaptionMap) {
	s.Images = images
	s.Cursor = 0
	s.Captions = seed.Clone()
	s.EarlyEnd = false
	s.LastUpload = identity
	s.UploadName = uploadName
}

// IsNewUpload reports whether identity differs from the last processed upload.
func (s *State) IsNewUpload(identity string) bool {
	return identity != s.LastUpload
}

// HasUpload reports whether an upload has been processed since the last reset.
func (s *State) HasUpload() bool {
	return s.LastUpload != ""
}

// Reset clears everything, including the remembered upload, so that uploading
// the same file again starts over.
func (s *State) Reset() {
	*s = State{Captions: models.CaptionMap{}}
}

// CurrentImage returns the image under the cursor. ok is false when there are no
// more images to review.
func (s *State) CurrentImage() (models.ImageEntry, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Images) {
		return models.ImageEntry{}, false
	}
	return s.Images[s.Cursor], true
}

// CurrentCaption is the caption the editor should be prefilled with.
func (s *State) CurrentCaption() string {
	img, ok := s.CurrentImage()
	if !ok {
		return ""
	}
	return s.Captions[img.Identifier]
}

// IsReviewComplete reports whether every image was visited or the user ended early.
func (s *State) IsReviewComplete() bool {
	return s.Cursor >= len(s.Images) || s.EarlyEnd
}

// Save stores caption for the current image and advances the cursor. It does
// nothing and returns false once the review is complete.
func (s *State) Save(caption string) bool {
	if s.IsReviewComplete() {
		return false
	}
	img, _ := s.CurrentImage()
	if s.Captions == nil {
		s.Captions = models.CaptionMap{}
	}
	s.Captions[img.Identifier] = caption
	s.Cursor++
	return true
}

// EndEarly finishes the review without visiting the remaining images.
func (s *State) EndEarly() {
	s.EarlyEnd = true
}

// Progress is the fraction of images reviewed so far.
func (s *State) Progress() float64 {
	if len(s.Images) == 0 {
		return 0
	}
	return float64(s.Cursor) / float64(len(s.Images))
}

// Clone returns a copy that shares image bytes but not captions.
func (s *State) Clone() *State {
	out := *s
	out.Captions = s.Captions.Clone()
	if s.Images != nil {
		out.Images = append([]models.ImageEntry(nil), s.Images...)
	}
	return &out
}
