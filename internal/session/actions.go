package session

import (
	"github.com/lehigh-university-libraries/nocap/internal/models"
)

// Action is one user interaction with the review.
type Action interface {
	apply(s *State)
}

// Upload offers a loaded archive. It only restarts the review when Identity
// differs from the last processed upload.
type Upload struct {
	Identity string
	Name     string
	Images   []models.ImageEntry
	Seed     models.CaptionMap
}

// Save stores Caption for the current image and moves to the next one.
type Save struct {
	Caption string
}

// EndEarly finishes the review now, keeping what was already saved.
type EndEarly struct{}

// Reset discards the review and the remembered upload.
type Reset struct{}

func (a Upload) apply(s *State) {
	if !s.IsNewUpload(a.Identity) {
		return
	}
	s.InitializeOrReset(a.Identity, a.Name, a.Images, a.Seed)
}

func (a Save) apply(s *State) {
	s.Save(a.Caption)
}

func (EndEarly) apply(s *State) {
	s.EndEarly()
}

func (Reset) apply(s *State) {
	s.Reset()
}

// Apply returns the state that follows s after action. s itself is not modified.
func Apply(s *State, action Action) *State {
	if s == nil {
		s = New()
	}
	next := s.Clone()
	action.apply(next)
	return next
}

// Name returns a short label for logs and metrics.
func Name(action Action) string {
	switch action.(type) {
	case Upload:
		return "upload"
	case Save:
		return "save"
	case EndEarly:
		return "end_early"
	case Reset:
		return "reset"
	default:
		return "unknown"
	}
}
