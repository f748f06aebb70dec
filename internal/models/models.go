package models

// ImageEntry is an image read from an uploaded archive
type ImageEntry struct {
	Identifier string `json:"identifier"` // archive-relative path
	Data       []byte `json:"-"`
	Extension  string `json:"extension"` // "png", "jpg" or "jpeg"
}

// Size returns the number of bytes in the image
func (e ImageEntry) Size() int {
	return len(e.Data)
}

// MIMEType returns the media type implied by the image extension
func (e ImageEntry) MIMEType() string {
	switch e.Extension {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// CaptionMap maps an image identifier to its caption text
type CaptionMap map[string]string

// Clone returns an independent copy of the map
func (c CaptionMap) Clone() CaptionMap {
	out := make(CaptionMap, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// ImageSummary describes the image under review without its bytes
type ImageSummary struct {
	Identifier string `json:"identifier"`
	Extension  string `json:"extension"`
	Size       int    `json:"size"`
}

// ReviewView is everything a UI host needs to render one review cycle
type ReviewView struct {
	HasUpload    bool          `json:"has_upload"`
	UploadName   string        `json:"upload_name,omitempty"`
	Complete     bool          `json:"complete"`
	EndedEarly   bool          `json:"ended_early"`
	Total        int           `json:"total"`
	Position     int           `json:"position"`
	Progress     float64       `json:"progress"`
	ProgressText string        `json:"progress_text,omitempty"`
	Current      *ImageSummary `json:"current,omitempty"`
	Caption      string        `json:"caption"`
	Captioned    int           `json:"captioned"`
	DownloadName string        `json:"download_name,omitempty"`
}
