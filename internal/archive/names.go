package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
)

// ImageExtensions lists the recognised image suffixes in caption-matching priority order.
var ImageExtensions = []string{"png", "jpg", "jpeg"}

const captionExtension = ".txt"

// ImageExtension reports which recognised suffix name ends with.
// The match is a plain case-sensitive suffix check, so "photo.PNG" is not an image
// and "notapng" is.
func ImageExtension(name string) (string, bool) {
	for _, ext := range ImageExtensions {
		if strings.HasSuffix(name, ext) {
			return ext, true
		}
	}
	return "", false
}

// IsCaptionFile reports whether name is a caption text file.
func IsCaptionFile(name string) bool {
	return strings.HasSuffix(name, captionExtension)
}

// FileName strips the directory part of an archive path.
func FileName(name string) string {
	return path.Base(strings.ReplaceAll(name, "\\", "/"))
}

// BaseName strips both the directory and the extension of an archive path.
func BaseName(name string) string {
	file := FileName(name)
	return strings.TrimSuffix(file, path.Ext(file))
}

// CaptionFileName returns the caption file name paired with an image path.
func CaptionFileName(imageName string) string {
	return BaseName(imageName) + captionExtension
}

// ExportName returns the download file name for an upload, e.g. "cats.zip" -> "cats_captions.zip".
func ExportName(uploadName string) string {
	base := BaseName(uploadName)
	if base == "" || base == "." || base == "/" {
		base = "images"
	}
	return base + "_captions.zip"
}

// Identity fingerprints an upload by name and content so that re-uploading the
// same file can be told apart from a new one.
func Identity(uploadName string, data []byte) string {
	sum := sha256.Sum256(data)
	return uploadName + ":" + hex.EncodeToString(sum[:])
}
