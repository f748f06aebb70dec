package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/nocap/internal/archive"
	"github.com/lehigh-university-libraries/nocap/internal/session"
)

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("files")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				h.writeError(w, fmt.Sprintf("File too large (max %dMB)", h.maxUploadBytes/1024/1024), http.StatusRequestEntityTooLarge)
				return
			}
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".zip") {
		h.metrics.RecordUpload("rejected", 0)
		h.writeError(w, "Only .zip archives are accepted", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	sessionID := h.sessionID(w, r)
	identity := archive.Identity(header.Filename, data)

	if !h.sessionStore.Get(sessionID).IsNewUpload(identity) {
		h.metrics.RecordUpload("repeat", 0)
		state := h.sessionStore.Get(sessionID)
		slog.Info("Upload already in progress, keeping review", "session_id", sessionID, "upload", header.Filename, "cursor", state.Cursor)
		h.writeJSON(w, map[string]any{
			"message": "Upload already loaded, continuing review",
			"images":  len(state.Images),
			"reset":   false,
			"review":  state.View(),
		})
		return
	}

	bundle, err := archive.Load(data)
	if err != nil {
		h.metrics.RecordUpload("rejected", 0)
		var loadErr *archive.LoadError
		if errors.As(err, &loadErr) {
			h.writeError(w, "Upload rejected: "+loadErr.Error(), http.StatusBadRequest)
			return
		}
		h.writeError(w, "Failed to load archive: "+err.Error(), http.StatusInternalServerError)
		return
	}

	state := h.apply(w, r, session.Upload{
		Identity: identity,
		Name:     header.Filename,
		Images:   bundle.Images,
		Seed:     bundle.Seed,
	})
	h.metrics.RecordUpload("new", len(bundle.Images))

	slog.Info("Upload loaded",
		"session_id", sessionID,
		"upload", header.Filename,
		"images", len(bundle.Images),
		"seeded_captions", len(bundle.Seed))

	h.writeJSON(w, map[string]any{
		"message": fmt.Sprintf("Detected %d images", len(bundle.Images)),
		"images":  len(bundle.Images),
		"seeded":  len(bundle.Seed),
		"reset":   true,
		"review":  state.View(),
	})
}
