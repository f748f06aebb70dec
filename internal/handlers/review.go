package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lehigh-university-libraries/nocap/internal/archive"
	"github.com/lehigh-university-libraries/nocap/internal/captioning"
	"github.com/lehigh-university-libraries/nocap/internal/session"
)

func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.writeJSON(w, h.currentState(w, r).View())
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		Caption string `json:"caption"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	state := h.apply(w, r, session.Save{Caption: request.Caption})
	h.writeJSON(w, state.View())
}

func (h *Handler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state := h.apply(w, r, session.EndEarly{})
	h.writeJSON(w, state.View())
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state := h.apply(w, r, session.Reset{})
	h.writeJSON(w, state.View())
}

func (h *Handler) HandleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	img, ok := h.currentState(w, r).CurrentImage()
	if !ok {
		h.writeError(w, "No image to review", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", img.MIMEType())
	w.Header().Set("Content-Length", strconv.Itoa(img.Size()))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(img.Data); err != nil {
		slog.Error("Unable to write image", "image", img.Identifier, "err", err)
	}
}

func (h *Handler) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		Provider string `json:"provider"`
		Model    string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil && err != io.EOF {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if request.Provider == "" {
		request.Provider = h.defaultProvider
	}

	img, ok := h.currentState(w, r).CurrentImage()
	if !ok {
		h.writeError(w, "No image to review", http.StatusConflict)
		return
	}

	caption, err := h.captioningService.Suggest(r.Context(), img, request.Provider, request.Model)
	h.metrics.RecordSuggestion(request.Provider, err)
	if err != nil {
		code := http.StatusBadGateway
		if captioning.IsUnavailable(err) {
			code = http.StatusServiceUnavailable
		}
		h.writeError(w, "Failed to suggest caption: "+err.Error(), code)
		return
	}

	h.writeJSON(w, map[string]string{
		"image":   img.Identifier,
		"caption": caption,
	})
}

func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state := h.currentState(w, r)
	if !state.HasUpload() {
		h.writeError(w, "Nothing uploaded", http.StatusNotFound)
		return
	}
	if !state.IsReviewComplete() {
		h.writeError(w, "Review is not complete", http.StatusConflict)
		return
	}

	data, err := state.Export()
	if err != nil {
		h.writeError(w, "Failed to build archive: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.metrics.RecordExport(len(data))

	name := archive.ExportName(state.UploadName)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		slog.Error("Unable to write archive", "name", name, "err", err)
	}
}
