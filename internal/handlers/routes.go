package handlers

import (
	"log/slog"
	"net/http"
)

// Routes builds the full HTTP surface of the review server.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/upload", h.HandleUpload)
	mux.HandleFunc("/api/review", h.HandleReview)
	mux.HandleFunc("/api/review/save", h.HandleSave)
	mux.HandleFunc("/api/review/end", h.HandleEnd)
	mux.HandleFunc("/api/review/reset", h.HandleReset)
	mux.HandleFunc("/api/review/image", h.HandleImage)
	mux.HandleFunc("/api/review/suggest", h.HandleSuggest)
	mux.HandleFunc("/api/download", h.HandleDownload)
	mux.Handle("/metrics", h.metrics.Handler())
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	mux.Handle("/", h.HandleStatic())

	return RequestID(AccessLog(Recover(h.metrics.Middleware(mux))))
}
