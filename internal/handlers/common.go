package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/nocap/internal/captioning"
	"github.com/lehigh-university-libraries/nocap/internal/config"
	"github.com/lehigh-university-libraries/nocap/internal/metrics"
	"github.com/lehigh-university-libraries/nocap/internal/session"
	"github.com/lehigh-university-libraries/nocap/internal/storage"
)

const sessionCookie = "nocap_session"

type Handler struct {
	sessionStore      *storage.SessionStore
	captioningService *captioning.Service
	metrics           *metrics.Metrics
	maxUploadBytes    int64
	defaultProvider   string
}

func New(cfg config.Config) *Handler {
	return &Handler{
		sessionStore:      storage.New(),
		captioningService: captioning.NewService(cfg),
		metrics:           metrics.New(),
		maxUploadBytes:    cfg.MaxUploadBytes(),
		defaultProvider:   cfg.CaptionProvider,
	}
}

// Captioning exposes the suggestion service so callers can register providers.
func (h *Handler) Captioning() *captioning.Service {
	return h.captioningService
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message, "status", code)
		sentry.CaptureMessage(message)
	} else {
		slog.Warn(message, "status", code)
	}
	http.Error(w, message, code)
}

// Session helpers

// sessionID returns the browser session id, issuing a new cookie when the
// request has none.
func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// apply runs one review action for the caller's session and records it.
func (h *Handler) apply(w http.ResponseWriter, r *http.Request, action session.Action) *session.State {
	sessionID := h.sessionID(w, r)
	state := h.sessionStore.Apply(sessionID, action)
	h.metrics.RecordAction(session.Name(action))
	h.metrics.SetSessions(h.sessionStore.Len())
	slog.Debug("Applied review action",
		"session_id", sessionID,
		"action", session.Name(action),
		"cursor", state.Cursor,
		"total", len(state.Images),
		"complete", state.IsReviewComplete())
	return state
}

func (h *Handler) currentState(w http.ResponseWriter, r *http.Request) *session.State {
	return h.sessionStore.Get(h.sessionID(w, r))
}
