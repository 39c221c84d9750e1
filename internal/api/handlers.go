package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"shilohnova/internal/auth"
	"shilohnova/internal/observability/metrics"
	"shilohnova/internal/storage"
)

// Handler carries the dependencies shared by every RPC endpoint.
type Handler struct {
	Store               storage.Repository
	Sessions            *auth.SessionManager
	Credentials         auth.CredentialVerifier
	Logger              *slog.Logger
	Metrics             *metrics.Recorder
	SessionCookiePolicy SessionCookiePolicy
}

// NewHandler wires an RPC handler around the record store and session layer.
func NewHandler(store storage.Repository, sessions *auth.SessionManager, credentials auth.CredentialVerifier, logger *slog.Logger) *Handler {
	return &Handler{
		Store:               store,
		Sessions:            sessions,
		Credentials:         credentials,
		Logger:              logger,
		Metrics:             metrics.Default(),
		SessionCookiePolicy: DefaultSessionCookiePolicy(),
	}
}

func (h *Handler) recorder() *metrics.Recorder {
	if h.Metrics != nil {
		return h.Metrics
	}
	return metrics.Default()
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login validates the operator credential pair and issues a session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if !h.Credentials.Verify(req.Email, req.Password) {
		h.logger().Warn("login rejected", "email", req.Email)
		writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid credentials"))
		return
	}

	token, expiresAt, err := h.Sessions.Create()
	if err != nil {
		h.logger().Error("session create failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("could not establish session"))
		return
	}

	h.recorder().ObserveSessionEvent("created")
	h.setSessionCookie(w, r, token, expiresAt)
	h.logger().Info("operator logged in")
	writeJSON(w, http.StatusOK, loginResponse{Status: "ok", ExpiresAt: expiresAt})
}

// Health reports record store reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return false
	}
	return true
}
