package controlapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	vaultauth "github.com/cloudvault/vaultd/internal/auth"
	"github.com/cloudvault/vaultd/internal/controlapi/auth"
	"github.com/cloudvault/vaultd/internal/session"
	"github.com/cloudvault/vaultd/internal/store/identity"
)

// SessionLister is the subset of *session.Manager the control plane needs.
type SessionLister interface {
	List() []session.Info
	Kick(id string) bool
	Count() int
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type authHandler struct {
	users identity.Store
	jwt   *auth.Service
}

func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	u, err := h.users.ValidateCredentials(r.Context(), req.Username, func(v identity.PasswordVerifier) bool {
		return vaultauth.Verify(vaultauth.Verifier{Salt: v.Salt, Hash: v.Hash}, req.Password)
	})
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if u.Role != identity.RoleAdmin {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}

	token, expiresAt, err := h.jwt.Issue(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, TokenType: "Bearer", ExpiresAt: expiresAt})
}

func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "no claims in context")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":  claims.UserID,
		"username": claims.Username,
		"role":     claims.Role,
	})
}

type sessionHandler struct {
	sessions SessionLister
}

func (h *sessionHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": h.sessions.List(),
		"count":    h.sessions.Count(),
	})
}

func (h *sessionHandler) Kick(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.sessions.Kick(id) {
		writeError(w, http.StatusNotFound, "no session with that id")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "kicked", "session_id": id})
}

type healthHandler struct {
	startedAt time.Time
}

func (h *healthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}
