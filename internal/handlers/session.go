package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jredh-dev/rooted/internal/auth"
	"github.com/jredh-dev/rooted/pkg/models"
)

type sessionReq struct {
	IDToken string `json:"idToken"`
}

type sessionResp struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// CreateSession handles POST /api/session. It exchanges a Firebase ID
// token for a session token bound to the matching profile.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDToken == "" {
		jsonError(w, "idToken is required", http.StatusBadRequest)
		return
	}

	if h.auth == nil {
		jsonError(w, "Authentication not configured", http.StatusServiceUnavailable)
		return
	}
	email, err := h.auth.VerifyFirebaseToken(r.Context(), req.IDToken)
	switch {
	case errors.Is(err, auth.ErrNotConfigured):
		jsonError(w, "Authentication not configured", http.StatusServiceUnavailable)
		return
	case err != nil:
		log.Printf("session: verify: %v", err)
		jsonError(w, "Invalid identity token", http.StatusUnauthorized)
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		storeFailure(w, "session lookup", err)
		return
	}
	if user == nil {
		jsonError(w, "User not found", http.StatusNotFound)
		return
	}

	token, exp, err := h.auth.GenerateToken(user)
	if err != nil {
		storeFailure(w, "session token", err)
		return
	}
	jsonOK(w, http.StatusOK, sessionResp{Token: token, ExpiresAt: exp, User: user})
}

// Me handles GET /api/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	user, err := h.store.GetUser(r.Context(), claims.UserID)
	if err != nil {
		storeFailure(w, "get current user", err)
		return
	}
	if user == nil {
		jsonError(w, "User not found", http.StatusNotFound)
		return
	}
	jsonOK(w, http.StatusOK, user)
}
