package handlers

import (
	"log"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/jredh-dev/rooted/internal/auth"
	"github.com/jredh-dev/rooted/internal/events"
	"github.com/jredh-dev/rooted/internal/validation"
)

// CreateUser handles POST /api/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	in, err := validation.User(r.Body)
	if err != nil {
		badInput(w, err)
		return
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		storeFailure(w, "hash password", err)
		return
	}
	user, err := h.store.CreateUser(r.Context(), in.Model(hash))
	if err != nil {
		storeFailure(w, "create user", err)
		return
	}
	log.Printf("users: created id=%s role=%s", user.ID, user.Role)
	h.publish(r.Context(), events.UserCreated, user.ID, user)
	jsonOK(w, http.StatusOK, user)
}

// GetUser handles GET /api/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeFailure(w, "get user", err)
		return
	}
	if user == nil {
		jsonError(w, "User not found", http.StatusNotFound)
		return
	}
	jsonOK(w, http.StatusOK, user)
}

// GetUserByEmail handles GET /api/users/email/{email}
func (h *Handler) GetUserByEmail(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		jsonError(w, "User not found", http.StatusNotFound)
		return
	}
	user, err := h.store.GetUserByEmail(r.Context(), validation.Clean(email))
	if err != nil {
		storeFailure(w, "get user by email", err)
		return
	}
	if user == nil {
		jsonError(w, "User not found", http.StatusNotFound)
		return
	}
	jsonOK(w, http.StatusOK, user)
}
