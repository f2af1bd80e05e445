package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jredh-dev/rooted/internal/events"
	"github.com/jredh-dev/rooted/internal/store"
	"github.com/jredh-dev/rooted/internal/validation"
	"github.com/jredh-dev/rooted/pkg/models"
)

// CreateDonation handles POST /api/donations
func (h *Handler) CreateDonation(w http.ResponseWriter, r *http.Request) {
	in, err := validation.Donation(r.Body)
	if err != nil {
		badInput(w, err)
		return
	}
	donation, err := h.store.CreateDonation(r.Context(), in)
	if err != nil {
		storeFailure(w, "create donation", err)
		return
	}
	log.Printf("donations: requested id=%s crop=%s by=%q", donation.ID, donation.CropID, donation.CommunityName)
	h.publish(r.Context(), events.DonationRequested, donation.ID, donation)
	setETag(w, donation.Version)
	jsonOK(w, http.StatusOK, donation)
}

// PendingDonations handles GET /api/donations
func (h *Handler) PendingDonations(w http.ResponseWriter, r *http.Request) {
	donations, err := h.store.ListPendingDonations(r.Context())
	if err != nil {
		storeFailure(w, "list donations", err)
		return
	}
	if donations == nil {
		donations = []models.Donation{}
	}
	jsonOK(w, http.StatusOK, donations)
}

// GetDonation handles GET /api/donations/{id}
func (h *Handler) GetDonation(w http.ResponseWriter, r *http.Request) {
	donation, err := h.store.GetDonation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeFailure(w, "get donation", err)
		return
	}
	if donation == nil {
		jsonError(w, "Donation not found", http.StatusNotFound)
		return
	}
	setETag(w, donation.Version)
	jsonOK(w, http.StatusOK, donation)
}

// UpdateDonation handles PATCH /api/donations/{id}
func (h *Handler) UpdateDonation(w http.ResponseWriter, r *http.Request) {
	expected, err := ifMatch(r)
	if err != nil {
		badInput(w, err)
		return
	}
	patch, err := validation.DonationPatch(r.Body)
	if err != nil {
		badInput(w, err)
		return
	}
	patch.ExpectedVersion = expected

	donation, err := h.store.UpdateDonation(r.Context(), chi.URLParam(r, "id"), patch)
	if errors.Is(err, store.ErrVersionConflict) {
		jsonError(w, "Donation was modified by another request", http.StatusConflict)
		return
	}
	if err != nil {
		storeFailure(w, "update donation", err)
		return
	}
	if donation == nil {
		jsonError(w, "Donation not found", http.StatusNotFound)
		return
	}
	log.Printf("donations: id=%s status=%s", donation.ID, donation.Status)
	h.publish(r.Context(), events.DonationUpdated, donation.ID, donation)
	setETag(w, donation.Version)
	jsonOK(w, http.StatusOK, donation)
}
