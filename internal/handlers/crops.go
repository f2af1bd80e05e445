package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jredh-dev/rooted/internal/events"
	"github.com/jredh-dev/rooted/internal/market"
	"github.com/jredh-dev/rooted/internal/store"
	"github.com/jredh-dev/rooted/internal/validation"
	"github.com/jredh-dev/rooted/pkg/models"
)

// CreateCrop handles POST /api/crops
func (h *Handler) CreateCrop(w http.ResponseWriter, r *http.Request) {
	in, err := validation.Crop(r.Body)
	if err != nil {
		badInput(w, err)
		return
	}
	crop, err := h.store.CreateCrop(r.Context(), in)
	if err != nil {
		storeFailure(w, "create crop", err)
		return
	}
	log.Printf("crops: listed id=%s farmer=%s", crop.ID, crop.FarmerID)
	h.publish(r.Context(), events.CropListed, crop.ID, crop)
	setETag(w, crop.Version)
	jsonOK(w, http.StatusOK, crop)
}

// Marketplace handles GET /api/crops/marketplace
func (h *Handler) Marketplace(w http.ResponseWriter, r *http.Request) {
	filter, err := market.ParseFilter(r.URL.Query())
	if err != nil {
		badInput(w, err)
		return
	}
	crops, err := h.store.ListMarketplaceCrops(r.Context())
	if err != nil {
		storeFailure(w, "list marketplace", err)
		return
	}
	jsonOK(w, http.StatusOK, filter.Apply(crops, h.now()))
}

// CropsByFarmer handles GET /api/crops/{farmerId}
func (h *Handler) CropsByFarmer(w http.ResponseWriter, r *http.Request) {
	crops, err := h.store.ListCropsByFarmer(r.Context(), chi.URLParam(r, "farmerId"))
	if err != nil {
		storeFailure(w, "list farmer crops", err)
		return
	}
	if crops == nil {
		crops = []models.Crop{}
	}
	jsonOK(w, http.StatusOK, crops)
}

// GetCrop handles GET /api/crops/item/{id}
func (h *Handler) GetCrop(w http.ResponseWriter, r *http.Request) {
	crop, err := h.store.GetCrop(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeFailure(w, "get crop", err)
		return
	}
	if crop == nil {
		jsonError(w, "Crop not found", http.StatusNotFound)
		return
	}
	setETag(w, crop.Version)
	jsonOK(w, http.StatusOK, crop)
}

// UpdateCrop handles PATCH /api/crops/{id}
func (h *Handler) UpdateCrop(w http.ResponseWriter, r *http.Request) {
	expected, err := ifMatch(r)
	if err != nil {
		badInput(w, err)
		return
	}
	patch, err := validation.CropPatch(r.Body)
	if err != nil {
		badInput(w, err)
		return
	}
	patch.ExpectedVersion = expected

	id := chi.URLParam(r, "id")
	crop, err := h.store.UpdateCrop(r.Context(), id, patch)
	if errors.Is(err, store.ErrVersionConflict) {
		jsonError(w, "Crop was modified by another request", http.StatusConflict)
		return
	}
	if err != nil {
		storeFailure(w, "update crop", err)
		return
	}
	if crop == nil {
		jsonError(w, "Crop not found", http.StatusNotFound)
		return
	}
	h.publish(r.Context(), events.CropUpdated, crop.ID, crop)
	setETag(w, crop.Version)
	jsonOK(w, http.StatusOK, crop)
}
