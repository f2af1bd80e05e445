package handlers

import "net/http"

// PlatformStats handles GET /api/analytics/platform-stats
func (h *Handler) PlatformStats(w http.ResponseWriter, r *http.Request) {
	snap, err := h.stats.Current(r.Context())
	if err != nil {
		storeFailure(w, "platform stats", err)
		return
	}
	jsonOK(w, http.StatusOK, snap)
}
