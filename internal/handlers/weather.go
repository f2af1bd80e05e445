package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/jredh-dev/rooted/internal/weather"
)

// Weather handles GET /api/weather?location=
func (h *Handler) Weather(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	if location == "" {
		location = weather.DefaultLocation
	}

	body, err := h.weather.Current(r.Context(), location)
	switch {
	case errors.Is(err, weather.ErrNotConfigured):
		jsonError(w, "Weather service not configured", http.StatusInternalServerError)
		return
	case err != nil:
		log.Printf("weather: %s: %v", location, err)
		jsonError(w, "Failed to fetch weather data", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body) //nolint:errcheck
}
