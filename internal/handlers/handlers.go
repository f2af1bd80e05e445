// Package handlers implements the ROOTED JSON API.
//
// Every handler follows the same shape: decode and validate the body, call
// the store, map the outcome to a status code and write JSON. Lookups that
// find nothing answer 404; validation failures answer 400 naming the first
// offending field.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jredh-dev/rooted/internal/auth"
	"github.com/jredh-dev/rooted/internal/events"
	"github.com/jredh-dev/rooted/internal/stats"
	"github.com/jredh-dev/rooted/internal/store"
	"github.com/jredh-dev/rooted/internal/validation"
	"github.com/jredh-dev/rooted/internal/weather"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	store   store.Store
	weather weather.Service
	auth    *auth.Service
	stats   *stats.Aggregator
	events  events.Publisher
	now     func() time.Time
}

// New creates a Handler. A nil publisher discards events.
func New(s store.Store, ws weather.Service, as *auth.Service, agg *stats.Aggregator, pub events.Publisher) *Handler {
	if pub == nil {
		pub = events.Noop{}
	}
	return &Handler{
		store:   s,
		weather: ws,
		auth:    as,
		stats:   agg,
		events:  pub,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Mount registers the API routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(OptionalAuth(h.auth))

		r.Post("/users", h.CreateUser)
		r.Get("/users/email/{email}", h.GetUserByEmail)
		r.Get("/users/{id}", h.GetUser)

		r.Post("/crops", h.CreateCrop)
		r.Get("/crops/marketplace", h.Marketplace)
		r.Get("/crops/item/{id}", h.GetCrop)
		r.Get("/crops/{farmerId}", h.CropsByFarmer)
		r.Patch("/crops/{id}", h.UpdateCrop)

		r.Post("/donations", h.CreateDonation)
		r.Get("/donations", h.PendingDonations)
		r.Get("/donations/{id}", h.GetDonation)
		r.Patch("/donations/{id}", h.UpdateDonation)

		r.Get("/weather", h.Weather)
		r.Get("/analytics/platform-stats", h.PlatformStats)

		r.Post("/session", h.CreateSession)
		r.Get("/me", h.Me)
	})
}

// publish emits an event. Failures are logged and never fail the request.
func (h *Handler) publish(ctx context.Context, t events.Type, id string, entity interface{}) {
	e, err := events.New(t, id, entity)
	if err != nil {
		log.Printf("events: %v", err)
		return
	}
	if err := h.events.Publish(ctx, e); err != nil {
		log.Printf("events: publish %s %s: %v", t, id, err)
	}
}

// --- helpers ---

func jsonOK(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("handlers: encode response: %v", err)
	}
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	jsonOK(w, status, map[string]string{"message": msg})
}

// badInput answers 400 for a validation failure and 500 for anything else.
func badInput(w http.ResponseWriter, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		jsonOK(w, http.StatusBadRequest, verr)
		return
	}
	log.Printf("handlers: validate: %v", err)
	jsonError(w, "Internal server error", http.StatusInternalServerError)
}

func storeFailure(w http.ResponseWriter, op string, err error) {
	log.Printf("handlers: %s: %v", op, err)
	jsonError(w, "Internal server error", http.StatusInternalServerError)
}

// ifMatch reads the expected record version from the If-Match header.
// Quoted and weak forms ("3", W/"3") are accepted. A missing header
// returns nil.
func ifMatch(r *http.Request) (*int64, error) {
	raw := strings.TrimSpace(r.Header.Get("If-Match"))
	if raw == "" || raw == "*" {
		return nil, nil
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &validation.Error{Field: "If-Match", Rule: "version", Message: "If-Match must be a record version"}
	}
	return &v, nil
}

func setETag(w http.ResponseWriter, version int64) {
	w.Header().Set("ETag", `"`+strconv.FormatInt(version, 10)+`"`)
}
