// Package weather proxies current conditions from OpenWeatherMap.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the OpenWeatherMap current-weather endpoint.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// DefaultLocation is used when a request names no location.
const DefaultLocation = "San Francisco"

var (
	ErrNotConfigured = errors.New("weather service not configured")
	ErrUpstream      = errors.New("weather upstream failed")
)

// Service returns the raw upstream JSON for a location.
type Service interface {
	Current(ctx context.Context, location string) (json.RawMessage, error)
}

// Client calls OpenWeatherMap and caches successful responses.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	cache   Cache
	ttl     time.Duration
}

// New creates a Client. An empty apiKey makes every call fail with
// ErrNotConfigured. A nil cache disables caching.
func New(apiKey, baseURL string, cache Cache, ttl time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
		ttl:     ttl,
	}
}

func cacheKey(location string) string {
	return "weather:" + strings.ToLower(strings.TrimSpace(location))
}

// Current fetches metric-unit conditions for location.
func (c *Client) Current(ctx context.Context, location string) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(location) == "" {
		location = DefaultLocation
	}

	key := cacheKey(location)
	if c.cache != nil {
		if body, ok, err := c.cache.Get(ctx, key); err != nil {
			log.Printf("weather: cache get %s: %v", key, err)
		} else if ok {
			return body, nil
		}
	}

	q := url.Values{}
	q.Set("q", location)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrUpstream)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, body, c.ttl); err != nil {
			log.Printf("weather: cache set %s: %v", key, err)
		}
	}
	return body, nil
}
