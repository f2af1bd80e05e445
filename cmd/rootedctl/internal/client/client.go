// Package client is a typed HTTP client for the ROOTED API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jredh-dev/rooted/internal/stats"
	"github.com/jredh-dev/rooted/pkg/models"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string `json:"message"`
	Field   string `json:"field"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%d: %s (%s)", e.Status, e.Message, e.Field)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Client talks to one ROOTED server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewUser is the registration payload.
type NewUser struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Role     string  `json:"role"`
	Location *string `json:"location,omitempty"`
}

// CropUpdate is a partial crop change. Nil fields are omitted.
type CropUpdate struct {
	Quantity     *int     `json:"quantity,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	DonationFlag *bool    `json:"donationFlag,omitempty"`
	Status       *string  `json:"status,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, version int64, out interface{}) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if version > 0 {
		req.Header.Set("If-Match", strconv.Quote(strconv.FormatInt(version, 10)))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s decode: %w", method, path, err)
	}
	return nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(id), nil, 0, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) FindUser(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/api/users/email/"+url.PathEscape(email), nil, 0, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodPost, "/api/users", in, 0, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Marketplace lists crops for sale. filters are passed as query parameters.
func (c *Client) Marketplace(ctx context.Context, filters url.Values) ([]models.Crop, error) {
	path := "/api/crops/marketplace"
	if len(filters) > 0 {
		path += "?" + filters.Encode()
	}
	var crops []models.Crop
	if err := c.do(ctx, http.MethodGet, path, nil, 0, &crops); err != nil {
		return nil, err
	}
	return crops, nil
}

func (c *Client) FarmerCrops(ctx context.Context, farmerID string) ([]models.Crop, error) {
	var crops []models.Crop
	if err := c.do(ctx, http.MethodGet, "/api/crops/"+url.PathEscape(farmerID), nil, 0, &crops); err != nil {
		return nil, err
	}
	return crops, nil
}

// UpdateCrop patches a crop. A positive version is sent as If-Match.
func (c *Client) UpdateCrop(ctx context.Context, id string, in CropUpdate, version int64) (*models.Crop, error) {
	var crop models.Crop
	if err := c.do(ctx, http.MethodPatch, "/api/crops/"+url.PathEscape(id), in, version, &crop); err != nil {
		return nil, err
	}
	return &crop, nil
}

func (c *Client) PendingDonations(ctx context.Context) ([]models.Donation, error) {
	var donations []models.Donation
	if err := c.do(ctx, http.MethodGet, "/api/donations", nil, 0, &donations); err != nil {
		return nil, err
	}
	return donations, nil
}

func (c *Client) RequestDonation(ctx context.Context, cropID, community string) (*models.Donation, error) {
	body := map[string]string{"cropId": cropID, "communityName": community}
	var d models.Donation
	if err := c.do(ctx, http.MethodPost, "/api/donations", body, 0, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// SetDonationStatus moves a donation to status. A positive version is sent
// as If-Match.
func (c *Client) SetDonationStatus(ctx context.Context, id, status string, version int64) (*models.Donation, error) {
	var d models.Donation
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPatch, "/api/donations/"+url.PathEscape(id), body, version, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) Stats(ctx context.Context) (stats.Snapshot, error) {
	var snap stats.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/analytics/platform-stats", nil, 0, &snap)
	return snap, err
}

// Weather returns the raw upstream weather document for location.
func (c *Client) Weather(ctx context.Context, location string) (json.RawMessage, error) {
	path := "/api/weather"
	if location != "" {
		path += "?location=" + url.QueryEscape(location)
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, 0, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
