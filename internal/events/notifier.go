// rooted - farm-to-community marketplace backend
// Copyright (C) 2025  rooted contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.

package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/jredh-dev/rooted/pkg/models"
)

// Notifier delivers a donation event to whoever should hear about it.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// LogNotifier writes notifications to the process log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, e Event) error {
	log.Printf("notifier: %s", Summary(e))
	return nil
}

// WebhookNotifier posts notifications as JSON to a URL.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

// NewWebhookNotifier creates a WebhookNotifier for url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type webhookPayload struct {
	Text  string `json:"text"`
	Event Event  `json:"event"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, e Event) error {
	body, err := json.Marshal(webhookPayload{Text: Summary(e), Event: e})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Summary renders a one-line human description of a donation event.
func Summary(e Event) string {
	var d models.Donation
	if err := json.Unmarshal(e.Data, &d); err != nil || d.ID == "" {
		return fmt.Sprintf("%s for %s", e.Type, e.EntityID)
	}
	switch e.Type {
	case DonationRequested:
		return fmt.Sprintf("%s requested a donation of crop %s", d.CommunityName, d.CropID)
	case DonationUpdated:
		return fmt.Sprintf("Donation for %s is now %s", d.CommunityName, d.Status)
	default:
		return fmt.Sprintf("%s for %s", e.Type, e.EntityID)
	}
}
