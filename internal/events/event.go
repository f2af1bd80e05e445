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

// Package events publishes domain events to Kafka and consumes them to
// deliver donation notifications.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type names what happened to an entity.
type Type string

const (
	UserCreated       Type = "user.created"
	CropListed        Type = "crop.listed"
	CropUpdated       Type = "crop.updated"
	DonationRequested Type = "donation.requested"
	DonationUpdated   Type = "donation.updated"
)

// Event is the JSON document written to the events topic.
//
//	{
//	  "id":         "550e8400-e29b-41d4-a716-446655440000",
//	  "type":       "donation.requested",
//	  "entityId":   "9b2f...",
//	  "occurredAt": "2025-06-01T10:00:00Z",
//	  "data":       { ...the entity as served by the API... }
//	}
type Event struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	EntityID   string          `json:"entityId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// New builds an event carrying the JSON encoding of entity.
func New(t Type, entityID string, entity interface{}) (Event, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s data: %w", t, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}, nil
}

// IsDonation reports whether the event concerns a donation request.
func (e Event) IsDonation() bool {
	return strings.HasPrefix(string(e.Type), "donation.")
}

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop discards every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
