package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/jredh-dev/rooted/pkg/models"
)

// The helpers below apply creation defaults. Every backend calls them so
// ids, statuses and timestamps are assigned the same way everywhere.

// NewUser returns a copy of u with a fresh id and creation time.
func NewUser(u *models.User, now time.Time) *models.User {
	out := *u
	out.ID = uuid.New().String()
	if out.Location != nil && *out.Location == "" {
		out.Location = nil
	}
	out.CreatedAt = now
	return &out
}

// NewCrop returns a copy of c with a fresh id, status available and version 1.
func NewCrop(c *models.Crop, now time.Time) *models.Crop {
	out := *c
	out.ID = uuid.New().String()
	out.Status = models.CropAvailable
	out.Version = 1
	out.CreatedAt = now
	return &out
}

// NewDonation returns a copy of d with a fresh id, status pending and version 1.
func NewDonation(d *models.Donation, now time.Time) *models.Donation {
	out := *d
	out.ID = uuid.New().String()
	out.Status = models.DonationPending
	out.Version = 1
	out.RequestedAt = now
	out.UpdatedAt = now
	return &out
}

// CheckVersion returns ErrVersionConflict when expected is set and differs
// from current.
func CheckVersion(expected *int64, current int64) error {
	if expected != nil && *expected != current {
		return ErrVersionConflict
	}
	return nil
}
