// Package store defines the entity store contract and its in-memory backend.
//
// Lookups that find nothing return (nil, nil): absence is a normal outcome
// and callers translate it into a not-found response. Errors are reserved
// for backend failures and version conflicts.
package store

import (
	"context"
	"errors"

	"github.com/jredh-dev/rooted/pkg/models"
)

// ErrVersionConflict is returned by updates whose ExpectedVersion does not
// match the stored record. Nothing is written.
var ErrVersionConflict = errors.New("version conflict")

// Store is implemented by every persistence backend.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	CreateCrop(ctx context.Context, c *models.Crop) (*models.Crop, error)
	GetCrop(ctx context.Context, id string) (*models.Crop, error)
	ListCrops(ctx context.Context) ([]models.Crop, error)
	ListCropsByFarmer(ctx context.Context, farmerID string) ([]models.Crop, error)
	ListMarketplaceCrops(ctx context.Context) ([]models.Crop, error)
	UpdateCrop(ctx context.Context, id string, p models.CropPatch) (*models.Crop, error)

	CreateDonation(ctx context.Context, d *models.Donation) (*models.Donation, error)
	GetDonation(ctx context.Context, id string) (*models.Donation, error)
	ListDonations(ctx context.Context) ([]models.Donation, error)
	ListPendingDonations(ctx context.Context) ([]models.Donation, error)
	UpdateDonation(ctx context.Context, id string, p models.DonationPatch) (*models.Donation, error)

	Close() error
}
