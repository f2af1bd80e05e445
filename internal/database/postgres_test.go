package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jredh-dev/rooted/internal/store"
	"github.com/jredh-dev/rooted/pkg/models"
)

var _ store.Store = (*Postgres)(nil)

// testPostgres opens the database named by ROOTED_TEST_POSTGRES_DSN and
// skips when it is unset.
func testPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("ROOTED_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ROOTED_TEST_POSTGRES_DSN not set")
	}
	db, err := OpenPostgres(dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPostgresDonationFlow(t *testing.T) {
	db := testPostgres(t)
	ctx := context.Background()

	crop, err := db.CreateCrop(ctx, &models.Crop{
		FarmerID: "farmer-pg", CropName: "Beets", Quantity: 4, Price: 1.25,
		HarvestDate: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateCrop: %v", err)
	}

	d, err := db.CreateDonation(ctx, &models.Donation{CropID: crop.ID, CommunityName: "Eastside Pantry"})
	if err != nil {
		t.Fatalf("CreateDonation: %v", err)
	}
	if d.Status != models.DonationPending || d.Version != 1 {
		t.Fatalf("unexpected defaults: %+v", d)
	}

	accepted := models.DonationAccepted
	updated, err := db.UpdateDonation(ctx, d.ID, models.DonationPatch{Status: &accepted, ExpectedVersion: ptr(int64(1))})
	if err != nil {
		t.Fatalf("UpdateDonation: %v", err)
	}
	if updated.UpdatedAt.Before(d.UpdatedAt) {
		t.Errorf("updatedAt moved backwards: %v -> %v", d.UpdatedAt, updated.UpdatedAt)
	}

	if _, err := db.UpdateDonation(ctx, d.ID, models.DonationPatch{Status: &accepted, ExpectedVersion: ptr(int64(1))}); !errors.Is(err, store.ErrVersionConflict) {
		t.Errorf("expected version conflict, got %v", err)
	}

	pending, err := db.ListPendingDonations(ctx)
	if err != nil {
		t.Fatalf("ListPendingDonations: %v", err)
	}
	for _, p := range pending {
		if p.ID == d.ID {
			t.Errorf("accepted donation still listed as pending")
		}
	}
}
