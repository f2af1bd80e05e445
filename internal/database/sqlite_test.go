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

func testDB(t *testing.T) *SQLite {
	t.Helper()
	path := t.TempDir() + "/test.db"
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		os.Remove(path)
	})
	return db
}

func ptr[T any](v T) *T { return &v }

var _ store.Store = (*SQLite)(nil)

func TestUserCRUD(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	loc := "Green Valley, CA"

	created, err := db.CreateUser(ctx, &models.User{
		Email:        "ana@farm.example",
		PasswordHash: "hash",
		Name:         "Ana",
		Role:         models.RoleFarmer,
		Location:     &loc,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := db.GetUser(ctx, created.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got == nil || got.Email != "ana@farm.example" || got.Role != models.RoleFarmer {
		t.Fatalf("get user returned %+v", got)
	}
	if got.Location == nil || *got.Location != loc {
		t.Errorf("Location = %v, want %q", got.Location, loc)
	}

	byEmail, err := db.GetUserByEmail(ctx, "ana@farm.example")
	if err != nil || byEmail == nil || byEmail.ID != created.ID {
		t.Fatalf("get by email = (%+v, %v)", byEmail, err)
	}

	missing, err := db.GetUser(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("expected (nil, nil) for missing user, got (%v, %v)", missing, err)
	}

	users, err := db.ListUsers(ctx)
	if err != nil || len(users) != 1 {
		t.Errorf("list users = (%d, %v), want 1", len(users), err)
	}
}

func TestCropMarketplaceAndUpdate(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	harvest := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	listed, err := db.CreateCrop(ctx, &models.Crop{
		FarmerID: "f1", CropName: "Carrots", Quantity: 50, Price: 2.25, HarvestDate: harvest,
	})
	if err != nil {
		t.Fatalf("create crop: %v", err)
	}
	if _, err := db.CreateCrop(ctx, &models.Crop{
		FarmerID: "f1", CropName: "Squash", Quantity: 10, Price: 1, HarvestDate: harvest, DonationFlag: true,
	}); err != nil {
		t.Fatalf("create donation crop: %v", err)
	}

	market, err := db.ListMarketplaceCrops(ctx)
	if err != nil {
		t.Fatalf("marketplace: %v", err)
	}
	if len(market) != 1 || market[0].ID != listed.ID {
		t.Fatalf("marketplace = %+v, want only %s", market, listed.ID)
	}

	byFarmer, err := db.ListCropsByFarmer(ctx, "f1")
	if err != nil || len(byFarmer) != 2 {
		t.Fatalf("by farmer = (%d, %v), want 2", len(byFarmer), err)
	}

	updated, err := db.UpdateCrop(ctx, listed.ID, models.CropPatch{Status: ptr(models.CropDonated)})
	if err != nil {
		t.Fatalf("update crop: %v", err)
	}
	if updated.Version != 2 || updated.Status != models.CropDonated {
		t.Errorf("updated = %+v", updated)
	}

	got, _ := db.GetCrop(ctx, listed.ID)
	if got.Status != models.CropDonated || got.Quantity != 50 {
		t.Errorf("re-read = %+v", got)
	}

	market, _ = db.ListMarketplaceCrops(ctx)
	if len(market) != 0 {
		t.Errorf("marketplace len = %d after donation, want 0", len(market))
	}

	_, err = db.UpdateCrop(ctx, listed.ID, models.CropPatch{Quantity: ptr(1), ExpectedVersion: ptr(int64(1))})
	if !errors.Is(err, store.ErrVersionConflict) {
		t.Errorf("stale update err = %v, want ErrVersionConflict", err)
	}

	missing, err := db.UpdateCrop(ctx, "nope", models.CropPatch{Quantity: ptr(1)})
	if err != nil || missing != nil {
		t.Errorf("expected (nil, nil) for missing crop, got (%v, %v)", missing, err)
	}
}

func TestDonationStatusFlow(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	d, err := db.CreateDonation(ctx, &models.Donation{CropID: "c1", CommunityName: "Riverside Pantry"})
	if err != nil {
		t.Fatalf("create donation: %v", err)
	}
	if d.Status != models.DonationPending {
		t.Errorf("Status = %q, want pending", d.Status)
	}

	pending, err := db.ListPendingDonations(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending = (%d, %v), want 1", len(pending), err)
	}

	updated, err := db.UpdateDonation(ctx, d.ID, models.DonationPatch{Status: ptr(models.DonationAccepted)})
	if err != nil {
		t.Fatalf("update donation: %v", err)
	}
	if updated.UpdatedAt.Before(d.UpdatedAt) {
		t.Errorf("UpdatedAt went backwards")
	}

	pending, _ = db.ListPendingDonations(ctx)
	if len(pending) != 0 {
		t.Errorf("pending len = %d, want 0", len(pending))
	}

	got, _ := db.GetDonation(ctx, d.ID)
	if got.Status != models.DonationAccepted || got.Version != 2 {
		t.Errorf("re-read = %+v", got)
	}
}
