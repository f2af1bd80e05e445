package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jredh-dev/rooted/pkg/models"
)

func ptr[T any](v T) *T { return &v }

func seedCrop(t *testing.T, s *Memory, farmerID string, donation bool) *models.Crop {
	t.Helper()
	c, err := s.CreateCrop(context.Background(), &models.Crop{
		FarmerID:     farmerID,
		CropName:     "Tomatoes",
		Quantity:     100,
		Price:        3.5,
		HarvestDate:  time.Now().UTC(),
		DonationFlag: donation,
		Status:       models.CropSold, // ignored on create
	})
	if err != nil {
		t.Fatalf("CreateCrop: %v", err)
	}
	return c
}

func TestMemory_UserByEmail(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	created, err := s.CreateUser(ctx, &models.User{
		Email: "ana@farm.example",
		Name:  "Ana",
		Role:  models.RoleFarmer,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if created.Location != nil {
		t.Errorf("Location = %v, want nil", *created.Location)
	}

	got, err := s.GetUserByEmail(ctx, "ana@farm.example")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got == nil {
		t.Fatal("GetUserByEmail returned nil")
	}
	if got.Email != "ana@farm.example" || got.Role != models.RoleFarmer {
		t.Errorf("got %+v", got)
	}

	missing, err := s.GetUserByEmail(ctx, "nobody@example.com")
	if err != nil || missing != nil {
		t.Errorf("expected (nil, nil) for unknown email, got (%v, %v)", missing, err)
	}
}

func TestMemory_DuplicateEmailsAllowed(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := s.CreateUser(ctx, &models.User{Email: "dup@example.com", Role: models.RoleBuyer}); err != nil {
			t.Fatalf("CreateUser %d: %v", i, err)
		}
	}
	users, _ := s.ListUsers(ctx)
	if len(users) != 2 {
		t.Fatalf("ListUsers len = %d, want 2", len(users))
	}
}

func TestMemory_CreateCropDefaults(t *testing.T) {
	s := NewMemory()
	c := seedCrop(t, s, "farmer-1", false)

	if c.Status != models.CropAvailable {
		t.Errorf("Status = %q, want available", c.Status)
	}
	if c.Version != 1 {
		t.Errorf("Version = %d, want 1", c.Version)
	}
	if c.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestMemory_Marketplace(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	listed := seedCrop(t, s, "farmer-1", false)
	donated := seedCrop(t, s, "farmer-1", true)
	sold := seedCrop(t, s, "farmer-2", false)
	if _, err := s.UpdateCrop(ctx, sold.ID, models.CropPatch{Status: ptr(models.CropSold)}); err != nil {
		t.Fatalf("UpdateCrop: %v", err)
	}

	market, err := s.ListMarketplaceCrops(ctx)
	if err != nil {
		t.Fatalf("ListMarketplaceCrops: %v", err)
	}
	if len(market) != 1 || market[0].ID != listed.ID {
		t.Fatalf("marketplace = %+v, want only %s", market, listed.ID)
	}

	byFarmer, _ := s.ListCropsByFarmer(ctx, "farmer-1")
	if len(byFarmer) != 2 {
		t.Errorf("ListCropsByFarmer len = %d, want 2", len(byFarmer))
	}
	for _, c := range byFarmer {
		if c.ID == sold.ID {
			t.Error("farmer-2 crop leaked into farmer-1 listing")
		}
	}
	_ = donated
}

func TestMemory_UpdateCrop(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	c := seedCrop(t, s, "farmer-1", false)

	updated, err := s.UpdateCrop(ctx, c.ID, models.CropPatch{
		Status:   ptr(models.CropDonated),
		Quantity: ptr(40),
	})
	if err != nil {
		t.Fatalf("UpdateCrop: %v", err)
	}
	if updated.Status != models.CropDonated || updated.Quantity != 40 {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Price != 3.5 {
		t.Errorf("Price changed to %v, untouched fields must survive", updated.Price)
	}
	if updated.Version != 2 {
		t.Errorf("Version = %d, want 2", updated.Version)
	}

	got, _ := s.GetCrop(ctx, c.ID)
	if got.Status != models.CropDonated {
		t.Errorf("re-read Status = %q, want donated", got.Status)
	}

	missing, err := s.UpdateCrop(ctx, "nope", models.CropPatch{Quantity: ptr(1)})
	if err != nil || missing != nil {
		t.Errorf("expected (nil, nil) for unknown crop, got (%v, %v)", missing, err)
	}
}

func TestMemory_UpdateCropVersionConflict(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	c := seedCrop(t, s, "farmer-1", false)

	if _, err := s.UpdateCrop(ctx, c.ID, models.CropPatch{Quantity: ptr(5), ExpectedVersion: ptr(int64(1))}); err != nil {
		t.Fatalf("first update: %v", err)
	}
	_, err := s.UpdateCrop(ctx, c.ID, models.CropPatch{Quantity: ptr(9), ExpectedVersion: ptr(int64(1))})
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("err = %v, want ErrVersionConflict", err)
	}
	got, _ := s.GetCrop(ctx, c.ID)
	if got.Quantity != 5 {
		t.Errorf("Quantity = %d, conflicting write must not apply", got.Quantity)
	}
}

func TestMemory_DonationLifecycle(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	d, err := s.CreateDonation(ctx, &models.Donation{CropID: "crop-1", CommunityName: "Eastside Kitchen", Status: models.DonationCompleted})
	if err != nil {
		t.Fatalf("CreateDonation: %v", err)
	}
	if d.Status != models.DonationPending {
		t.Errorf("Status = %q, want pending", d.Status)
	}

	pending, _ := s.ListPendingDonations(ctx)
	if len(pending) != 1 {
		t.Fatalf("pending len = %d, want 1", len(pending))
	}

	prev := d.UpdatedAt
	for _, st := range []models.DonationStatus{models.DonationAccepted, models.DonationCompleted} {
		clock = clock.Add(time.Millisecond)
		updated, err := s.UpdateDonation(ctx, d.ID, models.DonationPatch{Status: ptr(st)})
		if err != nil {
			t.Fatalf("UpdateDonation(%s): %v", st, err)
		}
		if updated.UpdatedAt.Before(prev) {
			t.Errorf("UpdatedAt went backwards: %v < %v", updated.UpdatedAt, prev)
		}
		prev = updated.UpdatedAt
	}

	// A clock step backwards must not move UpdatedAt back.
	clock = clock.Add(-time.Hour)
	updated, _ := s.UpdateDonation(ctx, d.ID, models.DonationPatch{Status: ptr(models.DonationDeclined)})
	if updated.UpdatedAt.Before(prev) {
		t.Errorf("UpdatedAt regressed after clock skew")
	}

	pending, _ = s.ListPendingDonations(ctx)
	if len(pending) != 0 {
		t.Errorf("pending len = %d, want 0 after status change", len(pending))
	}
	all, _ := s.ListDonations(ctx)
	if len(all) != 1 {
		t.Errorf("ListDonations len = %d, want 1", len(all))
	}

	missing, err := s.UpdateDonation(ctx, "nope", models.DonationPatch{Status: ptr(models.DonationAccepted)})
	if err != nil || missing != nil {
		t.Errorf("expected (nil, nil) for unknown donation, got (%v, %v)", missing, err)
	}
}

func TestMemory_ConcurrentUpdates(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	c := seedCrop(t, s, "farmer-1", false)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(q int) {
			defer wg.Done()
			_, _ = s.UpdateCrop(ctx, c.ID, models.CropPatch{Quantity: ptr(q)})
		}(i)
	}
	wg.Wait()

	got, _ := s.GetCrop(ctx, c.ID)
	if got.Version != 51 {
		t.Errorf("Version = %d, want 51 after 50 updates", got.Version)
	}
}
