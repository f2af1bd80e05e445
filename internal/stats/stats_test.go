package stats

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/jredh-dev/rooted/internal/store"
	"github.com/jredh-dev/rooted/pkg/models"
)

func seed(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemory()

	s.CreateUser(ctx, &models.User{Email: "f1@farm.co", Role: models.RoleFarmer})
	s.CreateUser(ctx, &models.User{Email: "f2@farm.co", Role: models.RoleFarmer})
	s.CreateUser(ctx, &models.User{Email: "b1@shop.co", Role: models.RoleBuyer})

	s.CreateCrop(ctx, &models.Crop{CropName: "Kale", Quantity: 10, Price: 2.5})
	s.CreateCrop(ctx, &models.Crop{CropName: "Beans", Quantity: 4, Price: 1.25})
	s.CreateCrop(ctx, &models.Crop{CropName: "Squash", Quantity: 8, Price: 3, DonationFlag: true})
	sold, _ := s.CreateCrop(ctx, &models.Crop{CropName: "Corn", Quantity: 1, Price: 9})
	status := models.CropSold
	s.UpdateCrop(ctx, sold.ID, models.CropPatch{Status: &status})

	d1, _ := s.CreateDonation(ctx, &models.Donation{CropID: "x", CommunityName: "Pantry"})
	s.CreateDonation(ctx, &models.Donation{CropID: "y", CommunityName: "Shelter"})
	done := models.DonationCompleted
	s.UpdateDonation(ctx, d1.ID, models.DonationPatch{Status: &done})
	return s
}

func TestCompute(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	snap, err := Compute(context.Background(), seed(t), now)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want := Snapshot{
		TotalFarmers:       2,
		TotalBuyers:        1,
		ActiveCrops:        2,
		DonatedCrops:       1,
		PendingDonations:   1,
		CompletedDonations: 1,
		TotalDonations:     2,
		ListedValue:        30,
		GeneratedAt:        now,
	}
	if snap != want {
		t.Errorf("expected %+v, got %+v", want, snap)
	}
}

func TestComputeListedValueStaysFinite(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	s.CreateCrop(ctx, &models.Crop{CropName: "Gold", Quantity: math.MaxInt, Price: 1e300})
	s.CreateCrop(ctx, &models.Crop{CropName: "Kale", Quantity: 2, Price: 1.5})

	snap, err := Compute(ctx, s, time.Now())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if math.IsInf(snap.ListedValue, 0) || math.IsNaN(snap.ListedValue) {
		t.Fatalf("listed value not finite: %v", snap.ListedValue)
	}
	if snap.ListedValue != 3 {
		t.Errorf("expected overflowing crop skipped, got %v", snap.ListedValue)
	}
	if _, err := json.Marshal(snap); err != nil {
		t.Errorf("snapshot does not encode: %v", err)
	}
}

func TestAggregatorCachesBetweenTicks(t *testing.T) {
	s := seed(t)
	a := New(s, time.Hour)
	defer a.Stop()

	first, err := a.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	s.CreateUser(context.Background(), &models.User{Email: "b2@shop.co", Role: models.RoleBuyer})

	second, _ := a.Current(context.Background())
	if second.TotalBuyers != first.TotalBuyers {
		t.Errorf("expected cached snapshot, buyers went %d -> %d", first.TotalBuyers, second.TotalBuyers)
	}
}

func TestAggregatorOnDemand(t *testing.T) {
	s := seed(t)
	a := New(s, 0)
	defer a.Stop()

	s.CreateUser(context.Background(), &models.User{Email: "b2@shop.co", Role: models.RoleBuyer})
	snap, err := a.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if snap.TotalBuyers != 2 {
		t.Errorf("expected 2 buyers, got %d", snap.TotalBuyers)
	}
}
