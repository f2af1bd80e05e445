package docstore

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jredh-dev/rooted/internal/store"
	"github.com/jredh-dev/rooted/pkg/models"
)

var _ store.Store = (*Firestore)(nil)

// emulatorStore connects to the Firestore emulator named by
// FIRESTORE_EMULATOR_HOST and skips the test when it is not set.
func emulatorStore(t *testing.T) *Firestore {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	f, err := Open(context.Background(), "rooted-test", "(default)")
	if err != nil {
		t.Fatalf("open emulator: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestEmulatorCropFlow(t *testing.T) {
	f := emulatorStore(t)
	ctx := context.Background()

	crop, err := f.CreateCrop(ctx, &models.Crop{FarmerID: "farmer-" + t.Name(), CropName: "Kale", Quantity: 3, Price: 2})
	if err != nil {
		t.Fatalf("CreateCrop: %v", err)
	}

	got, err := f.GetCrop(ctx, crop.ID)
	if err != nil || got == nil || got.CropName != "Kale" {
		t.Fatalf("GetCrop: %+v (%v)", got, err)
	}

	donated := models.CropDonated
	v := int64(1)
	updated, err := f.UpdateCrop(ctx, crop.ID, models.CropPatch{Status: &donated, ExpectedVersion: &v})
	if err != nil || updated.Version != 2 {
		t.Fatalf("UpdateCrop: %+v (%v)", updated, err)
	}
	if _, err := f.UpdateCrop(ctx, crop.ID, models.CropPatch{Status: &donated, ExpectedVersion: &v}); !errors.Is(err, store.ErrVersionConflict) {
		t.Errorf("expected version conflict, got %v", err)
	}

	missing, err := f.UpdateCrop(ctx, "missing-"+crop.ID, models.CropPatch{Status: &donated})
	if err != nil || missing != nil {
		t.Errorf("expected (nil, nil) for missing crop, got %+v (%v)", missing, err)
	}

	mine, err := f.ListCropsByFarmer(ctx, crop.FarmerID)
	if err != nil || len(mine) != 1 {
		t.Errorf("expected 1 farmer crop, got %d (%v)", len(mine), err)
	}
}

func TestEmulatorUserByEmail(t *testing.T) {
	f := emulatorStore(t)
	ctx := context.Background()

	email := t.Name() + "@farm.co"
	u, err := f.CreateUser(ctx, &models.User{Email: email, Name: "Ann", Role: models.RoleFarmer})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	got, err := f.GetUserByEmail(ctx, email)
	if err != nil || got == nil || got.ID != u.ID {
		t.Fatalf("GetUserByEmail: %+v (%v)", got, err)
	}
	none, err := f.GetUser(ctx, "nobody")
	if err != nil || none != nil {
		t.Errorf("expected (nil, nil), got %+v (%v)", none, err)
	}
}
