package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jredh-dev/rooted/pkg/models"
)

func wantField(t *testing.T, err error, field, rule string) {
	t.Helper()
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if verr.Field != field || verr.Rule != rule {
		t.Errorf("expected %s/%s, got %s/%s (%s)", field, rule, verr.Field, verr.Rule, verr.Message)
	}
}

func TestUser(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
		rule  string
	}{
		{"missing email", `{"password":"x","name":"A","role":"farmer"}`, "email", "required"},
		{"bad email", `{"email":"nope","password":"x","name":"A","role":"farmer"}`, "email", "email"},
		{"missing password", `{"email":"a@b.co","name":"A","role":"farmer"}`, "password", "required"},
		{"bad role", `{"email":"a@b.co","password":"x","name":"A","role":"admin"}`, "role", "oneof"},
		{"wrong type", `{"email":42}`, "email", "type"},
		{"malformed", `{"email":`, "", "json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := User(strings.NewReader(tt.body))
			wantField(t, err, tt.field, tt.rule)
		})
	}
}

func TestUserPasswordByteLimit(t *testing.T) {
	user := func(pw string) string {
		return `{"email":"a@b.co","password":"` + pw + `","name":"A","role":"farmer"}`
	}

	if _, err := User(strings.NewReader(user(strings.Repeat("a", 72)))); err != nil {
		t.Fatalf("72-byte password rejected: %v", err)
	}

	_, err := User(strings.NewReader(user(strings.Repeat("a", 73))))
	wantField(t, err, "password", "maxbytes")

	// 37 runes but 74 bytes.
	_, err = User(strings.NewReader(user(strings.Repeat("é", 37))))
	wantField(t, err, "password", "maxbytes")
}

func TestUserNormalizesAndAcceptsUserType(t *testing.T) {
	body := `{"email":"  ann@farm.co ","password":"pw","name":"Café","userType":"buyer","extra":true}`
	in, err := User(strings.NewReader(body))
	if err != nil {
		t.Fatalf("User: %v", err)
	}
	if in.Email != "ann@farm.co" {
		t.Errorf("expected trimmed email, got %q", in.Email)
	}
	if in.Name != "Café" {
		t.Errorf("expected NFC name, got %q", in.Name)
	}
	u := in.Model("hash")
	if u.Role != models.RoleBuyer {
		t.Errorf("expected buyer role, got %q", u.Role)
	}
	if u.Location != nil {
		t.Errorf("expected nil location, got %q", *u.Location)
	}
}

func TestCrop(t *testing.T) {
	c, err := Crop(strings.NewReader(`{"farmerId":"f1","cropName":"Kale","quantity":0,"price":2.499,"harvestDate":"2025-06-01"}`))
	if err != nil {
		t.Fatalf("Crop: %v", err)
	}
	if c.Quantity != 0 || c.Price != 2.5 || c.DonationFlag {
		t.Errorf("unexpected crop %+v", c)
	}
	if !c.HarvestDate.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected harvest date %v", c.HarvestDate)
	}

	tests := []struct {
		name  string
		body  string
		field string
		rule  string
	}{
		{"missing quantity", `{"farmerId":"f","cropName":"K","price":1,"harvestDate":"2025-06-01"}`, "quantity", "required"},
		{"negative price", `{"farmerId":"f","cropName":"K","quantity":1,"price":-1,"harvestDate":"2025-06-01"}`, "price", "gte"},
		{"bad date", `{"farmerId":"f","cropName":"K","quantity":1,"price":1,"harvestDate":"June"}`, "harvestDate", "date"},
		{"string quantity", `{"farmerId":"f","cropName":"K","quantity":"3"}`, "quantity", "type"},
		{"huge price", `{"farmerId":"f","cropName":"K","quantity":1,"price":1e307,"harvestDate":"2025-06-01"}`, "price", "lte"},
		{"price over column", `{"farmerId":"f","cropName":"K","quantity":1,"price":100000000,"harvestDate":"2025-06-01"}`, "price", "lte"},
		{"huge quantity", `{"farmerId":"f","cropName":"K","quantity":1000000001,"price":1,"harvestDate":"2025-06-01"}`, "quantity", "lte"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Crop(strings.NewReader(tt.body))
			wantField(t, err, tt.field, tt.rule)
		})
	}
}

func TestCropPatch(t *testing.T) {
	p, err := CropPatch(strings.NewReader(`{"status":"donated"}`))
	if err != nil {
		t.Fatalf("CropPatch: %v", err)
	}
	if p.Status == nil || *p.Status != models.CropDonated || p.Quantity != nil {
		t.Errorf("unexpected patch %+v", p)
	}

	_, err = CropPatch(strings.NewReader(`{}`))
	wantField(t, err, "", "required")

	_, err = CropPatch(strings.NewReader(`{"status":"gone"}`))
	wantField(t, err, "status", "oneof")

	_, err = CropPatch(strings.NewReader(`{"price":1e307}`))
	wantField(t, err, "price", "lte")

	_, err = CropPatch(strings.NewReader(`{"quantity":2000000000}`))
	wantField(t, err, "quantity", "lte")

	p, err = CropPatch(strings.NewReader(`{"price":99999999.99}`))
	if err != nil || p.Price == nil || *p.Price != 99999999.99 {
		t.Errorf("expected max price accepted, got %+v (%v)", p, err)
	}
}

func TestDonation(t *testing.T) {
	d, err := Donation(strings.NewReader(`{"cropId":"c1","communityName":" Eastside Pantry "}`))
	if err != nil {
		t.Fatalf("Donation: %v", err)
	}
	if d.CommunityName != "Eastside Pantry" {
		t.Errorf("unexpected community %q", d.CommunityName)
	}

	_, err = Donation(strings.NewReader(`{"cropId":"c1"}`))
	wantField(t, err, "communityName", "required")

	_, err = DonationPatch(strings.NewReader(`{}`))
	wantField(t, err, "status", "required")

	_, err = DonationPatch(strings.NewReader(`{"status":"lost"}`))
	wantField(t, err, "status", "oneof")
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-06-01T10:00:00+02:00")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if got.Hour() != 8 || got.Location() != time.UTC {
		t.Errorf("expected UTC 08:00, got %v", got)
	}
}
