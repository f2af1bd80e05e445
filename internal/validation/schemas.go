package validation

import (
	"io"
	"math"

	"github.com/jredh-dev/rooted/pkg/models"
)

// UserInput is a validated registration payload.
type UserInput struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,maxbytes=72"`
	Name     string  `json:"name" validate:"required"`
	Role     string  `json:"role" validate:"required,oneof=farmer buyer"`
	UserType string  `json:"userType" validate:"-"`
	Location *string `json:"location"`
}

// Model builds the user record to store. The password hash is computed by
// the caller.
func (in *UserInput) Model(passwordHash string) *models.User {
	return &models.User{
		Email:        in.Email,
		PasswordHash: passwordHash,
		Name:         in.Name,
		Role:         models.Role(in.Role),
		Location:     in.Location,
	}
}

// User decodes and validates a registration body. "userType" is accepted
// as an alias for "role".
func User(body io.Reader) (*UserInput, error) {
	var in UserInput
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	in.Email = Clean(in.Email)
	in.Name = Clean(in.Name)
	in.Role = Clean(in.Role)
	if in.Role == "" {
		in.Role = Clean(in.UserType)
	}
	in.Location = cleanPtr(in.Location)
	if err := check(&in); err != nil {
		return nil, err
	}
	return &in, nil
}

type cropInput struct {
	FarmerID     string   `json:"farmerId" validate:"required"`
	CropName     string   `json:"cropName" validate:"required"`
	Quantity     *int     `json:"quantity" validate:"required,gte=0,lte=1000000000"`
	Price        *float64 `json:"price" validate:"required,gte=0,lte=99999999.99"`
	HarvestDate  string   `json:"harvestDate" validate:"required,date"`
	DonationFlag *bool    `json:"donationFlag"`
}

// Crop decodes and validates a crop listing body.
func Crop(body io.Reader) (*models.Crop, error) {
	var in cropInput
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	in.FarmerID = Clean(in.FarmerID)
	in.CropName = Clean(in.CropName)
	in.HarvestDate = Clean(in.HarvestDate)
	if err := check(&in); err != nil {
		return nil, err
	}
	price, err := roundPrice(*in.Price)
	if err != nil {
		return nil, err
	}
	harvest, _ := ParseDate(in.HarvestDate)
	c := &models.Crop{
		FarmerID:    in.FarmerID,
		CropName:    in.CropName,
		Quantity:    *in.Quantity,
		Price:       price,
		HarvestDate: harvest,
	}
	if in.DonationFlag != nil {
		c.DonationFlag = *in.DonationFlag
	}
	return c, nil
}

type cropPatchInput struct {
	Quantity     *int     `json:"quantity" validate:"omitempty,gte=0,lte=1000000000"`
	Price        *float64 `json:"price" validate:"omitempty,gte=0,lte=99999999.99"`
	DonationFlag *bool    `json:"donationFlag"`
	Status       *string  `json:"status" validate:"omitempty,oneof=available sold donated"`
}

// CropPatch decodes and validates a partial crop update. At least one
// field must be present.
func CropPatch(body io.Reader) (models.CropPatch, error) {
	var in cropPatchInput
	if err := decode(body, &in); err != nil {
		return models.CropPatch{}, err
	}
	in.Status = cleanPtr(in.Status)
	if in.Quantity == nil && in.Price == nil && in.DonationFlag == nil && in.Status == nil {
		return models.CropPatch{}, &Error{Rule: "required", Message: "at least one field must be provided"}
	}
	if err := check(&in); err != nil {
		return models.CropPatch{}, err
	}
	p := models.CropPatch{Quantity: in.Quantity, DonationFlag: in.DonationFlag}
	if in.Price != nil {
		price, err := roundPrice(*in.Price)
		if err != nil {
			return models.CropPatch{}, err
		}
		p.Price = &price
	}
	if in.Status != nil {
		s := models.CropStatus(*in.Status)
		p.Status = &s
	}
	return p, nil
}

type donationInput struct {
	CropID        string `json:"cropId" validate:"required"`
	CommunityName string `json:"communityName" validate:"required"`
}

// Donation decodes and validates a donation request body.
func Donation(body io.Reader) (*models.Donation, error) {
	var in donationInput
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	in.CropID = Clean(in.CropID)
	in.CommunityName = Clean(in.CommunityName)
	if err := check(&in); err != nil {
		return nil, err
	}
	return &models.Donation{CropID: in.CropID, CommunityName: in.CommunityName}, nil
}

type donationPatchInput struct {
	Status *string `json:"status" validate:"required,oneof=pending accepted declined completed"`
}

// DonationPatch decodes and validates a donation status change.
func DonationPatch(body io.Reader) (models.DonationPatch, error) {
	var in donationPatchInput
	if err := decode(body, &in); err != nil {
		return models.DonationPatch{}, err
	}
	in.Status = cleanPtr(in.Status)
	if err := check(&in); err != nil {
		return models.DonationPatch{}, err
	}
	s := models.DonationStatus(*in.Status)
	return models.DonationPatch{Status: &s}, nil
}

// roundPrice rounds to cents. The result must be finite so it can be
// stored in numeric(10,2) and encoded as JSON.
func roundPrice(p float64) (float64, error) {
	r := math.Round(p*100) / 100
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, &Error{Field: "price", Rule: "finite", Message: "price must be a finite number"}
	}
	return r, nil
}
