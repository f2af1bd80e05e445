// Package models defines the ROOTED domain records shared by every store
// backend and the HTTP layer.
package models

import "time"

// Role is the kind of account a user registered as.
type Role string

const (
	RoleFarmer Role = "farmer"
	RoleBuyer  Role = "buyer"
)

// User is a registered farmer or buyer.
type User struct {
	ID           string    `json:"id" firestore:"id" gorm:"primaryKey;size:36"`
	Email        string    `json:"email" firestore:"email" gorm:"not null;index"`
	PasswordHash string    `json:"-" firestore:"passwordHash" gorm:"column:password_hash;not null"`
	Name         string    `json:"name" firestore:"name" gorm:"not null"`
	Role         Role      `json:"role" firestore:"role" gorm:"not null"`
	Location     *string   `json:"location" firestore:"location"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt"`
}

// CropStatus is the sale state of a crop listing.
type CropStatus string

const (
	CropAvailable CropStatus = "available"
	CropSold      CropStatus = "sold"
	CropDonated   CropStatus = "donated"
)

// Crop is a quantity of produce listed by a farmer.
type Crop struct {
	ID           string     `json:"id" firestore:"id" gorm:"primaryKey;size:36"`
	FarmerID     string     `json:"farmerId" firestore:"farmerId" gorm:"not null;index"`
	CropName     string     `json:"cropName" firestore:"cropName" gorm:"not null"`
	Quantity     int        `json:"quantity" firestore:"quantity" gorm:"not null"`
	Price        float64    `json:"price" firestore:"price" gorm:"type:numeric(10,2);not null"`
	HarvestDate  time.Time  `json:"harvestDate" firestore:"harvestDate" gorm:"not null"`
	DonationFlag bool       `json:"donationFlag" firestore:"donationFlag" gorm:"not null;default:false"`
	Status       CropStatus `json:"status" firestore:"status" gorm:"not null;default:available;index"`
	Version      int64      `json:"version" firestore:"version" gorm:"not null;default:1"`
	CreatedAt    time.Time  `json:"createdAt" firestore:"createdAt"`
}

// Listed reports whether the crop belongs in the marketplace listing.
func (c *Crop) Listed() bool {
	return !c.DonationFlag && c.Status == CropAvailable
}

// CropPatch is a partial crop update. Nil fields are left unchanged.
type CropPatch struct {
	Quantity     *int
	Price        *float64
	DonationFlag *bool
	Status       *CropStatus

	// ExpectedVersion, when set, must match the stored version.
	ExpectedVersion *int64
}

// Apply merges the patch into c and bumps its version.
func (p CropPatch) Apply(c *Crop) {
	if p.Quantity != nil {
		c.Quantity = *p.Quantity
	}
	if p.Price != nil {
		c.Price = *p.Price
	}
	if p.DonationFlag != nil {
		c.DonationFlag = *p.DonationFlag
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	c.Version++
}

// DonationStatus is the lifecycle state of a donation request.
type DonationStatus string

const (
	DonationPending   DonationStatus = "pending"
	DonationAccepted  DonationStatus = "accepted"
	DonationDeclined  DonationStatus = "declined"
	DonationCompleted DonationStatus = "completed"
)

// Donation is a community request against a crop.
type Donation struct {
	ID            string         `json:"id" firestore:"id" gorm:"primaryKey;size:36"`
	CropID        string         `json:"cropId" firestore:"cropId" gorm:"not null;index"`
	CommunityName string         `json:"communityName" firestore:"communityName" gorm:"not null"`
	Status        DonationStatus `json:"status" firestore:"status" gorm:"not null;default:pending;index"`
	Version       int64          `json:"version" firestore:"version" gorm:"not null;default:1"`
	RequestedAt   time.Time      `json:"requestedAt" firestore:"requestedAt"`
	UpdatedAt     time.Time      `json:"updatedAt" firestore:"updatedAt" gorm:"autoUpdateTime:false"`
}

// DonationPatch is a partial donation update.
type DonationPatch struct {
	Status *DonationStatus

	// ExpectedVersion, when set, must match the stored version.
	ExpectedVersion *int64
}

// Apply merges the patch into d, refreshes UpdatedAt and bumps the version.
// UpdatedAt never moves backwards even if the wall clock does.
func (p DonationPatch) Apply(d *Donation, now time.Time) {
	if p.Status != nil {
		d.Status = *p.Status
	}
	if now.After(d.UpdatedAt) {
		d.UpdatedAt = now
	}
	d.Version++
}
