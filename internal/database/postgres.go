package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jredh-dev/rooted/internal/store"
	"github.com/jredh-dev/rooted/pkg/models"
)

// Postgres is the gorm-backed relational store.
type Postgres struct {
	db  *gorm.DB
	now func() time.Time
}

// OpenPostgres connects to dsn and auto-migrates the users, crops and
// donations tables.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Crop{}, &models.Donation{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// first loads a single row into dest, mapping "not found" to (false, nil).
func first(tx *gorm.DB, dest interface{}, query string, args ...interface{}) (bool, error) {
	err := tx.Where(query, args...).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// --- Users ---

func (p *Postgres) CreateUser(ctx context.Context, in *models.User) (*models.User, error) {
	u := store.NewUser(in, p.now())
	if err := p.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (p *Postgres) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	ok, err := first(p.db.WithContext(ctx), &u, "id = ?", id)
	if !ok {
		return nil, err
	}
	return &u, nil
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	ok, err := first(p.db.WithContext(ctx).Order("created_at ASC"), &u, "email = ?", email)
	if !ok {
		return nil, err
	}
	return &u, nil
}

func (p *Postgres) ListUsers(ctx context.Context) ([]models.User, error) {
	users := make([]models.User, 0)
	err := p.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error
	return users, err
}

// --- Crops ---

func (p *Postgres) CreateCrop(ctx context.Context, in *models.Crop) (*models.Crop, error) {
	c := store.NewCrop(in, p.now())
	if err := p.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("insert crop: %w", err)
	}
	return c, nil
}

func (p *Postgres) GetCrop(ctx context.Context, id string) (*models.Crop, error) {
	var c models.Crop
	ok, err := first(p.db.WithContext(ctx), &c, "id = ?", id)
	if !ok {
		return nil, err
	}
	return &c, nil
}

func (p *Postgres) findCrops(ctx context.Context, query string, args ...interface{}) ([]models.Crop, error) {
	crops := make([]models.Crop, 0)
	tx := p.db.WithContext(ctx).Order("created_at DESC")
	if query != "" {
		tx = tx.Where(query, args...)
	}
	err := tx.Find(&crops).Error
	return crops, err
}

func (p *Postgres) ListCrops(ctx context.Context) ([]models.Crop, error) {
	return p.findCrops(ctx, "")
}

func (p *Postgres) ListCropsByFarmer(ctx context.Context, farmerID string) ([]models.Crop, error) {
	return p.findCrops(ctx, "farmer_id = ?", farmerID)
}

func (p *Postgres) ListMarketplaceCrops(ctx context.Context) ([]models.Crop, error) {
	return p.findCrops(ctx, "donation_flag = ? AND status = ?", false, string(models.CropAvailable))
}

func (p *Postgres) UpdateCrop(ctx context.Context, id string, patch models.CropPatch) (*models.Crop, error) {
	var out *models.Crop
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Crop
		ok, err := first(tx, &c, "id = ?", id)
		if !ok {
			return err
		}
		if err := store.CheckVersion(patch.ExpectedVersion, c.Version); err != nil {
			return err
		}
		prev := c.Version
		patch.Apply(&c)

		res := tx.Model(&models.Crop{}).
			Where("id = ? AND version = ?", id, prev).
			Updates(map[string]interface{}{
				"quantity":      c.Quantity,
				"price":         c.Price,
				"donation_flag": c.DonationFlag,
				"status":        string(c.Status),
				"version":       c.Version,
			})
		if res.Error != nil {
			return fmt.Errorf("update crop: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return store.ErrVersionConflict
		}
		out = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// --- Donations ---

func (p *Postgres) CreateDonation(ctx context.Context, in *models.Donation) (*models.Donation, error) {
	d := store.NewDonation(in, p.now())
	if err := p.db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, fmt.Errorf("insert donation: %w", err)
	}
	return d, nil
}

func (p *Postgres) GetDonation(ctx context.Context, id string) (*models.Donation, error) {
	var d models.Donation
	ok, err := first(p.db.WithContext(ctx), &d, "id = ?", id)
	if !ok {
		return nil, err
	}
	return &d, nil
}

func (p *Postgres) ListDonations(ctx context.Context) ([]models.Donation, error) {
	donations := make([]models.Donation, 0)
	err := p.db.WithContext(ctx).Order("requested_at DESC").Find(&donations).Error
	return donations, err
}

func (p *Postgres) ListPendingDonations(ctx context.Context) ([]models.Donation, error) {
	donations := make([]models.Donation, 0)
	err := p.db.WithContext(ctx).
		Where("status = ?", string(models.DonationPending)).
		Order("requested_at DESC").
		Find(&donations).Error
	return donations, err
}

func (p *Postgres) UpdateDonation(ctx context.Context, id string, patch models.DonationPatch) (*models.Donation, error) {
	var out *models.Donation
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.Donation
		ok, err := first(tx, &d, "id = ?", id)
		if !ok {
			return err
		}
		if err := store.CheckVersion(patch.ExpectedVersion, d.Version); err != nil {
			return err
		}
		prev := d.Version
		patch.Apply(&d, p.now())

		res := tx.Model(&models.Donation{}).
			Where("id = ? AND version = ?", id, prev).
			Updates(map[string]interface{}{
				"status":     string(d.Status),
				"version":    d.Version,
				"updated_at": d.UpdatedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("update donation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return store.ErrVersionConflict
		}
		out = &d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
