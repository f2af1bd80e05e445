// Package database holds the relational store backends: SQLite through
// database/sql and Postgres through gorm.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jredh-dev/rooted/internal/store"
	"github.com/jredh-dev/rooted/pkg/models"

	_ "modernc.org/sqlite"
)

// SQLite wraps a SQLite connection and implements store.Store.
type SQLite struct {
	conn *sql.DB
	now  func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	name          TEXT NOT NULL,
	role          TEXT NOT NULL,
	location      TEXT,
	created_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

CREATE TABLE IF NOT EXISTS crops (
	id            TEXT PRIMARY KEY,
	farmer_id     TEXT NOT NULL,
	crop_name     TEXT NOT NULL,
	quantity      INTEGER NOT NULL,
	price         REAL NOT NULL,
	harvest_date  DATETIME NOT NULL,
	donation_flag BOOLEAN NOT NULL DEFAULT 0,
	status        TEXT NOT NULL DEFAULT 'available',
	version       INTEGER NOT NULL DEFAULT 1,
	created_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_crops_farmer_id ON crops(farmer_id);
CREATE INDEX IF NOT EXISTS idx_crops_status ON crops(status);

CREATE TABLE IF NOT EXISTS donations (
	id             TEXT PRIMARY KEY,
	crop_id        TEXT NOT NULL,
	community_name TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	version        INTEGER NOT NULL DEFAULT 1,
	requested_at   DATETIME NOT NULL,
	updated_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_donations_status ON donations(status);
`

// OpenSQLite creates or opens the SQLite database at path and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer, many readers.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{conn: conn, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database connection.
func (db *SQLite) Close() error {
	return db.conn.Close()
}

type scanner interface{ Scan(...interface{}) error }

// --- User operations ---

const userColumns = `id, email, password_hash, name, role, location, created_at`

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	var loc sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &loc, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if loc.Valid {
		u.Location = &loc.String
	}
	return u, nil
}

// CreateUser inserts a new user.
func (db *SQLite) CreateUser(ctx context.Context, in *models.User) (*models.User, error) {
	u := store.NewUser(in, db.now())
	const q = `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := db.conn.ExecContext(ctx, q,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.Location, u.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// GetUser looks up a user by ID.
func (db *SQLite) GetUser(ctx context.Context, id string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(db.conn.QueryRowContext(ctx, q, id))
}

// GetUserByEmail looks up the oldest user with the given email.
func (db *SQLite) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = ? ORDER BY created_at ASC LIMIT 1`
	return scanUser(db.conn.QueryRowContext(ctx, q, email))
}

// ListUsers returns every user, newest first.
func (db *SQLite) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// --- Crop operations ---

const cropColumns = `id, farmer_id, crop_name, quantity, price, harvest_date, donation_flag, status, version, created_at`

func scanCrop(row scanner) (*models.Crop, error) {
	c := &models.Crop{}
	err := row.Scan(
		&c.ID, &c.FarmerID, &c.CropName, &c.Quantity, &c.Price,
		&c.HarvestDate, &c.DonationFlag, &c.Status, &c.Version, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (db *SQLite) queryCrops(ctx context.Context, where string, args ...interface{}) ([]models.Crop, error) {
	q := `SELECT ` + cropColumns + ` FROM crops ` + where + ` ORDER BY created_at DESC`
	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	crops := make([]models.Crop, 0)
	for rows.Next() {
		c, err := scanCrop(rows)
		if err != nil {
			return nil, err
		}
		crops = append(crops, *c)
	}
	return crops, rows.Err()
}

// CreateCrop inserts a new crop with status available.
func (db *SQLite) CreateCrop(ctx context.Context, in *models.Crop) (*models.Crop, error) {
	c := store.NewCrop(in, db.now())
	const q = `INSERT INTO crops (` + cropColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := db.conn.ExecContext(ctx, q,
		c.ID, c.FarmerID, c.CropName, c.Quantity, c.Price,
		c.HarvestDate, c.DonationFlag, c.Status, c.Version, c.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert crop: %w", err)
	}
	return c, nil
}

// GetCrop returns a crop by ID.
func (db *SQLite) GetCrop(ctx context.Context, id string) (*models.Crop, error) {
	q := `SELECT ` + cropColumns + ` FROM crops WHERE id = ?`
	return scanCrop(db.conn.QueryRowContext(ctx, q, id))
}

// ListCrops returns all crops.
func (db *SQLite) ListCrops(ctx context.Context) ([]models.Crop, error) {
	return db.queryCrops(ctx, "")
}

// ListCropsByFarmer returns the crops owned by farmerID.
func (db *SQLite) ListCropsByFarmer(ctx context.Context, farmerID string) ([]models.Crop, error) {
	return db.queryCrops(ctx, `WHERE farmer_id = ?`, farmerID)
}

// ListMarketplaceCrops returns available, non-donation crops.
func (db *SQLite) ListMarketplaceCrops(ctx context.Context) ([]models.Crop, error) {
	return db.queryCrops(ctx, `WHERE donation_flag = 0 AND status = ?`, string(models.CropAvailable))
}

// UpdateCrop merges p into the stored crop. The write is guarded by the
// version read in the same transaction.
func (db *SQLite) UpdateCrop(ctx context.Context, id string, p models.CropPatch) (*models.Crop, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	c, err := scanCrop(tx.QueryRowContext(ctx, `SELECT `+cropColumns+` FROM crops WHERE id = ?`, id))
	if err != nil || c == nil {
		return nil, err
	}
	if err := store.CheckVersion(p.ExpectedVersion, c.Version); err != nil {
		return nil, err
	}
	prev := c.Version
	p.Apply(c)

	const q = `UPDATE crops SET quantity = ?, price = ?, donation_flag = ?, status = ?, version = ?
	           WHERE id = ? AND version = ?`
	res, err := tx.ExecContext(ctx, q, c.Quantity, c.Price, c.DonationFlag, c.Status, c.Version, id, prev)
	if err != nil {
		return nil, fmt.Errorf("update crop: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, store.ErrVersionConflict
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return c, nil
}

// --- Donation operations ---

const donationColumns = `id, crop_id, community_name, status, version, requested_at, updated_at`

func scanDonation(row scanner) (*models.Donation, error) {
	d := &models.Donation{}
	err := row.Scan(&d.ID, &d.CropID, &d.CommunityName, &d.Status, &d.Version, &d.RequestedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

func (db *SQLite) queryDonations(ctx context.Context, where string, args ...interface{}) ([]models.Donation, error) {
	q := `SELECT ` + donationColumns + ` FROM donations ` + where + ` ORDER BY requested_at DESC`
	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	donations := make([]models.Donation, 0)
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, *d)
	}
	return donations, rows.Err()
}

// CreateDonation inserts a new pending donation request.
func (db *SQLite) CreateDonation(ctx context.Context, in *models.Donation) (*models.Donation, error) {
	d := store.NewDonation(in, db.now())
	const q = `INSERT INTO donations (` + donationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := db.conn.ExecContext(ctx, q,
		d.ID, d.CropID, d.CommunityName, d.Status, d.Version, d.RequestedAt, d.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert donation: %w", err)
	}
	return d, nil
}

// GetDonation returns a donation by ID.
func (db *SQLite) GetDonation(ctx context.Context, id string) (*models.Donation, error) {
	q := `SELECT ` + donationColumns + ` FROM donations WHERE id = ?`
	return scanDonation(db.conn.QueryRowContext(ctx, q, id))
}

// ListDonations returns every donation.
func (db *SQLite) ListDonations(ctx context.Context) ([]models.Donation, error) {
	return db.queryDonations(ctx, "")
}

// ListPendingDonations returns donations still awaiting a decision.
func (db *SQLite) ListPendingDonations(ctx context.Context) ([]models.Donation, error) {
	return db.queryDonations(ctx, `WHERE status = ?`, string(models.DonationPending))
}

// UpdateDonation merges p into the stored donation and refreshes updated_at.
func (db *SQLite) UpdateDonation(ctx context.Context, id string, p models.DonationPatch) (*models.Donation, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	d, err := scanDonation(tx.QueryRowContext(ctx, `SELECT `+donationColumns+` FROM donations WHERE id = ?`, id))
	if err != nil || d == nil {
		return nil, err
	}
	if err := store.CheckVersion(p.ExpectedVersion, d.Version); err != nil {
		return nil, err
	}
	prev := d.Version
	p.Apply(d, db.now())

	const q = `UPDATE donations SET status = ?, version = ?, updated_at = ? WHERE id = ? AND version = ?`
	res, err := tx.ExecContext(ctx, q, d.Status, d.Version, d.UpdatedAt, id, prev)
	if err != nil {
		return nil, fmt.Errorf("update donation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, store.ErrVersionConflict
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return d, nil
}
