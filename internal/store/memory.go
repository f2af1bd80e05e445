package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jredh-dev/rooted/pkg/models"
)

// Memory is the default in-process backend. Records live in three maps and
// vanish when the process exits. Lists are linear scans.
type Memory struct {
	mu sync.RWMutex

	users     map[string]*models.User
	crops     map[string]*models.Crop
	donations map[string]*models.Donation

	now func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:     make(map[string]*models.User),
		crops:     make(map[string]*models.Crop),
		donations: make(map[string]*models.Donation),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// --- Users ---

func (m *Memory) CreateUser(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := NewUser(u, m.now())
	m.users[rec.ID] = rec
	out := *rec
	return &out, nil
}

func (m *Memory) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

// GetUserByEmail returns the first user with an exactly matching email.
// Duplicates are possible since uniqueness is not enforced on create.
func (m *Memory) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *models.User
	for _, u := range m.users {
		if u.Email != email {
			continue
		}
		if found == nil || u.CreatedAt.Before(found.CreatedAt) {
			found = u
		}
	}
	if found == nil {
		return nil, nil
	}
	out := *found
	return &out, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	slices.SortFunc(out, func(a, b models.User) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

// --- Crops ---

func (m *Memory) CreateCrop(_ context.Context, c *models.Crop) (*models.Crop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := NewCrop(c, m.now())
	m.crops[rec.ID] = rec
	out := *rec
	return &out, nil
}

func (m *Memory) GetCrop(_ context.Context, id string) (*models.Crop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.crops[id]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (m *Memory) ListCrops(_ context.Context) ([]models.Crop, error) {
	return m.filterCrops(func(*models.Crop) bool { return true }), nil
}

func (m *Memory) ListCropsByFarmer(_ context.Context, farmerID string) ([]models.Crop, error) {
	return m.filterCrops(func(c *models.Crop) bool { return c.FarmerID == farmerID }), nil
}

func (m *Memory) ListMarketplaceCrops(_ context.Context) ([]models.Crop, error) {
	return m.filterCrops((*models.Crop).Listed), nil
}

func (m *Memory) filterCrops(keep func(*models.Crop) bool) []models.Crop {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Crop, 0)
	for _, c := range m.crops {
		if keep(c) {
			out = append(out, *c)
		}
	}
	slices.SortFunc(out, func(a, b models.Crop) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out
}

func (m *Memory) UpdateCrop(_ context.Context, id string, p models.CropPatch) (*models.Crop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.crops[id]
	if !ok {
		return nil, nil
	}
	if err := CheckVersion(p.ExpectedVersion, c.Version); err != nil {
		return nil, err
	}
	updated := *c
	p.Apply(&updated)
	m.crops[id] = &updated
	out := updated
	return &out, nil
}

// --- Donations ---

func (m *Memory) CreateDonation(_ context.Context, d *models.Donation) (*models.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := NewDonation(d, m.now())
	m.donations[rec.ID] = rec
	out := *rec
	return &out, nil
}

func (m *Memory) GetDonation(_ context.Context, id string) (*models.Donation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.donations[id]
	if !ok {
		return nil, nil
	}
	out := *d
	return &out, nil
}

func (m *Memory) ListDonations(_ context.Context) ([]models.Donation, error) {
	return m.filterDonations(func(*models.Donation) bool { return true }), nil
}

func (m *Memory) ListPendingDonations(_ context.Context) ([]models.Donation, error) {
	return m.filterDonations(func(d *models.Donation) bool {
		return d.Status == models.DonationPending
	}), nil
}

func (m *Memory) filterDonations(keep func(*models.Donation) bool) []models.Donation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Donation, 0)
	for _, d := range m.donations {
		if keep(d) {
			out = append(out, *d)
		}
	}
	slices.SortFunc(out, func(a, b models.Donation) int { return b.RequestedAt.Compare(a.RequestedAt) })
	return out
}

func (m *Memory) UpdateDonation(_ context.Context, id string, p models.DonationPatch) (*models.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donations[id]
	if !ok {
		return nil, nil
	}
	if err := CheckVersion(p.ExpectedVersion, d.Version); err != nil {
		return nil, err
	}
	updated := *d
	p.Apply(&updated, m.now())
	m.donations[id] = &updated
	out := updated
	return &out, nil
}

// Close is a no-op for the in-memory backend.
func (m *Memory) Close() error { return nil }
