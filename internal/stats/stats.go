// Package stats aggregates platform-wide counters.
//
// A background worker recomputes the snapshot on a fixed interval so the
// analytics endpoint never scans the store on the request path once the
// first snapshot exists.
package stats

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/jredh-dev/rooted/internal/store"
	"github.com/jredh-dev/rooted/pkg/models"
)

// DefaultInterval is how often the snapshot is rebuilt.
const DefaultInterval = 30 * time.Second

// Snapshot is the platform-stats response body.
type Snapshot struct {
	TotalFarmers       int       `json:"totalFarmers"`
	TotalBuyers        int       `json:"totalBuyers"`
	ActiveCrops        int       `json:"activeCrops"`
	DonatedCrops       int       `json:"donatedCrops"`
	PendingDonations   int       `json:"pendingDonations"`
	CompletedDonations int       `json:"completedDonations"`
	TotalDonations     int       `json:"totalDonations"`
	ListedValue        float64   `json:"listedValue"`
	GeneratedAt        time.Time `json:"generatedAt"`
}

// Compute scans s and builds a fresh Snapshot.
func Compute(ctx context.Context, s store.Store, now time.Time) (Snapshot, error) {
	snap := Snapshot{GeneratedAt: now}

	users, err := s.ListUsers(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list users: %w", err)
	}
	for _, u := range users {
		switch u.Role {
		case models.RoleFarmer:
			snap.TotalFarmers++
		case models.RoleBuyer:
			snap.TotalBuyers++
		}
	}

	crops, err := s.ListCrops(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list crops: %w", err)
	}
	for _, c := range crops {
		if c.Listed() {
			snap.ActiveCrops++
			if v := float64(c.Quantity) * c.Price; !math.IsNaN(v) && !math.IsInf(v, 0) {
				snap.ListedValue += v
			}
		}
		if c.DonationFlag || c.Status == models.CropDonated {
			snap.DonatedCrops++
		}
	}
	// Totals must stay finite to encode as JSON.
	if math.IsInf(snap.ListedValue, 0) {
		snap.ListedValue = math.MaxFloat64
	} else {
		snap.ListedValue = math.Round(snap.ListedValue*100) / 100
	}

	donations, err := s.ListDonations(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list donations: %w", err)
	}
	snap.TotalDonations = len(donations)
	for _, d := range donations {
		switch d.Status {
		case models.DonationPending:
			snap.PendingDonations++
		case models.DonationCompleted:
			snap.CompletedDonations++
		}
	}
	return snap, nil
}

// Aggregator serves the most recent Snapshot.
type Aggregator struct {
	store    store.Store
	interval time.Duration
	now      func() time.Time

	mu   sync.RWMutex
	snap *Snapshot
	stop chan struct{}
	once sync.Once
}

// New creates an Aggregator. With a positive interval it starts a worker
// that rebuilds the snapshot on every tick; otherwise every call to
// Current recomputes.
func New(s store.Store, interval time.Duration) *Aggregator {
	a := &Aggregator{
		store:    s,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
		stop:     make(chan struct{}),
	}
	if interval > 0 {
		go a.run()
	}
	return a
}

// Current returns the cached snapshot, computing it first if none exists.
func (a *Aggregator) Current(ctx context.Context) (Snapshot, error) {
	if a.interval > 0 {
		a.mu.RLock()
		snap := a.snap
		a.mu.RUnlock()
		if snap != nil {
			return *snap, nil
		}
	}
	return a.rebuild(ctx)
}

// Stop shuts down the background worker.
func (a *Aggregator) Stop() {
	a.once.Do(func() { close(a.stop) })
}

func (a *Aggregator) run() {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), a.interval)
			if _, err := a.rebuild(ctx); err != nil {
				log.Printf("stats: rebuild failed: %v", err)
			}
			cancel()
		case <-a.stop:
			return
		}
	}
}

func (a *Aggregator) rebuild(ctx context.Context) (Snapshot, error) {
	snap, err := Compute(ctx, a.store, a.now())
	if err != nil {
		return Snapshot{}, err
	}
	a.mu.Lock()
	a.snap = &snap
	a.mu.Unlock()
	return snap, nil
}
