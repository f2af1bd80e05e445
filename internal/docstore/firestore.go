// Package docstore implements store.Store on Cloud Firestore. Each entity
// type lives in its own top-level collection keyed by record id.
package docstore

import (
	"context"
	"fmt"
	"slices"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jredh-dev/rooted/internal/store"
	"github.com/jredh-dev/rooted/pkg/models"
)

const (
	usersCollection     = "users"
	cropsCollection     = "crops"
	donationsCollection = "donations"
)

// Firestore is a store.Store backed by a Firestore database.
type Firestore struct {
	client *firestore.Client
	now    func() time.Time
}

// Open connects to the named Firestore database of projectID.
func Open(ctx context.Context, projectID, database string, opts ...option.ClientOption) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return New(client), nil
}

// New wraps an existing client.
func New(client *firestore.Client) *Firestore {
	return &Firestore{client: client, now: func() time.Time { return time.Now().UTC() }}
}

// Close closes the Firestore client.
func (f *Firestore) Close() error {
	return f.client.Close()
}

func notFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// get loads collection/id into dest. It reports false when the document
// does not exist.
func (f *Firestore) get(ctx context.Context, collection, id string, dest interface{}) (bool, error) {
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if notFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if err := snap.DataTo(dest); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return true, nil
}

func decodeAll[T any](docs []*firestore.DocumentSnapshot) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := doc.DataTo(&v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", doc.Ref.Path, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// --- Users ---

func (f *Firestore) CreateUser(ctx context.Context, in *models.User) (*models.User, error) {
	u := store.NewUser(in, f.now())
	if _, err := f.client.Collection(usersCollection).Doc(u.ID).Set(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (f *Firestore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	ok, err := f.get(ctx, usersCollection, id, &u)
	if !ok {
		return nil, err
	}
	return &u, nil
}

func (f *Firestore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	docs, err := f.client.Collection(usersCollection).Where("email", "==", email).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	users, err := decodeAll[models.User](docs)
	if err != nil || len(users) == 0 {
		return nil, err
	}
	oldest := slices.MinFunc(users, func(a, b models.User) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return &oldest, nil
}

func (f *Firestore) ListUsers(ctx context.Context) ([]models.User, error) {
	docs, err := f.client.Collection(usersCollection).OrderBy("createdAt", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return decodeAll[models.User](docs)
}

// --- Crops ---

func (f *Firestore) CreateCrop(ctx context.Context, in *models.Crop) (*models.Crop, error) {
	c := store.NewCrop(in, f.now())
	if _, err := f.client.Collection(cropsCollection).Doc(c.ID).Set(ctx, c); err != nil {
		return nil, fmt.Errorf("create crop: %w", err)
	}
	return c, nil
}

func (f *Firestore) GetCrop(ctx context.Context, id string) (*models.Crop, error) {
	var c models.Crop
	ok, err := f.get(ctx, cropsCollection, id, &c)
	if !ok {
		return nil, err
	}
	return &c, nil
}

// queryCrops runs q and sorts newest first in memory, which avoids
// requiring composite indexes for filtered queries.
func (f *Firestore) queryCrops(ctx context.Context, q firestore.Query) ([]models.Crop, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query crops: %w", err)
	}
	crops, err := decodeAll[models.Crop](docs)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(crops, func(a, b models.Crop) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return crops, nil
}

func (f *Firestore) ListCrops(ctx context.Context) ([]models.Crop, error) {
	return f.queryCrops(ctx, f.client.Collection(cropsCollection).Query)
}

func (f *Firestore) ListCropsByFarmer(ctx context.Context, farmerID string) ([]models.Crop, error) {
	return f.queryCrops(ctx, f.client.Collection(cropsCollection).Where("farmerId", "==", farmerID))
}

func (f *Firestore) ListMarketplaceCrops(ctx context.Context) ([]models.Crop, error) {
	q := f.client.Collection(cropsCollection).
		Where("donationFlag", "==", false).
		Where("status", "==", string(models.CropAvailable))
	return f.queryCrops(ctx, q)
}

func (f *Firestore) UpdateCrop(ctx context.Context, id string, p models.CropPatch) (*models.Crop, error) {
	ref := f.client.Collection(cropsCollection).Doc(id)
	var out *models.Crop
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		out = nil
		snap, err := tx.Get(ref)
		if notFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		var c models.Crop
		if err := snap.DataTo(&c); err != nil {
			return err
		}
		if err := store.CheckVersion(p.ExpectedVersion, c.Version); err != nil {
			return err
		}
		p.Apply(&c)
		out = &c
		return tx.Set(ref, &c)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// --- Donations ---

func (f *Firestore) CreateDonation(ctx context.Context, in *models.Donation) (*models.Donation, error) {
	d := store.NewDonation(in, f.now())
	if _, err := f.client.Collection(donationsCollection).Doc(d.ID).Set(ctx, d); err != nil {
		return nil, fmt.Errorf("create donation: %w", err)
	}
	return d, nil
}

func (f *Firestore) GetDonation(ctx context.Context, id string) (*models.Donation, error) {
	var d models.Donation
	ok, err := f.get(ctx, donationsCollection, id, &d)
	if !ok {
		return nil, err
	}
	return &d, nil
}

func (f *Firestore) queryDonations(ctx context.Context, q firestore.Query) ([]models.Donation, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query donations: %w", err)
	}
	donations, err := decodeAll[models.Donation](docs)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(donations, func(a, b models.Donation) int { return b.RequestedAt.Compare(a.RequestedAt) })
	return donations, nil
}

func (f *Firestore) ListDonations(ctx context.Context) ([]models.Donation, error) {
	return f.queryDonations(ctx, f.client.Collection(donationsCollection).Query)
}

func (f *Firestore) ListPendingDonations(ctx context.Context) ([]models.Donation, error) {
	q := f.client.Collection(donationsCollection).Where("status", "==", string(models.DonationPending))
	return f.queryDonations(ctx, q)
}

func (f *Firestore) UpdateDonation(ctx context.Context, id string, p models.DonationPatch) (*models.Donation, error) {
	ref := f.client.Collection(donationsCollection).Doc(id)
	var out *models.Donation
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		out = nil
		snap, err := tx.Get(ref)
		if notFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		var d models.Donation
		if err := snap.DataTo(&d); err != nil {
			return err
		}
		if err := store.CheckVersion(p.ExpectedVersion, d.Version); err != nil {
			return err
		}
		p.Apply(&d, f.now())
		out = &d
		return tx.Set(ref, &d)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
