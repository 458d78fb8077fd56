package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Rider struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type LocationSample struct {
	ID        int64     `json:"id"`
	RiderID   int64     `json:"riderId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  *float64  `json:"accuracy"`
	Speed     *float64  `json:"speed"`
	Heading   *float64  `json:"heading"`
	Timestamp time.Time `json:"timestamp"`
}

// LatestLocation joins a rider's newest sample with its profile fields.
type LatestLocation struct {
	LocationSample
	RiderName   string `json:"riderName"`
	RiderPhone  string `json:"riderPhone"`
	RiderStatus string `json:"riderStatus"`
}

// Store is the profile and history contract. Sample ids are strictly
// increasing and never reused, even after pruning. SetRiderStatus on an
// unknown id is a silent no-op. LocationHistory bounds are inclusive and
// results are sorted ascending by timestamp.
type Store interface {
	ListRiders(ctx context.Context) ([]Rider, error)
	GetRider(ctx context.Context, id int64) (Rider, error)
	GetRiderByPhone(ctx context.Context, phone string) (Rider, error)
	SetRiderStatus(ctx context.Context, id int64, status string) error
	InsertLocation(ctx context.Context, s LocationSample) (int64, error)
	LocationHistory(ctx context.Context, riderID int64, from, to time.Time) ([]LocationSample, error)
	LatestActiveLocations(ctx context.Context) ([]LatestLocation, error)
	PruneOlderThan(ctx context.Context, horizon time.Duration) (int64, error)
}

// SeedRider is a profile inserted when the store starts empty.
type SeedRider struct {
	Name  string
	Phone string
	Email string
}

// DefaultSeed is the rider roster inserted into an empty store.
func DefaultSeed() []SeedRider {
	return []SeedRider{
		{Name: "Ramesh Kumar", Phone: "9876543210", Email: "ramesh.kumar@example.com"},
		{Name: "Jagdish Suthar", Phone: "9829012345", Email: "jagdish.suthar@example.com"},
		{Name: "Suresh Meena", Phone: "9414098765", Email: "suresh.meena@example.com"},
	}
}
