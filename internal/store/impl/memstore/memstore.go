package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/store"
)

// Store keeps the whole data set in memory behind a single mutex. It backs
// the test suite and the store_driver=memory configuration; the contract is
// identical to pgstore.
type Store struct {
	mu        sync.RWMutex
	riders    []store.Rider
	locations []store.LocationSample
	nextLoc   int64
}

func NewStore() *Store {
	s := &Store{nextLoc: 1}
	now := time.Now().UTC()
	for i, r := range store.DefaultSeed() {
		s.riders = append(s.riders, store.Rider{
			ID:        int64(i + 1),
			Name:      r.Name,
			Phone:     r.Phone,
			Email:     r.Email,
			Status:    store.StatusInactive,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return s
}

func (s *Store) ListRiders(ctx context.Context) ([]store.Rider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Rider, len(s.riders))
	copy(out, s.riders)
	return out, nil
}

func (s *Store) GetRider(ctx context.Context, id int64) (store.Rider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.riders {
		if r.ID == id {
			return r, nil
		}
	}
	return store.Rider{}, store.ErrNotFound
}

func (s *Store) GetRiderByPhone(ctx context.Context, phone string) (store.Rider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.riders {
		if r.Phone == phone {
			return r, nil
		}
	}
	return store.Rider{}, store.ErrNotFound
}

func (s *Store) SetRiderStatus(ctx context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.riders {
		if s.riders[i].ID == id {
			s.riders[i].Status = status
			s.riders[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return nil
}

func (s *Store) InsertLocation(ctx context.Context, smp store.LocationSample) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	smp.ID = s.nextLoc
	s.nextLoc++
	s.locations = append(s.locations, smp)
	return smp.ID, nil
}

func (s *Store) LocationHistory(ctx context.Context, riderID int64, from, to time.Time) ([]store.LocationSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.LocationSample, 0)
	for _, l := range s.locations {
		if l.RiderID == riderID && !l.Timestamp.Before(from) && !l.Timestamp.After(to) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *Store) LatestActiveLocations(ctx context.Context) ([]store.LatestLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.LatestLocation, 0)
	for _, r := range s.riders {
		if r.Status != store.StatusActive {
			continue
		}
		var newest *store.LocationSample
		for i := range s.locations {
			l := &s.locations[i]
			if l.RiderID != r.ID {
				continue
			}
			if newest == nil || l.Timestamp.After(newest.Timestamp) {
				newest = l
			}
		}
		if newest == nil {
			continue
		}
		out = append(out, store.LatestLocation{
			LocationSample: *newest,
			RiderName:      r.Name,
			RiderPhone:     r.Phone,
			RiderStatus:    r.Status,
		})
	}
	return out, nil
}

func (s *Store) PruneOlderThan(ctx context.Context, horizon time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-horizon)
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.locations[:0]
	var removed int64
	for _, l := range s.locations {
		if l.Timestamp.Before(cutoff) {
			removed++
		} else {
			kept = append(kept, l)
		}
	}
	s.locations = kept
	return removed, nil
}
