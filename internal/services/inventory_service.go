package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/models"
	"github.com/google/uuid"
)

// InventoryService computes point-in-time seat availability for a trip.
// Read-only: it never mutates the ledger and takes no locks, so snapshots run
// concurrently with claims and the sweeper.
type InventoryService struct {
	store   ReservationStore
	trips   TripStore
	catalog *SeatCatalog
	now     func() time.Time
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(store ReservationStore, trips TripStore, catalog *SeatCatalog) *InventoryService {
	return &InventoryService{
		store:   store,
		trips:   trips,
		catalog: catalog,
		now:     time.Now,
	}
}

// Snapshot partitions the trip's seats into available, held and confirmed at
// read time. A hold that has logically expired but not yet been swept counts
// as available (lazy expiry), so readers never see stale unavailability.
func (s *InventoryService) Snapshot(ctx context.Context, tripID uuid.UUID) (*models.SeatSnapshot, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trip: %w", err)
	}
	if trip == nil {
		return nil, models.ErrTripNotFound
	}

	reservations, err := s.store.ListActiveByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}

	now := s.now()
	held := make(map[string]struct{})
	confirmed := make(map[string]struct{})
	for i := range reservations {
		res := &reservations[i]
		if !res.Blocking(now) {
			continue
		}
		for _, label := range res.SeatLabels {
			if res.State == models.ReservationStateConfirmed {
				confirmed[label] = struct{}{}
			} else {
				held[label] = struct{}{}
			}
		}
	}

	snapshot := &models.SeatSnapshot{
		TripID:    tripID,
		TakenAt:   now,
		Available: make([]string, 0, trip.Capacity),
		Held:      make([]string, 0, len(held)),
		Confirmed: make([]string, 0, len(confirmed)),
	}
	for _, label := range s.catalog.SeatsFor(trip.Capacity) {
		switch {
		case contains(confirmed, label):
			snapshot.Confirmed = append(snapshot.Confirmed, label)
		case contains(held, label):
			snapshot.Held = append(snapshot.Held, label)
		default:
			snapshot.Available = append(snapshot.Available, label)
		}
	}
	return snapshot, nil
}

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}
