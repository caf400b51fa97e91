package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/config"
	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReservationStore is the persistence contract the ledger drives. Implemented
// by database.ReservationRepository; tests substitute an in-memory store.
type ReservationStore interface {
	Create(ctx context.Context, res *models.Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	FindConflictingSeats(ctx context.Context, tripID uuid.UUID, seatLabels []string, now time.Time) ([]string, error)
	ListActiveByTrip(ctx context.Context, tripID uuid.UUID) ([]models.Reservation, error)
	ListByTrip(ctx context.Context, tripID uuid.UUID) ([]models.Reservation, error)
	Confirm(ctx context.Context, id uuid.UUID, paymentRef *string, now time.Time) (bool, error)
	Release(ctx context.Context, id uuid.UUID, reason models.ReleaseReason, now time.Time) (bool, error)
	SetPaymentRef(ctx context.Context, id uuid.UUID, ref string) error
	ListExpiredHeld(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error)
}

// TripStore is the read-only trip lookup the ledger needs.
type TripStore interface {
	GetByID(ctx context.Context, tripID uuid.UUID) (*models.Trip, error)
}

// LedgerService owns every reservation state transition. Claim, Confirm and
// Release for the same trip are serialized through a per-trip mutex; calls
// against different trips never contend. Reads (snapshot, history) bypass the
// lock entirely.
type LedgerService struct {
	store   ReservationStore
	trips   TripStore
	catalog *SeatCatalog
	cfg     config.BookingConfig
	logger  *logrus.Logger
	now     func() time.Time

	mu        sync.Mutex
	tripLocks map[uuid.UUID]*sync.Mutex
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	store ReservationStore,
	trips TripStore,
	catalog *SeatCatalog,
	cfg config.BookingConfig,
	logger *logrus.Logger,
) *LedgerService {
	return &LedgerService{
		store:     store,
		trips:     trips,
		catalog:   catalog,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		tripLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// lockTrip returns the mutex serializing mutations for one trip, creating it
// on first use. Trips are finite and short-lived relative to the process, so
// the map is never pruned.
func (s *LedgerService) lockTrip(tripID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.tripLocks[tripID]
	if !ok {
		lock = &sync.Mutex{}
		s.tripLocks[tripID] = lock
	}
	return lock
}

// holdExpiry computes when a new hold lapses: the configured hold duration,
// shortened so the hold always dies at least DepartureCutoff before the trip
// leaves. Returns ErrTooLateToHold when the remaining window is not longer
// than minWindow, so callers that need the hold to outlive some operation
// (a synchronous charge) are rejected before anything is persisted.
func (s *LedgerService) holdExpiry(trip *models.Trip, now time.Time, minWindow time.Duration) (time.Time, error) {
	expiresAt := now.Add(s.cfg.HoldDuration)
	latest := trip.DepartureTime.Add(-s.cfg.DepartureCutoff)
	if latest.Before(expiresAt) {
		expiresAt = latest
	}
	if !expiresAt.After(now.Add(minWindow)) {
		return time.Time{}, models.ErrTooLateToHold
	}
	return expiresAt, nil
}

// Claim atomically claims the requested seats for a trip. On success the
// returned reservation is durably persisted in state held with its expiry
// already set. All-or-nothing: a single conflicting seat fails the whole
// claim, and nothing is persisted for a rejected attempt. minWindow is the
// minimum time the hold must remain live; pass zero when any positive
// window will do.
func (s *LedgerService) Claim(
	ctx context.Context,
	tripID uuid.UUID,
	seatLabels []string,
	amount float64,
	channel models.BookingChannel,
	minWindow time.Duration,
) (*models.Reservation, error) {
	if len(seatLabels) == 0 {
		return nil, models.ErrNoSeatsRequested
	}
	if dup := firstDuplicate(seatLabels); dup != "" {
		return nil, fmt.Errorf("duplicate seat %s in request", dup)
	}

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trip: %w", err)
	}
	if trip == nil {
		return nil, models.ErrTripNotFound
	}

	now := s.now()
	if !trip.Bookable(now) {
		return nil, models.ErrTripNotBookable
	}
	if unknown := s.catalog.Unknown(trip.Capacity, seatLabels); len(unknown) > 0 {
		return nil, &models.UnknownSeatsError{TripID: tripID, Unknown: unknown}
	}

	expiresAt, err := s.holdExpiry(trip, now, minWindow)
	if err != nil {
		return nil, err
	}

	lock := s.lockTrip(tripID)
	lock.Lock()
	defer lock.Unlock()

	conflicting, err := s.store.FindConflictingSeats(ctx, tripID, seatLabels, now)
	if err != nil {
		return nil, fmt.Errorf("failed to check seat availability: %w", err)
	}
	if len(conflicting) > 0 {
		return nil, &models.SeatsUnavailableError{TripID: tripID, Conflicting: conflicting}
	}

	res := &models.Reservation{
		TripID:        tripID,
		SeatLabels:    append([]string(nil), seatLabels...),
		State:         models.ReservationStateHeld,
		HoldExpiresAt: &expiresAt,
		Amount:        amount,
		Channel:       channel,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, res); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"reservation_id":  res.ID,
		"trip_id":         tripID,
		"seats":           seatLabels,
		"hold_expires_at": expiresAt,
		"channel":         channel,
	}).Info("Seats claimed and held")

	return res, nil
}

// Confirm transitions a held reservation to confirmed. Only the settlement
// path calls this. Confirming an already-confirmed reservation is a no-op
// success so replayed gateway callbacks are harmless; confirming a released
// or expired reservation is a TransitionError.
func (s *LedgerService) Confirm(ctx context.Context, id uuid.UUID, paymentRef *string) error {
	res, err := s.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load reservation: %w", err)
	}
	if res == nil {
		return models.ErrReservationNotFound
	}

	lock := s.lockTrip(res.TripID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: the sweeper or a racing caller may have moved
	// the reservation since the unlocked read.
	res, err = s.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load reservation: %w", err)
	}
	if res == nil {
		return models.ErrReservationNotFound
	}

	now := s.now()
	switch {
	case res.State == models.ReservationStateConfirmed:
		return nil
	case res.State == models.ReservationStateReleased:
		return &models.TransitionError{ReservationID: id, State: res.State, Op: "confirm", Reason: "reservation already released"}
	case res.HoldExpired(now):
		return &models.TransitionError{ReservationID: id, State: res.State, Op: "confirm", Reason: "hold has expired"}
	}

	applied, err := s.store.Confirm(ctx, id, paymentRef, now)
	if err != nil {
		return err
	}
	if !applied {
		return &models.TransitionError{ReservationID: id, State: res.State, Op: "confirm", Reason: "state changed concurrently"}
	}

	s.logger.WithFields(logrus.Fields{
		"reservation_id": id,
		"trip_id":        res.TripID,
		"seats":          res.SeatLabels,
	}).Info("Reservation confirmed")
	return nil
}

// Release transitions a held reservation to released. Idempotent: releasing a
// reservation that is already released or confirmed returns success without
// side effects, since callers race with the sweeper by design.
func (s *LedgerService) Release(ctx context.Context, id uuid.UUID, reason models.ReleaseReason) error {
	res, err := s.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load reservation: %w", err)
	}
	if res == nil {
		return models.ErrReservationNotFound
	}

	lock := s.lockTrip(res.TripID)
	lock.Lock()
	defer lock.Unlock()

	res, err = s.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load reservation: %w", err)
	}
	if res == nil {
		return models.ErrReservationNotFound
	}
	if res.State.Terminal() {
		return nil
	}

	applied, err := s.store.Release(ctx, id, reason, s.now())
	if err != nil {
		return err
	}
	if applied {
		s.logger.WithFields(logrus.Fields{
			"reservation_id": id,
			"trip_id":        res.TripID,
			"seats":          res.SeatLabels,
			"reason":         reason,
		}).Info("Reservation released")
	}
	return nil
}

// Get returns a reservation by ID.
func (s *LedgerService) Get(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	res, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if res == nil {
		return nil, models.ErrReservationNotFound
	}
	return res, nil
}

// History returns every reservation ever made against a trip, for manifest
// generation. Read-only; reporting reads but never writes this data.
func (s *LedgerService) History(ctx context.Context, tripID uuid.UUID) ([]models.Reservation, error) {
	return s.store.ListByTrip(ctx, tripID)
}

// RecordPaymentRef stores the gateway reference on the reservation once
// settlement starts.
func (s *LedgerService) RecordPaymentRef(ctx context.Context, id uuid.UUID, ref string) error {
	return s.store.SetPaymentRef(ctx, id, ref)
}

func firstDuplicate(labels []string) string {
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			return l
		}
		seen[l] = struct{}{}
	}
	return ""
}
