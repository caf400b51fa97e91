package services

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/config"
	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/models"
	"github.com/Voyagetechsolutions/kjkhandala-sub002/pkg/notify"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// memReservationStore is an in-memory ReservationStore for service tests.
// It mirrors the repository's semantics, including the guarded Confirm and
// Release transitions.
type memReservationStore struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]*models.Reservation

	createErr   error
	conflictErr error
}

func newMemReservationStore() *memReservationStore {
	return &memReservationStore{reservations: make(map[uuid.UUID]*models.Reservation)}
}

func (m *memReservationStore) Create(ctx context.Context, res *models.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}

	res.ID = uuid.New()
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now()
		res.UpdatedAt = res.CreatedAt
	}

	stored := *res
	stored.SeatLabels = append([]string(nil), res.SeatLabels...)
	m.reservations[res.ID] = &stored
	return nil
}

func (m *memReservationStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok {
		return nil, nil
	}
	copied := *res
	copied.SeatLabels = append([]string(nil), res.SeatLabels...)
	return &copied, nil
}

func (m *memReservationStore) FindConflictingSeats(
	ctx context.Context,
	tripID uuid.UUID,
	seatLabels []string,
	now time.Time,
) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflictErr != nil {
		return nil, m.conflictErr
	}

	requested := make(map[string]struct{}, len(seatLabels))
	for _, l := range seatLabels {
		requested[l] = struct{}{}
	}

	taken := make(map[string]struct{})
	for _, res := range m.reservations {
		if res.TripID != tripID || !res.Blocking(now) {
			continue
		}
		for _, l := range res.SeatLabels {
			if _, ok := requested[l]; ok {
				taken[l] = struct{}{}
			}
		}
	}

	conflicting := make([]string, 0, len(taken))
	for l := range taken {
		conflicting = append(conflicting, l)
	}
	sort.Strings(conflicting)
	return conflicting, nil
}

func (m *memReservationStore) ListActiveByTrip(ctx context.Context, tripID uuid.UUID) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reservation
	for _, res := range m.reservations {
		if res.TripID == tripID && (res.State == models.ReservationStateHeld || res.State == models.ReservationStateConfirmed) {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (m *memReservationStore) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reservation
	for _, res := range m.reservations {
		if res.TripID == tripID {
			out = append(out, *res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memReservationStore) Confirm(ctx context.Context, id uuid.UUID, paymentRef *string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok || res.State != models.ReservationStateHeld || res.HoldExpired(now) {
		return false, nil
	}
	res.State = models.ReservationStateConfirmed
	res.ConfirmedAt = &now
	res.UpdatedAt = now
	if paymentRef != nil {
		res.PaymentRef = paymentRef
	}
	return true, nil
}

func (m *memReservationStore) Release(ctx context.Context, id uuid.UUID, reason models.ReleaseReason, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok || res.State != models.ReservationStateHeld {
		return false, nil
	}
	res.State = models.ReservationStateReleased
	res.ReleaseReason = &reason
	res.ReleasedAt = &now
	res.UpdatedAt = now
	return true, nil
}

func (m *memReservationStore) SetPaymentRef(ctx context.Context, id uuid.UUID, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if res, ok := m.reservations[id]; ok {
		res.PaymentRef = &ref
	}
	return nil
}

func (m *memReservationStore) ListExpiredHeld(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reservation
	for _, res := range m.reservations {
		if res.State == models.ReservationStateHeld && res.HoldExpired(now) {
			out = append(out, *res)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].HoldExpiresAt.Before(*out[j].HoldExpiresAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memTripStore is an in-memory TripStore for service tests.
type memTripStore struct {
	mu    sync.Mutex
	trips map[uuid.UUID]*models.Trip
}

func newMemTripStore(trips ...*models.Trip) *memTripStore {
	store := &memTripStore{trips: make(map[uuid.UUID]*models.Trip)}
	for _, t := range trips {
		store.trips[t.ID] = t
	}
	return store
}

func (m *memTripStore) GetByID(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok {
		return nil, nil
	}
	copied := *trip
	return &copied, nil
}

// fakeGateway is a scriptable PaymentGateway. onCharge, when set, runs
// while the charge is in flight, before the outcome is returned.
type fakeGateway struct {
	mu       sync.Mutex
	outcome  *ChargeOutcome
	err      error
	delay    time.Duration
	onCharge func()
	requests []*ChargeRequest
}

func (g *fakeGateway) Charge(ctx context.Context, req *ChargeRequest) (*ChargeOutcome, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if g.onCharge != nil {
		g.onCharge()
	}
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.outcome, nil
}

func (g *fakeGateway) chargeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// fakeNotifier records dispatched events.
type fakeNotifier struct {
	mu     sync.Mutex
	events []*notify.Event
}

func (n *fakeNotifier) Notify(ctx context.Context, event *notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *fakeNotifier) GetName() string { return "fake" }

func (n *fakeNotifier) eventTypes() []notify.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]notify.EventType, len(n.events))
	for i, e := range n.events {
		types[i] = e.Type
	}
	return types
}

// memAuditStore records payment audit entries in memory.
type memAuditStore struct {
	mu      sync.Mutex
	entries []*models.PaymentAudit
}

func (a *memAuditStore) Log(ctx context.Context, audit *models.PaymentAudit) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	copied := *audit
	a.entries = append(a.entries, &copied)
	return nil
}

func (a *memAuditStore) CheckDuplicate(ctx context.Context, gatewayRef string, eventType models.PaymentEventType) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entries {
		if e.GatewayRef != nil && *e.GatewayRef == gatewayRef && e.EventType == eventType {
			return true, nil
		}
	}
	return false, nil
}

func (a *memAuditStore) byType(eventType models.PaymentEventType) []*models.PaymentAudit {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*models.PaymentAudit
	for _, e := range a.entries {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testBookingConfig() config.BookingConfig {
	return config.BookingConfig{
		HoldDuration:    2 * time.Hour,
		DepartureCutoff: 2 * time.Hour,
		SweepInterval:   time.Minute,
		PaymentTimeout:  200 * time.Millisecond,
	}
}

func testTrip(capacity int, departure time.Time) *models.Trip {
	return &models.Trip{
		ID:            uuid.New(),
		RouteName:     "Gaborone - Francistown",
		BusNumber:     "B 123 ABC",
		Capacity:      capacity,
		DepartureTime: departure,
		Status:        models.TripStatusScheduled,
	}
}
