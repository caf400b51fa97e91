package services

import (
	"context"
	"testing"
	"time"

	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepReleasesExpiredHolds(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	store := newMemReservationStore()
	audit := &memAuditStore{}
	trip := testTrip(8, now.Add(24*time.Hour))
	ledger := newTestLedger(store, newMemTripStore(trip))

	expired, err := ledger.Claim(ctx, trip.ID, []string{"A1W"}, 500, models.ChannelApp, 0)
	require.NoError(t, err)
	live, err := ledger.Claim(ctx, trip.ID, []string{"A2"}, 500, models.ChannelApp, 0)
	require.NoError(t, err)
	confirmed, err := ledger.Claim(ctx, trip.ID, []string{"A3"}, 500, models.ChannelApp, 0)
	require.NoError(t, err)
	require.NoError(t, ledger.Confirm(ctx, confirmed.ID, nil))

	sweeper := NewHoldExpiryService(ledger, store, audit, time.Minute, testLogger())
	// Sweep from one hour past the first hold's expiry; the second hold is
	// pushed out so it survives
	futureLive := now.Add(5 * time.Hour)
	store.mu.Lock()
	store.reservations[live.ID].HoldExpiresAt = &futureLive
	store.mu.Unlock()
	sweeper.now = func() time.Time { return now.Add(3 * time.Hour) }

	sweeper.RunOnce()

	swept, _ := store.GetByID(ctx, expired.ID)
	assert.Equal(t, models.ReservationStateReleased, swept.State)
	require.NotNil(t, swept.ReleaseReason)
	assert.Equal(t, models.ReleaseReasonExpired, *swept.ReleaseReason)

	surviving, _ := store.GetByID(ctx, live.ID)
	assert.Equal(t, models.ReservationStateHeld, surviving.State)

	untouched, _ := store.GetByID(ctx, confirmed.ID)
	assert.Equal(t, models.ReservationStateConfirmed, untouched.State)

	released := audit.byType(models.PaymentEventReleased)
	require.Len(t, released, 1)
	assert.Equal(t, models.PaymentSourceSweeper, released[0].EventSource)
	require.NotNil(t, released[0].ReservationID)
	assert.Equal(t, expired.ID, *released[0].ReservationID)
	assert.Equal(t, string(models.ReleaseReasonExpired), released[0].Payload["reason"])
}

func TestSweepIsIdempotent(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	store := newMemReservationStore()
	audit := &memAuditStore{}
	trip := testTrip(8, now.Add(24*time.Hour))
	ledger := newTestLedger(store, newMemTripStore(trip))

	res, err := ledger.Claim(ctx, trip.ID, []string{"A1W"}, 500, models.ChannelApp, 0)
	require.NoError(t, err)

	sweeper := NewHoldExpiryService(ledger, store, audit, time.Minute, testLogger())
	sweeper.now = func() time.Time { return now.Add(3 * time.Hour) }

	sweeper.RunOnce()
	sweeper.RunOnce()

	released, _ := store.GetByID(ctx, res.ID)
	assert.Equal(t, models.ReservationStateReleased, released.State)
	// The second sweep no longer sees the hold, so only one audit entry
	assert.Len(t, audit.byType(models.PaymentEventReleased), 1)
}

func TestSweepWithNothingExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	store := newMemReservationStore()
	audit := &memAuditStore{}
	trip := testTrip(8, now.Add(24*time.Hour))
	ledger := newTestLedger(store, newMemTripStore(trip))

	res, err := ledger.Claim(ctx, trip.ID, []string{"A1W"}, 500, models.ChannelApp, 0)
	require.NoError(t, err)

	sweeper := NewHoldExpiryService(ledger, store, audit, time.Minute, testLogger())
	sweeper.RunOnce()

	held, _ := store.GetByID(ctx, res.ID)
	assert.Equal(t, models.ReservationStateHeld, held.State)
	assert.Empty(t, audit.byType(models.PaymentEventReleased))
}

func TestSweeperStartStop(t *testing.T) {
	store := newMemReservationStore()
	trip := testTrip(8, time.Now().Add(24*time.Hour))
	ledger := newTestLedger(store, newMemTripStore(trip))

	sweeper := NewHoldExpiryService(ledger, store, &memAuditStore{}, 10*time.Millisecond, testLogger())
	sweeper.Start()
	time.Sleep(50 * time.Millisecond)
	sweeper.Stop()
}
