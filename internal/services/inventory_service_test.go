package services

import (
	"context"
	"testing"
	"time"

	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	setup := func() (*LedgerService, *InventoryService, *models.Trip) {
		store := newMemReservationStore()
		trip := testTrip(8, now.Add(24*time.Hour))
		trips := newMemTripStore(trip)
		return newTestLedger(store, trips), NewInventoryService(store, trips, NewSeatCatalog()), trip
	}

	t.Run("Partitions Every Seat Exactly Once", func(t *testing.T) {
		ledger, inventory, trip := setup()

		_, err := ledger.Claim(ctx, trip.ID, []string{"A1W", "A2"}, 1000, models.ChannelApp, 0)
		require.NoError(t, err)

		confirmed, err := ledger.Claim(ctx, trip.ID, []string{"B1W"}, 500, models.ChannelWeb, 0)
		require.NoError(t, err)
		require.NoError(t, ledger.Confirm(ctx, confirmed.ID, nil))

		snap, err := inventory.Snapshot(ctx, trip.ID)
		require.NoError(t, err)

		assert.Equal(t, []string{"A3", "A4W", "B2", "B3", "B4W"}, snap.Available)
		assert.Equal(t, []string{"A1W", "A2"}, snap.Held)
		assert.Equal(t, []string{"B1W"}, snap.Confirmed)
	})

	t.Run("Expired Hold Counts As Available", func(t *testing.T) {
		ledger, inventory, trip := setup()

		_, err := ledger.Claim(ctx, trip.ID, []string{"A1W"}, 500, models.ChannelApp, 0)
		require.NoError(t, err)

		// Read after the hold lapses, before any sweep has run
		inventory.now = func() time.Time { return now.Add(3 * time.Hour) }

		snap, err := inventory.Snapshot(ctx, trip.ID)
		require.NoError(t, err)
		assert.Contains(t, snap.Available, "A1W")
		assert.Empty(t, snap.Held)
	})

	t.Run("Released Seats Are Available", func(t *testing.T) {
		ledger, inventory, trip := setup()

		res, err := ledger.Claim(ctx, trip.ID, []string{"A1W"}, 500, models.ChannelApp, 0)
		require.NoError(t, err)
		require.NoError(t, ledger.Release(ctx, res.ID, models.ReleaseReasonCancelled))

		snap, err := inventory.Snapshot(ctx, trip.ID)
		require.NoError(t, err)
		assert.Contains(t, snap.Available, "A1W")
		assert.Empty(t, snap.Held)
	})

	t.Run("Confirmed Reservation Never Expires", func(t *testing.T) {
		ledger, inventory, trip := setup()

		res, err := ledger.Claim(ctx, trip.ID, []string{"A1W"}, 500, models.ChannelApp, 0)
		require.NoError(t, err)
		require.NoError(t, ledger.Confirm(ctx, res.ID, nil))

		inventory.now = func() time.Time { return now.Add(3 * time.Hour) }

		snap, err := inventory.Snapshot(ctx, trip.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"A1W"}, snap.Confirmed)
		assert.NotContains(t, snap.Available, "A1W")
	})

	t.Run("Trip Not Found", func(t *testing.T) {
		store := newMemReservationStore()
		inventory := NewInventoryService(store, newMemTripStore(), NewSeatCatalog())

		_, err := inventory.Snapshot(ctx, uuid.New())
		assert.ErrorIs(t, err, models.ErrTripNotFound)
	})
}
