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

type settlementFixture struct {
	store      *memReservationStore
	trip       *models.Trip
	ledger     *LedgerService
	notifier   *fakeNotifier
	audit      *memAuditStore
	settlement *SettlementService
}

func newSettlementFixture() *settlementFixture {
	store := newMemReservationStore()
	trip := testTrip(8, time.Now().Add(24*time.Hour))
	logger := testLogger()
	ledger := NewLedgerService(store, newMemTripStore(trip), NewSeatCatalog(), testBookingConfig(), logger)
	notifier := &fakeNotifier{}
	audit := &memAuditStore{}

	return &settlementFixture{
		store:      store,
		trip:       trip,
		ledger:     ledger,
		notifier:   notifier,
		audit:      audit,
		settlement: NewSettlementService(ledger, audit, notifier, logger),
	}
}

func (f *settlementFixture) hold(t *testing.T) *models.Reservation {
	res, err := f.ledger.Claim(context.Background(), f.trip.ID, []string{"A1W"}, 1500, models.ChannelApp, 0)
	require.NoError(t, err)
	return res
}

func TestSettleSuccess(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture()
	res := f.hold(t)

	err := f.settlement.Settle(ctx, models.PaymentSourceWebhook, &models.PaymentCallback{
		ReservationID: res.ID,
		Outcome:       models.PaymentOutcomeSuccess,
		GatewayRef:    "GW-1",
		Amount:        1500,
	})
	require.NoError(t, err)

	confirmed, _ := f.store.GetByID(ctx, res.ID)
	assert.Equal(t, models.ReservationStateConfirmed, confirmed.State)
	require.NotNil(t, confirmed.PaymentRef)
	assert.Equal(t, "GW-1", *confirmed.PaymentRef)

	received := f.audit.byType(models.PaymentEventWebhookReceived)
	require.Len(t, received, 1)
	assert.False(t, received[0].IsDuplicate)
	assert.Len(t, f.audit.byType(models.PaymentEventConfirmed), 1)
}

func TestSettleFailureReleasesHold(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture()
	res := f.hold(t)

	err := f.settlement.Settle(ctx, models.PaymentSourceWebhook, &models.PaymentCallback{
		ReservationID: res.ID,
		Outcome:       models.PaymentOutcomeFailed,
		GatewayRef:    "GW-2",
		Amount:        1500,
		Message:       "card declined",
	})
	require.NoError(t, err)

	released, _ := f.store.GetByID(ctx, res.ID)
	assert.Equal(t, models.ReservationStateReleased, released.State)
	require.NotNil(t, released.ReleaseReason)
	assert.Equal(t, models.ReleaseReasonPaymentFailed, *released.ReleaseReason)
	assert.Len(t, f.audit.byType(models.PaymentEventReleased), 1)
}

func TestSettleReplayIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture()
	res := f.hold(t)

	cb := &models.PaymentCallback{
		ReservationID: res.ID,
		Outcome:       models.PaymentOutcomeSuccess,
		GatewayRef:    "GW-3",
		Amount:        1500,
	}

	require.NoError(t, f.settlement.Settle(ctx, models.PaymentSourceWebhook, cb))
	require.NoError(t, f.settlement.Settle(ctx, models.PaymentSourceWebhook, cb))

	confirmed, _ := f.store.GetByID(ctx, res.ID)
	assert.Equal(t, models.ReservationStateConfirmed, confirmed.State)

	// The replay is flagged in the audit trail and confirms nothing new
	received := f.audit.byType(models.PaymentEventWebhookReceived)
	require.Len(t, received, 2)
	assert.False(t, received[0].IsDuplicate)
	assert.True(t, received[1].IsDuplicate)

	// Only the first settlement dispatched a notification
	assert.Eventually(t, func() bool {
		return len(f.notifier.eventTypes()) == 1
	}, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, f.notifier.eventTypes(), 1)
}

func TestSettleFailureAfterConfirmIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture()
	res := f.hold(t)

	require.NoError(t, f.settlement.Settle(ctx, models.PaymentSourceCoordinator, &models.PaymentCallback{
		ReservationID: res.ID,
		Outcome:       models.PaymentOutcomeSuccess,
		GatewayRef:    "GW-4",
		Amount:        1500,
	}))

	// A late failure event for a confirmed reservation must not undo it
	require.NoError(t, f.settlement.Settle(ctx, models.PaymentSourceWebhook, &models.PaymentCallback{
		ReservationID: res.ID,
		Outcome:       models.PaymentOutcomeFailed,
		Amount:        1500,
	}))

	confirmed, _ := f.store.GetByID(ctx, res.ID)
	assert.Equal(t, models.ReservationStateConfirmed, confirmed.State)
}

func TestSettleAmountMismatchIsAudited(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture()
	res := f.hold(t)

	require.NoError(t, f.settlement.Settle(ctx, models.PaymentSourceWebhook, &models.PaymentCallback{
		ReservationID: res.ID,
		Outcome:       models.PaymentOutcomeSuccess,
		GatewayRef:    "GW-5",
		Amount:        900,
	}))

	// Settlement proceeds; reconciliation reads the mismatch from the trail
	received := f.audit.byType(models.PaymentEventWebhookReceived)
	require.Len(t, received, 1)
	require.NotNil(t, received[0].ExpectedAmount)
	require.NotNil(t, received[0].ReceivedAmount)
	assert.Equal(t, 1500.0, *received[0].ExpectedAmount)
	assert.Equal(t, 900.0, *received[0].ReceivedAmount)
}

func TestSettleSuccessAfterExpiry(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture()
	res := f.hold(t)

	f.ledger.now = func() time.Time { return time.Now().Add(3 * time.Hour) }

	err := f.settlement.Settle(ctx, models.PaymentSourceWebhook, &models.PaymentCallback{
		ReservationID: res.ID,
		Outcome:       models.PaymentOutcomeSuccess,
		GatewayRef:    "GW-6",
		Amount:        1500,
	})

	var transition *models.TransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, "confirm", transition.Op)
	assert.Len(t, f.audit.byType(models.PaymentEventError), 1)
}

func TestSettleUnknownReservation(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture()

	err := f.settlement.Settle(ctx, models.PaymentSourceWebhook, &models.PaymentCallback{
		ReservationID: uuid.New(),
		Outcome:       models.PaymentOutcomeSuccess,
		GatewayRef:    "GW-7",
	})
	assert.ErrorIs(t, err, models.ErrReservationNotFound)
}
