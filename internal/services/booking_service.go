package services

import (
	"context"
	"errors"
	"time"

	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/config"
	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/models"
	"github.com/Voyagetechsolutions/kjkhandala-sub002/pkg/notify"
	"github.com/sirupsen/logrus"
)

// BookingService coordinates a multi-seat, multi-passenger booking as one
// atomic unit. The claim itself never waits on payment; the PayNow branch
// runs after the claim succeeds, under its own timeout, and a failed or
// timed-out charge releases the hold before the caller hears about it.
type BookingService struct {
	ledger     *LedgerService
	settlement *SettlementService
	gateway    PaymentGateway
	audit      PaymentAuditStore
	notifier   notify.Notifier
	cfg        config.BookingConfig
	logger     *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	ledger *LedgerService,
	settlement *SettlementService,
	gateway PaymentGateway,
	audit PaymentAuditStore,
	notifier notify.Notifier,
	cfg config.BookingConfig,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		ledger:     ledger,
		settlement: settlement,
		gateway:    gateway,
		audit:      audit,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// Book executes a booking end to end. All-or-nothing: if any requested seat
// is taken, no reservation is created for the rest. PayAtOffice returns with
// the reservation held and its expiry; PayNow settles synchronously.
func (s *BookingService) Book(ctx context.Context, req *models.BookingRequest) (*models.BookingOutcome, error) {
	if req.SettlementMode != models.SettlementPayNow && req.SettlementMode != models.SettlementPayAtOffice {
		return nil, errors.New("settlement_mode must be pay_now or pay_at_office")
	}

	// A PayNow hold must stay live for the whole synchronous charge, or the
	// gateway could take the money for a hold that lapses before Confirm.
	var minWindow time.Duration
	if req.SettlementMode == models.SettlementPayNow {
		minWindow = s.cfg.PaymentTimeout
	}

	res, err := s.ledger.Claim(ctx, req.TripID, req.SeatLabels(), req.Amount, req.Channel, minWindow)
	if err != nil {
		return nil, err
	}

	if req.SettlementMode == models.SettlementPayAtOffice {
		s.dispatch(notify.EventReservationHeld, res, req)
		return outcomeFrom(res), nil
	}

	return s.settleNow(ctx, res, req)
}

// settleNow charges the gateway and confirms or releases based on the result.
// A transport error or timeout counts as failure: the hold is released so no
// reservation is ever left held outside its expiry window, and the caller is
// told PaymentFailed rather than left uncertain.
func (s *BookingService) settleNow(ctx context.Context, res *models.Reservation, req *models.BookingRequest) (*models.BookingOutcome, error) {
	chargeCtx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()

	amount := req.Amount
	_ = s.audit.Log(ctx, &models.PaymentAudit{
		ReservationID:  &res.ID,
		EventType:      models.PaymentEventChargeInitiated,
		EventSource:    models.PaymentSourceCoordinator,
		ExpectedAmount: &amount,
	})

	outcome, err := s.gateway.Charge(chargeCtx, &ChargeRequest{
		ReservationID: res.ID,
		Amount:        req.Amount,
		CustomerName:  req.ContactName,
		CustomerPhone: req.ContactPhone,
	})
	s.auditChargeResponse(ctx, res, outcome, err)

	callback := &models.PaymentCallback{
		ReservationID: res.ID,
		Amount:        req.Amount,
	}
	switch {
	case err != nil:
		s.logger.WithError(err).WithField("reservation_id", res.ID).Warn("Gateway charge failed")
		callback.Outcome = models.PaymentOutcomeTimeout
		callback.Message = err.Error()
	case outcome.Succeeded:
		callback.Outcome = models.PaymentOutcomeSuccess
		callback.GatewayRef = outcome.GatewayRef
	default:
		callback.Outcome = models.PaymentOutcomeFailed
		callback.GatewayRef = outcome.GatewayRef
		callback.Message = outcome.Message
	}

	// Settlement runs on the parent context: the charge already happened (or
	// definitively failed), so the resulting transition must not be cut short
	// by the charge deadline.
	if err := s.settlement.Settle(ctx, models.PaymentSourceCoordinator, callback); err != nil {
		var transition *models.TransitionError
		if callback.Outcome == models.PaymentOutcomeSuccess && errors.As(err, &transition) {
			// The charge landed but the hold could no longer be confirmed.
			// Release the seats and report a payment failure so the caller is
			// never left with a charged-but-unconfirmed reservation; the audit
			// trail carries the gateway ref for the refund.
			s.logger.WithError(err).WithField("reservation_id", res.ID).Error("Charge succeeded but confirmation failed, releasing hold")
			if relErr := s.ledger.Release(ctx, res.ID, models.ReleaseReasonPaymentFailed); relErr != nil {
				s.logger.WithError(relErr).WithField("reservation_id", res.ID).Error("Failed to release unconfirmable hold")
			}
			return nil, &models.PaymentFailedError{ReservationID: res.ID, Reason: "charge could not be applied: " + transition.Reason}
		}
		return nil, err
	}

	if callback.Outcome != models.PaymentOutcomeSuccess {
		return nil, &models.PaymentFailedError{ReservationID: res.ID, Reason: callback.Message}
	}

	// The settlement service has already dispatched the confirmation
	// notification; re-read only to return the final state.
	confirmed, err := s.ledger.Get(ctx, res.ID)
	if err != nil {
		return nil, err
	}
	return outcomeFrom(confirmed), nil
}

// auditChargeResponse records the gateway's raw verdict before settlement
// interprets it, so reconciliation can see the response even when the
// reservation transition afterwards fails.
func (s *BookingService) auditChargeResponse(ctx context.Context, res *models.Reservation, outcome *ChargeOutcome, chargeErr error) {
	entry := &models.PaymentAudit{
		ReservationID: &res.ID,
		EventType:     models.PaymentEventChargeResponse,
		EventSource:   models.PaymentSourceCoordinator,
	}
	switch {
	case chargeErr != nil:
		msg := chargeErr.Error()
		entry.ErrorMessage = &msg
	case outcome != nil:
		entry.Payload = models.JSONB{
			"succeeded":   outcome.Succeeded,
			"gateway_ref": outcome.GatewayRef,
			"message":     outcome.Message,
		}
		if outcome.GatewayRef != "" {
			entry.GatewayRef = &outcome.GatewayRef
		}
	}
	_ = s.audit.Log(ctx, entry)
}

// dispatch sends a notification without blocking the booking path. Failures
// are logged and dropped; notification delivery never rolls back a
// reservation state change.
func (s *BookingService) dispatch(eventType notify.EventType, res *models.Reservation, req *models.BookingRequest) {
	event := &notify.Event{
		Type:          eventType,
		ReservationID: res.ID,
		TripID:        res.TripID,
		SeatLabels:    []string(res.SeatLabels),
		ContactName:   req.ContactName,
		ContactPhone:  req.ContactPhone,
		HoldExpiresAt: res.HoldExpiresAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.notifier.Notify(ctx, event); err != nil {
			s.logger.WithError(err).WithField("reservation_id", res.ID).Warn("Notification dispatch failed")
		}
	}()
}

func outcomeFrom(res *models.Reservation) *models.BookingOutcome {
	return &models.BookingOutcome{
		ReservationID: res.ID,
		State:         res.State,
		SeatLabels:    []string(res.SeatLabels),
		HoldExpiresAt: res.HoldExpiresAt,
		PaymentRef:    res.PaymentRef,
	}
}
