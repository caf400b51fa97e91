package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/models"
	"github.com/Voyagetechsolutions/kjkhandala-sub002/pkg/notify"
	"github.com/sirupsen/logrus"
)

// PaymentAuditStore is the audit trail contract. Implemented by
// database.PaymentAuditRepository.
type PaymentAuditStore interface {
	Log(ctx context.Context, audit *models.PaymentAudit) error
	CheckDuplicate(ctx context.Context, gatewayRef string, eventType models.PaymentEventType) (bool, error)
}

// SettlementService turns a gateway outcome into a reservation transition:
// success confirms the hold, failure or timeout releases it. Safe to replay:
// the underlying confirm/release transitions are idempotent, and replayed
// gateway refs are flagged in the audit trail.
type SettlementService struct {
	ledger   *LedgerService
	audit    PaymentAuditStore
	notifier notify.Notifier
	logger   *logrus.Logger
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(
	ledger *LedgerService,
	audit PaymentAuditStore,
	notifier notify.Notifier,
	logger *logrus.Logger,
) *SettlementService {
	return &SettlementService{
		ledger:   ledger,
		audit:    audit,
		notifier: notifier,
		logger:   logger,
	}
}

// Settle processes one payment outcome for a reservation. Exactly one
// external event per reservation decides it; receiving the same event again
// leaves the reservation unchanged and returns success.
func (s *SettlementService) Settle(ctx context.Context, source models.PaymentEventSource, cb *models.PaymentCallback) error {
	duplicate := false
	if cb.GatewayRef != "" {
		var err error
		duplicate, err = s.audit.CheckDuplicate(ctx, cb.GatewayRef, models.PaymentEventWebhookReceived)
		if err != nil {
			s.logger.WithError(err).Warn("Duplicate check failed, continuing")
		}
	}
	res, err := s.ledger.Get(ctx, cb.ReservationID)
	if err != nil {
		s.logEvent(ctx, cb, source, models.PaymentEventWebhookReceived, duplicate, nil, nil)
		return err
	}

	expected := res.Amount
	s.logEvent(ctx, cb, source, models.PaymentEventWebhookReceived, duplicate, nil, &expected)
	if cb.Amount != 0 && cb.Amount != expected {
		s.logger.WithFields(logrus.Fields{
			"reservation_id": cb.ReservationID,
			"expected":       expected,
			"received":       cb.Amount,
		}).Error("Gateway amount does not match reservation amount")
	}

	switch cb.Outcome {
	case models.PaymentOutcomeSuccess:
		return s.settleSuccess(ctx, res, cb, source)
	case models.PaymentOutcomeFailed, models.PaymentOutcomeTimeout:
		return s.settleFailure(ctx, res, cb, source)
	default:
		return fmt.Errorf("unknown payment outcome %q", cb.Outcome)
	}
}

func (s *SettlementService) settleSuccess(ctx context.Context, res *models.Reservation, cb *models.PaymentCallback, source models.PaymentEventSource) error {
	var ref *string
	if cb.GatewayRef != "" {
		ref = &cb.GatewayRef
	}

	alreadyConfirmed := res.State == models.ReservationStateConfirmed
	if err := s.ledger.Confirm(ctx, res.ID, ref); err != nil {
		errMsg := err.Error()
		s.logEvent(ctx, cb, source, models.PaymentEventError, false, &errMsg, &res.Amount)
		return err
	}

	s.logEvent(ctx, cb, source, models.PaymentEventConfirmed, alreadyConfirmed, nil, &res.Amount)
	if !alreadyConfirmed {
		s.dispatch(notify.EventReservationConfirmed, res, cb)
	}
	return nil
}

func (s *SettlementService) settleFailure(ctx context.Context, res *models.Reservation, cb *models.PaymentCallback, source models.PaymentEventSource) error {
	alreadyClosed := res.State.Terminal()
	if err := s.ledger.Release(ctx, res.ID, models.ReleaseReasonPaymentFailed); err != nil {
		errMsg := err.Error()
		s.logEvent(ctx, cb, source, models.PaymentEventError, false, &errMsg, &res.Amount)
		return err
	}

	s.logEvent(ctx, cb, source, models.PaymentEventReleased, alreadyClosed, nil, &res.Amount)
	if !alreadyClosed {
		s.dispatch(notify.EventReservationReleased, res, cb)
	}
	return nil
}

// logEvent appends to the audit trail. Audit failures are already logged by
// the store and must not fail settlement.
func (s *SettlementService) logEvent(
	ctx context.Context,
	cb *models.PaymentCallback,
	source models.PaymentEventSource,
	eventType models.PaymentEventType,
	duplicate bool,
	errMsg *string,
	expected *float64,
) {
	entry := &models.PaymentAudit{
		ReservationID: &cb.ReservationID,
		EventType:     eventType,
		EventSource:   source,
		IsDuplicate:   duplicate,
		ErrorMessage:  errMsg,
		Payload: models.JSONB{
			"outcome":     string(cb.Outcome),
			"gateway_ref": cb.GatewayRef,
			"message":     cb.Message,
		},
	}
	if cb.GatewayRef != "" {
		entry.GatewayRef = &cb.GatewayRef
	}
	if expected != nil {
		entry.ExpectedAmount = expected
	}
	if cb.Amount != 0 {
		received := cb.Amount
		entry.ReceivedAmount = &received
	}
	_ = s.audit.Log(ctx, entry)
}

func (s *SettlementService) dispatch(eventType notify.EventType, res *models.Reservation, cb *models.PaymentCallback) {
	event := &notify.Event{
		Type:          eventType,
		ReservationID: res.ID,
		TripID:        res.TripID,
		SeatLabels:    []string(res.SeatLabels),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.notifier.Notify(ctx, event); err != nil {
			s.logger.WithError(err).WithField("reservation_id", res.ID).Warn("Notification dispatch failed")
		}
	}()
}
