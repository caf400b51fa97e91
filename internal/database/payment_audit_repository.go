package database

import (
	"context"
	"time"

	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// PaymentAuditRepository writes the append-only payment audit trail. Audit
// failures are logged but never propagated into the settlement path: losing
// an audit row must not roll back a reservation transition.
type PaymentAuditRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new PaymentAuditRepository
func NewPaymentAuditRepository(db *sqlx.DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{db: db, logger: logger}
}

// Log writes an audit entry. Returns the storage error for callers that want
// it, but also logs it so fire-and-forget call sites lose nothing.
func (r *PaymentAuditRepository) Log(ctx context.Context, audit *models.PaymentAudit) error {
	audit.ID = uuid.New()
	audit.CreatedAt = time.Now()

	if audit.ExpectedAmount != nil && audit.ReceivedAmount != nil {
		match := *audit.ExpectedAmount == *audit.ReceivedAmount
		audit.AmountsMatch = &match
	}

	query := `
		INSERT INTO payment_audit (
			id, reservation_id, gateway_ref, event_type, event_source,
			expected_amount, received_amount, amounts_match,
			payload, error_message, is_duplicate, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.ReservationID, audit.GatewayRef, audit.EventType, audit.EventSource,
		audit.ExpectedAmount, audit.ReceivedAmount, audit.AmountsMatch,
		audit.Payload, audit.ErrorMessage, audit.IsDuplicate, audit.CreatedAt,
	)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type":     audit.EventType,
			"reservation_id": audit.ReservationID,
		}).Error("Failed to write payment audit entry")
	}
	return err
}

// CheckDuplicate reports whether the same gateway event has been seen before.
// Used by the webhook handler to flag replayed callbacks.
func (r *PaymentAuditRepository) CheckDuplicate(ctx context.Context, gatewayRef string, eventType models.PaymentEventType) (bool, error) {
	if gatewayRef == "" {
		return false, nil
	}

	var count int
	query := `
		SELECT COUNT(*) FROM payment_audit
		WHERE gateway_ref = $1 AND event_type = $2`
	if err := r.db.GetContext(ctx, &count, query, gatewayRef, eventType); err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByReservationID returns the audit trail for a reservation, oldest first.
func (r *PaymentAuditRepository) GetByReservationID(ctx context.Context, reservationID uuid.UUID) ([]*models.PaymentAudit, error) {
	query := `
		SELECT id, reservation_id, gateway_ref, event_type, event_source,
		       expected_amount, received_amount, amounts_match,
		       payload, error_message, is_duplicate, created_at
		FROM payment_audit
		WHERE reservation_id = $1
		ORDER BY created_at`

	var entries []*models.PaymentAudit
	err := r.db.SelectContext(ctx, &entries, query, reservationID)
	return entries, err
}

// GetAmountMismatches returns recent entries where the gateway-reported amount
// disagreed with the reservation amount, for reconciliation review.
func (r *PaymentAuditRepository) GetAmountMismatches(ctx context.Context, limit int) ([]*models.PaymentAudit, error) {
	query := `
		SELECT id, reservation_id, gateway_ref, event_type, event_source,
		       expected_amount, received_amount, amounts_match,
		       payload, error_message, is_duplicate, created_at
		FROM payment_audit
		WHERE amounts_match = FALSE
		ORDER BY created_at DESC
		LIMIT $1`

	var entries []*models.PaymentAudit
	err := r.db.SelectContext(ctx, &entries, query, limit)
	return entries, err
}
