package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventChargeInitiated PaymentEventType = "charge_initiated"
	PaymentEventChargeResponse  PaymentEventType = "charge_response"
	PaymentEventWebhookReceived PaymentEventType = "webhook_received"
	PaymentEventConfirmed       PaymentEventType = "reservation_confirmed"
	PaymentEventReleased        PaymentEventType = "reservation_released"
	PaymentEventError           PaymentEventType = "error"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceCoordinator PaymentEventSource = "coordinator"
	PaymentSourceWebhook     PaymentEventSource = "webhook"
	PaymentSourceSweeper     PaymentEventSource = "sweeper"
)

// JSONB wraps a map for PostgreSQL JSONB columns.
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return errors.New("unsupported type for JSONB scan")
	}
}

// PaymentAudit is an immutable audit log entry for a payment interaction.
// Written for every gateway call and webhook, never updated or deleted;
// reconciliation and dispute handling read this trail.
type PaymentAudit struct {
	ID            uuid.UUID          `json:"id" db:"id"`
	ReservationID *uuid.UUID         `json:"reservation_id,omitempty" db:"reservation_id"`
	GatewayRef    *string            `json:"gateway_ref,omitempty" db:"gateway_ref"`
	EventType     PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource   PaymentEventSource `json:"event_source" db:"event_source"`

	// Amount tracking for reconciliation
	ExpectedAmount *float64 `json:"expected_amount,omitempty" db:"expected_amount"`
	ReceivedAmount *float64 `json:"received_amount,omitempty" db:"received_amount"`
	AmountsMatch   *bool    `json:"amounts_match,omitempty" db:"amounts_match"`

	Payload      JSONB   `json:"payload,omitempty" db:"payload"`
	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`
	IsDuplicate  bool    `json:"is_duplicate" db:"is_duplicate"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
