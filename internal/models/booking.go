package models

import (
	"time"

	"github.com/google/uuid"
)

// SettlementMode selects how a booking is paid for.
type SettlementMode string

const (
	// SettlementPayNow charges the payment gateway synchronously during Book.
	SettlementPayNow SettlementMode = "pay_now"
	// SettlementPayAtOffice leaves the reservation held until the passenger
	// pays at a ticket office, or the hold expires.
	SettlementPayAtOffice SettlementMode = "pay_at_office"
)

// SeatAssignment pairs a seat label with the passenger who will occupy it.
type SeatAssignment struct {
	SeatLabel       string  `json:"seat_label" binding:"required"`
	PassengerName   string  `json:"passenger_name" binding:"required"`
	PassengerPhone  *string `json:"passenger_phone,omitempty"`
	PassengerGender *string `json:"passenger_gender,omitempty"`
}

// BookingRequest is the single value carried through the booking coordinator.
// The fare amount is computed upstream; this engine only passes it through to
// the gateway on the PayNow path.
type BookingRequest struct {
	TripID          uuid.UUID        `json:"trip_id" binding:"required"`
	Seats           []SeatAssignment `json:"seats" binding:"required,min=1,dive"`
	SettlementMode  SettlementMode   `json:"settlement_mode" binding:"required"`
	Amount          float64          `json:"amount" binding:"gte=0"`
	ContactName     string           `json:"contact_name"`
	ContactPhone    string           `json:"contact_phone"`
	Channel         BookingChannel   `json:"-"`
	ClientUserAgent string           `json:"-"`
}

// SeatLabels returns the requested seat set in request order.
func (r *BookingRequest) SeatLabels() []string {
	labels := make([]string, len(r.Seats))
	for i, s := range r.Seats {
		labels[i] = s.SeatLabel
	}
	return labels
}

// BookingOutcome is the result of a successful Book call.
type BookingOutcome struct {
	ReservationID uuid.UUID        `json:"reservation_id"`
	State         ReservationState `json:"state"`
	SeatLabels    []string         `json:"seat_labels"`
	HoldExpiresAt *time.Time       `json:"hold_expires_at,omitempty"`
	PaymentRef    *string          `json:"payment_ref,omitempty"`
}

// SeatSnapshot partitions a trip's seats at a point in time. Every catalog
// seat appears in exactly one of the three sets.
type SeatSnapshot struct {
	TripID    uuid.UUID `json:"trip_id"`
	TakenAt   time.Time `json:"taken_at"`
	Available []string  `json:"available"`
	Held      []string  `json:"held"`
	Confirmed []string  `json:"confirmed"`
}

// PaymentOutcome is the gateway's verdict delivered to the settlement handler.
type PaymentOutcome string

const (
	PaymentOutcomeSuccess PaymentOutcome = "success"
	PaymentOutcomeFailed  PaymentOutcome = "failed"
	PaymentOutcomeTimeout PaymentOutcome = "timeout"
)

// PaymentCallback is the external payment event consumed by the settlement
// handler, whether it arrives as a webhook or a synchronous return value.
// Replaying the same callback must be a no-op.
type PaymentCallback struct {
	ReservationID uuid.UUID      `json:"reservation_id" binding:"required"`
	Outcome       PaymentOutcome `json:"outcome" binding:"required"`
	GatewayRef    string         `json:"gateway_ref"`
	Amount        float64        `json:"amount"`
	Message       string         `json:"message,omitempty"`
}
