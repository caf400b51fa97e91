package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ============================================================================
// RESERVATION STATES & REASONS (match DB ENUMs)
// ============================================================================

// ReservationState represents the state of a reservation
// Matches PostgreSQL ENUM: reservation_state
type ReservationState string

const (
	// ReservationStatePending exists only inside the claim transaction; a
	// reservation is never observable in this state after Claim returns.
	ReservationStatePending   ReservationState = "pending"
	ReservationStateHeld      ReservationState = "held"
	ReservationStateConfirmed ReservationState = "confirmed"
	ReservationStateReleased  ReservationState = "released"
)

// Terminal reports whether the state permits no further transitions.
func (s ReservationState) Terminal() bool {
	return s == ReservationStateConfirmed || s == ReservationStateReleased
}

// ReleaseReason records why a held reservation was released
// Matches PostgreSQL ENUM: release_reason
type ReleaseReason string

const (
	ReleaseReasonExpired       ReleaseReason = "expired"
	ReleaseReasonPaymentFailed ReleaseReason = "payment_failed"
	ReleaseReasonCancelled     ReleaseReason = "cancelled"
)

// BookingChannel records where a reservation originated
type BookingChannel string

const (
	ChannelApp     BookingChannel = "app"
	ChannelWeb     BookingChannel = "web"
	ChannelCounter BookingChannel = "counter"
)

// ============================================================================
// RESERVATION ENTITY
// ============================================================================

// Reservation is the authoritative record of a seat claim and its outcome.
// One reservation may cover multiple seats for a multi-passenger booking.
// Owned exclusively by the reservation ledger; never physically deleted
// (retained for manifest and audit reads).
type Reservation struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	TripID        uuid.UUID        `json:"trip_id" db:"trip_id"`
	SeatLabels    pq.StringArray   `json:"seat_labels" db:"seat_labels"`
	State         ReservationState `json:"state" db:"state"`
	HoldExpiresAt *time.Time       `json:"hold_expires_at,omitempty" db:"hold_expires_at"`
	PaymentRef    *string          `json:"payment_ref,omitempty" db:"payment_ref"`
	Amount        float64          `json:"amount" db:"amount"`
	Channel       BookingChannel   `json:"channel" db:"channel"`
	ReleaseReason *ReleaseReason   `json:"release_reason,omitempty" db:"release_reason"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
	ConfirmedAt   *time.Time       `json:"confirmed_at,omitempty" db:"confirmed_at"`
	ReleasedAt    *time.Time       `json:"released_at,omitempty" db:"released_at"`
}

// HoldExpired reports whether a held reservation's hold window has passed.
// Always false for non-held states.
func (r *Reservation) HoldExpired(now time.Time) bool {
	if r.State != ReservationStateHeld || r.HoldExpiresAt == nil {
		return false
	}
	return !r.HoldExpiresAt.After(now)
}

// Blocking reports whether the reservation makes its seats unavailable at the
// given instant. A held reservation past its expiry no longer blocks, even
// before the sweeper has physically released it (lazy expiry).
func (r *Reservation) Blocking(now time.Time) bool {
	switch r.State {
	case ReservationStateConfirmed:
		return true
	case ReservationStateHeld:
		return !r.HoldExpired(now)
	default:
		return false
	}
}

// ReservationStatusResponse is the read model returned by status queries.
type ReservationStatusResponse struct {
	ReservationID uuid.UUID        `json:"reservation_id"`
	TripID        uuid.UUID        `json:"trip_id"`
	SeatLabels    []string         `json:"seat_labels"`
	State         ReservationState `json:"state"`
	HoldExpiresAt *time.Time       `json:"hold_expires_at,omitempty"`
	PaymentRef    *string          `json:"payment_ref,omitempty"`
	ReleaseReason *ReleaseReason   `json:"release_reason,omitempty"`
	Channel       BookingChannel   `json:"channel"`
	CreatedAt     time.Time        `json:"created_at"`
}

// StatusResponse builds the external read model for a reservation.
func (r *Reservation) StatusResponse() *ReservationStatusResponse {
	return &ReservationStatusResponse{
		ReservationID: r.ID,
		TripID:        r.TripID,
		SeatLabels:    []string(r.SeatLabels),
		State:         r.State,
		HoldExpiresAt: r.HoldExpiresAt,
		PaymentRef:    r.PaymentRef,
		ReleaseReason: r.ReleaseReason,
		Channel:       r.Channel,
		CreatedAt:     r.CreatedAt,
	}
}
