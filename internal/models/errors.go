package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Sentinel errors returned by the reservation ledger and its collaborators.
var (
	// ErrTooLateToHold is returned when the trip departs inside the
	// departure cutoff window, so no hold could expire before departure.
	ErrTooLateToHold = errors.New("trip departs too soon to hold seats")

	ErrTripNotFound        = errors.New("trip not found")
	ErrTripNotBookable     = errors.New("trip is not open for booking")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrNoSeatsRequested    = errors.New("at least one seat is required")
)

// SeatsUnavailableError is returned by Claim when one or more requested seats
// are already covered by an active reservation. No reservation is created;
// the caller should re-read the snapshot and retry with different seats.
type SeatsUnavailableError struct {
	TripID      uuid.UUID
	Conflicting []string
}

func (e *SeatsUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable on trip %s: %s", e.TripID, strings.Join(e.Conflicting, ", "))
}

// UnknownSeatsError is returned when requested labels are not part of the
// trip's seat catalog.
type UnknownSeatsError struct {
	TripID  uuid.UUID
	Unknown []string
}

func (e *UnknownSeatsError) Error() string {
	return fmt.Sprintf("unknown seats on trip %s: %s", e.TripID, strings.Join(e.Unknown, ", "))
}

// TransitionError indicates an invalid state change was attempted, e.g.
// confirming a released reservation. A logic error to surface, not retry.
type TransitionError struct {
	ReservationID uuid.UUID
	State         ReservationState
	Op            string
	Reason        string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s reservation %s in state %q: %s", e.Op, e.ReservationID, e.State, e.Reason)
}

// PaymentFailedError is returned by Book when the PayNow path fails. The hold
// has already been released; the caller may retry the booking from scratch.
type PaymentFailedError struct {
	ReservationID uuid.UUID
	Reason        string
}

func (e *PaymentFailedError) Error() string {
	return fmt.Sprintf("payment failed for reservation %s: %s", e.ReservationID, e.Reason)
}
