package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event describes a reservation outcome worth telling the passenger about.
type Event struct {
	Type          EventType  `json:"type"`
	ReservationID uuid.UUID  `json:"reservation_id"`
	TripID        uuid.UUID  `json:"trip_id"`
	SeatLabels    []string   `json:"seat_labels"`
	ContactName   string     `json:"contact_name,omitempty"`
	ContactPhone  string     `json:"contact_phone,omitempty"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
}

// EventType identifies the kind of reservation event
type EventType string

const (
	EventReservationHeld      EventType = "reservation_held"
	EventReservationConfirmed EventType = "reservation_confirmed"
	EventReservationReleased  EventType = "reservation_released"
)

// Notifier dispatches reservation events to the external notification
// collaborator (SMS/email/WhatsApp fan-out happens downstream). Dispatch is
// fire-and-forget: a failed notification never affects reservation state.
type Notifier interface {
	// Notify delivers one event. Returns an error for the caller to log;
	// callers must never act on it beyond logging.
	Notify(ctx context.Context, event *Event) error

	// GetName returns the name of the notifier implementation
	GetName() string
}
