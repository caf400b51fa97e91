package models

import (
	"time"

	"github.com/google/uuid"
)

// TripStatus represents the lifecycle status of a scheduled trip
// Matches PostgreSQL ENUM: trip_status
type TripStatus string

const (
	TripStatusScheduled TripStatus = "scheduled"
	TripStatusDeparted  TripStatus = "departed"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

// Trip represents a single scheduled departure. Capacity and departure time
// are immutable once seats have been sold against the trip; route/schedule
// management lives outside this engine and this read model only mirrors it.
type Trip struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	RouteName     string     `json:"route_name" db:"route_name"`
	BusNumber     string     `json:"bus_number" db:"bus_number"`
	Capacity      int        `json:"capacity" db:"capacity"`
	DepartureTime time.Time  `json:"departure_time" db:"departure_time"`
	Status        TripStatus `json:"status" db:"status"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Bookable reports whether new reservations may be claimed against the trip.
func (t *Trip) Bookable(now time.Time) bool {
	if t.Status != TripStatusScheduled {
		return false
	}
	return t.DepartureTime.After(now)
}
