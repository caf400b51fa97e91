package database

import (
	"context"
	"database/sql"

	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TripRepository is a read-only view over the trip/route store. Route and
// schedule management happen elsewhere; the reservation engine only needs
// capacity and departure time.
type TripRepository struct {
	db *sqlx.DB
}

// NewTripRepository creates a new TripRepository
func NewTripRepository(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db}
}

// GetByID retrieves a trip by ID. Returns (nil, nil) when no trip exists.
func (r *TripRepository) GetByID(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	var trip models.Trip
	query := `
		SELECT id, route_name, bus_number, capacity, departure_time, status, created_at, updated_at
		FROM trips
		WHERE id = $1`

	err := r.db.GetContext(ctx, &trip, query, tripID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &trip, nil
}
