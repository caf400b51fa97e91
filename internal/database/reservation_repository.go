package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ReservationRepository handles reservation ledger database operations.
// Reservations are append-only at the entity level: state transitions update
// rows in place, but rows are never deleted.
//
// A partial unique index on reservation_seats (trip_id, seat_label) WHERE
// active backs up the per-trip serialization in the service layer, so a
// double-sell is impossible even if two processes race past the lock.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository creates a new ReservationRepository
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

const reservationColumns = `
	id, trip_id, seat_labels, state, hold_expires_at, payment_ref, amount,
	channel, release_reason, created_at, updated_at, confirmed_at, released_at`

// Create persists a new reservation and its per-seat claim rows in one
// transaction. The reservation must already carry its held state, expiry and
// timestamps (the ledger stamps them from its own clock); success means the
// claim is durable.
//
// Seat rows belonging to lapsed holds are deactivated first: the service
// layer treats an expired hold as available before the sweeper gets to it,
// so its rows must vacate the unique index or the insert below would reject
// seats the conflict check already cleared.
func (r *ReservationRepository) Create(ctx context.Context, res *models.Reservation) error {
	res.ID = uuid.New()
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now()
		res.UpdatedAt = res.CreatedAt
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	clearQuery, clearArgs, err := sqlx.In(`
		UPDATE reservation_seats rs
		SET active = FALSE
		FROM reservations res
		WHERE res.id = rs.reservation_id
		  AND rs.trip_id = ?
		  AND rs.seat_label IN (?)
		  AND rs.active = TRUE
		  AND res.state = 'held'
		  AND res.hold_expires_at <= ?`,
		res.TripID, []string(res.SeatLabels), res.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to build expired-hold query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(clearQuery), clearArgs...); err != nil {
		return fmt.Errorf("failed to deactivate expired seat claims: %w", err)
	}

	query := `
		INSERT INTO reservations (
			id, trip_id, seat_labels, state, hold_expires_at, payment_ref,
			amount, channel, release_reason, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)`

	_, err = tx.ExecContext(ctx, query,
		res.ID, res.TripID, res.SeatLabels, res.State, res.HoldExpiresAt,
		res.PaymentRef, res.Amount, res.Channel, res.ReleaseReason,
		res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	seatQuery := `
		INSERT INTO reservation_seats (reservation_id, trip_id, seat_label, active)
		VALUES ($1, $2, $3, TRUE)`
	for _, label := range res.SeatLabels {
		if _, err := tx.ExecContext(ctx, seatQuery, res.ID, res.TripID, label); err != nil {
			if isUniqueViolation(err) {
				return &models.SeatsUnavailableError{TripID: res.TripID, Conflicting: []string{label}}
			}
			return fmt.Errorf("failed to insert seat claim for %s: %w", label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}
	return nil
}

// GetByID retrieves a reservation by ID. Returns (nil, nil) when absent.
func (r *ReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var res models.Reservation
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	err := r.db.GetContext(ctx, &res, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// FindConflictingSeats returns the subset of the requested labels that are
// covered by a confirmed reservation or an unexpired hold on the trip.
func (r *ReservationRepository) FindConflictingSeats(
	ctx context.Context,
	tripID uuid.UUID,
	seatLabels []string,
	now time.Time,
) ([]string, error) {
	if len(seatLabels) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT DISTINCT rs.seat_label
		FROM reservation_seats rs
		JOIN reservations res ON res.id = rs.reservation_id
		WHERE rs.trip_id = ?
		  AND rs.seat_label IN (?)
		  AND (
		    res.state = 'confirmed'
		    OR (res.state = 'held' AND res.hold_expires_at > ?)
		  )`, tripID, seatLabels, now)
	if err != nil {
		return nil, fmt.Errorf("failed to build conflict query: %w", err)
	}

	query = r.db.Rebind(query)
	var conflicting []string
	if err := r.db.SelectContext(ctx, &conflicting, query, args...); err != nil {
		return nil, fmt.Errorf("failed to check seat conflicts: %w", err)
	}
	return conflicting, nil
}

// ListActiveByTrip returns all reservations for a trip in state held or
// confirmed, including holds that have logically expired but not yet been
// swept. Callers apply lazy-expiry filtering against their own read time.
func (r *ReservationRepository) ListActiveByTrip(ctx context.Context, tripID uuid.UUID) ([]models.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE trip_id = $1 AND state IN ('held', 'confirmed')
		ORDER BY created_at`

	var reservations []models.Reservation
	err := r.db.SelectContext(ctx, &reservations, query, tripID)
	return reservations, err
}

// ListByTrip returns the complete reservation history for a trip, newest
// first, for manifest generation and reporting.
func (r *ReservationRepository) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]models.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE trip_id = $1
		ORDER BY created_at DESC`

	var reservations []models.Reservation
	err := r.db.SelectContext(ctx, &reservations, query, tripID)
	return reservations, err
}

// Confirm transitions a reservation from held to confirmed. The guard on the
// UPDATE keeps the transition valid: only a currently held, unexpired
// reservation is affected. Returns whether a row changed.
func (r *ReservationRepository) Confirm(ctx context.Context, id uuid.UUID, paymentRef *string, now time.Time) (bool, error) {
	query := `
		UPDATE reservations
		SET state = 'confirmed',
		    payment_ref = COALESCE($2, payment_ref),
		    confirmed_at = $3,
		    updated_at = $3
		WHERE id = $1 AND state = 'held' AND hold_expires_at > $3`

	result, err := r.db.ExecContext(ctx, query, id, paymentRef, now)
	if err != nil {
		return false, fmt.Errorf("failed to confirm reservation: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// Release transitions a reservation from held to released and deactivates its
// seat claims so the seats fall out of the unique-index scope. Returns whether
// a row changed; releasing a reservation that is not held changes nothing.
func (r *ReservationRepository) Release(ctx context.Context, id uuid.UUID, reason models.ReleaseReason, now time.Time) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE reservations
		SET state = 'released',
		    release_reason = $2,
		    released_at = $3,
		    updated_at = $3
		WHERE id = $1 AND state = 'held'`, id, reason, now)
	if err != nil {
		return false, fmt.Errorf("failed to release reservation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return false, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE reservation_seats
		SET active = FALSE
		WHERE reservation_id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate seat claims: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit release: %w", err)
	}
	return true, nil
}

// SetPaymentRef records the gateway reference once settlement starts.
func (r *ReservationRepository) SetPaymentRef(ctx context.Context, id uuid.UUID, ref string) error {
	query := `UPDATE reservations SET payment_ref = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, ref)
	return err
}

// ListExpiredHeld returns held reservations whose hold has passed, oldest
// first, capped at limit. The sweeper feeds these to Release.
func (r *ReservationRepository) ListExpiredHeld(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE state = 'held' AND hold_expires_at <= $1
		ORDER BY hold_expires_at
		LIMIT $2`

	var reservations []models.Reservation
	err := r.db.SelectContext(ctx, &reservations, query, now, limit)
	return reservations, err
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
