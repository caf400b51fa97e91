package handlers

import (
	"errors"
	"net/http"

	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/models"
	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/services"
	"github.com/Voyagetechsolutions/kjkhandala-sub002/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// BookingHandler exposes the booking coordinator and reservation queries
type BookingHandler struct {
	booking *services.BookingService
	ledger  *services.LedgerService
	logger  *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(booking *services.BookingService, ledger *services.LedgerService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{booking: booking, ledger: ledger, logger: logger}
}

// CreateBooking executes a booking as one atomic unit
// POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req models.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	req.ClientUserAgent = c.Request.UserAgent()
	req.Channel = utils.DetectChannel(req.ClientUserAgent)

	outcome, err := h.booking.Book(c.Request.Context(), &req)
	if err != nil {
		h.renderBookingError(c, err)
		return
	}

	c.JSON(http.StatusCreated, outcome)
}

// renderBookingError maps the ledger/coordinator error taxonomy onto HTTP
// statuses. Conflicts are retryable with different seats; TooLateToHold is
// terminal for the trip; PaymentFailed means the hold is already released.
func (h *BookingHandler) renderBookingError(c *gin.Context, err error) {
	var unavailable *models.SeatsUnavailableError
	var unknown *models.UnknownSeatsError
	var payment *models.PaymentFailedError

	switch {
	case errors.As(err, &unavailable):
		c.JSON(http.StatusConflict, gin.H{
			"error":             "seats_unavailable",
			"conflicting_seats": unavailable.Conflicting,
			"message":           "Some seats are no longer available",
		})
	case errors.As(err, &unknown):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":         "unknown_seats",
			"unknown_seats": unknown.Unknown,
		})
	case errors.As(err, &payment):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":          "payment_failed",
			"reservation_id": payment.ReservationID,
			"message":        "Payment failed; the seats have been released",
		})
	case errors.Is(err, models.ErrTooLateToHold):
		c.JSON(http.StatusConflict, gin.H{"error": "too_late_to_hold"})
	case errors.Is(err, models.ErrTripNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "trip not found"})
	case errors.Is(err, models.ErrTripNotBookable):
		c.JSON(http.StatusConflict, gin.H{"error": "trip_not_bookable"})
	case errors.Is(err, models.ErrNoSeatsRequested):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).Error("Booking failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "booking failed"})
	}
}

// GetReservation returns the status of one reservation
// GET /api/v1/reservations/:reservation_id
func (h *BookingHandler) GetReservation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("reservation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	res, err := h.ledger.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrReservationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to load reservation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reservation"})
		return
	}

	c.JSON(http.StatusOK, res.StatusResponse())
}

// ReleaseReservation cancels a held reservation before it expires.
// POST /api/v1/reservations/:reservation_id/release
func (h *BookingHandler) ReleaseReservation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("reservation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	err = h.ledger.Release(c.Request.Context(), id, models.ReleaseReasonCancelled)
	if err != nil {
		if errors.Is(err, models.ErrReservationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
			return
		}
		h.logger.WithError(err).WithField("reservation_id", id).Error("Failed to release reservation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to release reservation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "released"})
}

// GetTripReservations returns the full reservation history for a trip, for
// manifest generation and reporting.
// GET /api/v1/trips/:trip_id/reservations
func (h *BookingHandler) GetTripReservations(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("trip_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trip id"})
		return
	}

	reservations, err := h.ledger.History(c.Request.Context(), tripID)
	if err != nil {
		h.logger.WithError(err).WithField("trip_id", tripID).Error("Failed to load reservation history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reservations"})
		return
	}

	items := make([]*models.ReservationStatusResponse, 0, len(reservations))
	for i := range reservations {
		items = append(items, reservations[i].StatusResponse())
	}
	c.JSON(http.StatusOK, gin.H{"trip_id": tripID, "reservations": items})
}
